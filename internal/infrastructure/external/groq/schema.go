package groq

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

var stringList = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string", "minLength": 1},
}

// adviceSchema describes {reasons[], psychSignals[], roleRecs{...}}.
// Every field is optional; unknown fields are ignored.
var adviceSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"reasons":      stringList,
		"psychSignals": stringList,
		"roleRecs": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"teacher":      stringList,
				"deputy":       stringList,
				"parent":       stringList,
				"psychologist": stringList,
			},
		},
	},
}

var adviceSchemaLoader = gojsonschema.NewGoLoader(adviceSchema)

// ParseAdvice extracts and validates the advice JSON from a model reply.
// Code fences and text around the object are tolerated.
func ParseAdvice(content string) (risk.Advice, error) {
	raw, ok := extractJSONObject(content)
	if !ok {
		return risk.Advice{}, shared.WrapError("advisor", "Parse", shared.ErrInvalidFormat,
			"no JSON object in reply", shared.ErrAdvisorInvalidResponse)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return risk.Advice{}, shared.WrapError("advisor", "Parse", shared.ErrInvalidFormat,
			"malformed JSON in reply", err)
	}

	result, err := gojsonschema.Validate(adviceSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return risk.Advice{}, shared.WrapError("advisor", "Parse", shared.ErrInvalidFormat,
			"schema validation error", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return risk.Advice{}, shared.WrapError("advisor", "Parse", shared.ErrInvalidFormat,
			fmt.Sprintf("reply does not match schema: %v", errs), shared.ErrAdvisorInvalidResponse)
	}

	var advice risk.Advice
	if err := json.Unmarshal([]byte(raw), &advice); err != nil {
		return risk.Advice{}, shared.WrapError("advisor", "Parse", shared.ErrInvalidFormat,
			"decode advice", err)
	}
	return advice, nil
}

// extractJSONObject returns the outermost {...} span of s.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
