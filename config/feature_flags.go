package config

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEATURE FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// Feature names.
const (
	// FeatureAdvisor enables the external AI advisor. Off means rule-based advice only.
	FeatureAdvisor = "advisor.enabled"

	// FeatureAdvisorCache caches AI analyses in Redis.
	FeatureAdvisorCache = "advisor.cache"

	// FeatureAdvisorNarrative enables the free-text narrative endpoint.
	FeatureAdvisorNarrative = "advisor.narrative"

	// FeaturePsychBoard enables the psychologist board and appointments.
	FeaturePsychBoard = "psych.board"
)

// Feature describes a single flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// 0-100, applied per student ID. 100 means everyone.
	RolloutPercent int

	// Empty means every role.
	TargetRoles []string
}

// FeatureContext carries the caller attributes a flag may depend on.
type FeatureContext struct {
	Role      string
	StudentID string
}

// FeatureFlags is a thread-safe registry of features.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// NewFeatureFlags creates a registry populated with defaults.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	return ff
}

// LoadFeatureFlags creates a registry with defaults overridden from viper.
// Overrides are read from FEATURE_<NAME> (true, false or a rollout percent).
func LoadFeatureFlags(v *viper.Viper) *FeatureFlags {
	ff := NewFeatureFlags()
	for name, f := range ff.features {
		key := featureNameToEnvKey(name)
		_ = v.BindEnv(key, key)
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			continue
		}
		applyOverride(f, raw)
	}
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []*Feature{
		{
			Name:           FeatureAdvisor,
			Description:    "AI advisor for risk explanations and recommendations",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureAdvisorCache,
			Description:    "Cache AI analyses in Redis",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureAdvisorNarrative,
			Description:    "Free-text narrative about a student",
			Enabled:        true,
			RolloutPercent: 100,
			TargetRoles:    []string{"deputy", "psychologist"},
		},
		{
			Name:           FeaturePsychBoard,
			Description:    "Psychologist board, referrals and appointments",
			Enabled:        true,
			RolloutPercent: 100,
		},
	}
	for _, f := range defaults {
		ff.features[f.Name] = f
	}
}

func applyOverride(f *Feature, raw string) {
	if b, err := strconv.ParseBool(raw); err == nil {
		f.Enabled = b
		if b && f.RolloutPercent == 0 {
			f.RolloutPercent = 100
		}
		return
	}
	if pct, err := strconv.Atoi(strings.TrimSuffix(raw, "%")); err == nil {
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		f.Enabled = pct > 0
		f.RolloutPercent = pct
	}
}

// featureNameToEnvKey maps "advisor.enabled" to "FEATURE_ADVISOR_ENABLED".
func featureNameToEnvKey(name string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return "FEATURE_" + strings.ToUpper(r.Replace(name))
}

// IsEnabled checks whether a feature is on for the given context. ctx may be nil.
func (ff *FeatureFlags) IsEnabled(name string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	if !ok || !f.Enabled {
		return false
	}

	if len(f.TargetRoles) > 0 && ctx != nil && ctx.Role != "" {
		allowed := false
		for _, r := range f.TargetRoles {
			if r == ctx.Role {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if f.RolloutPercent >= 100 {
		return true
	}
	if ctx == nil || ctx.StudentID == "" {
		return f.RolloutPercent > 0
	}
	return isInRollout(name, ctx.StudentID, f.RolloutPercent)
}

// Set toggles a feature at runtime.
func (ff *FeatureFlags) Set(name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[name]
	if !ok {
		f = &Feature{Name: name, RolloutPercent: 100}
		ff.features[name] = f
	}
	f.Enabled = enabled
}

// SetRollout changes the rollout percent of a feature.
func (ff *FeatureFlags) SetRollout(name string, percent int) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if f, ok := ff.features[name]; ok {
		applyOverride(f, strconv.Itoa(percent))
	}
}

// Snapshot returns the enabled state of every feature.
func (ff *FeatureFlags) Snapshot() map[string]bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make(map[string]bool, len(ff.features))
	for name, f := range ff.features {
		out[name] = f.Enabled
	}
	return out
}

// isInRollout buckets a student deterministically.
func isInRollout(feature, studentID string, percent int) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature + ":" + studentID))
	return int(h.Sum32()%100) < percent
}
