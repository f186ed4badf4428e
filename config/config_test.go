package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "mektep-monitor", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 5, cfg.HTTP.FocusListSize)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Advisor.Model)
	assert.InDelta(t, 0.4, cfg.Advisor.Temperature, 1e-9)
	assert.Equal(t, 8*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, 1, cfg.Advisor.CircuitBreakerSuccesses)
	assert.Equal(t, 6*time.Hour, cfg.Redis.AnalysisTTL)
	assert.Equal(t, "/metrics", cfg.Observability.MetricsPath)
	assert.True(t, cfg.Features.IsEnabled(FeatureAdvisor, nil))
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("ADVISOR_TIMEOUT", "3s")
	t.Setenv("ADVISOR_CB_SUCCESSES", "2")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.kz, https://b.kz")
	t.Setenv("FEATURE_ADVISOR_ENABLED", "false")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "gsk-test", cfg.Advisor.APIKey)
	assert.True(t, cfg.Advisor.IsEnabled())
	assert.Equal(t, 3*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, 2, cfg.Advisor.CircuitBreakerSuccesses)
	assert.Equal(t, []string{"https://a.kz", "https://b.kz"}, cfg.HTTP.CORSOrigins)
	assert.False(t, cfg.Features.IsEnabled(FeatureAdvisor, nil))
}

func TestLoadFrom_ProductionRequiresDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := LoadFrom(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	cfg.HTTP.Port = 0
	cfg.Advisor.Temperature = 3
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_PORT")
	assert.Contains(t, err.Error(), "ADVISOR_TEMPERATURE")
}

func TestFeatureFlags_RoleTargeting(t *testing.T) {
	ff := NewFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureAdvisorNarrative, &FeatureContext{Role: "deputy"}))
	assert.False(t, ff.IsEnabled(FeatureAdvisorNarrative, &FeatureContext{Role: "parent"}))
	assert.True(t, ff.IsEnabled(FeatureAdvisorNarrative, nil))
	assert.False(t, ff.IsEnabled("unknown.flag", nil))
}

func TestFeatureFlags_Rollout(t *testing.T) {
	ff := NewFeatureFlags()
	ff.SetRollout(FeatureAdvisor, 50)

	in := 0
	for i := 0; i < 200; i++ {
		ctx := &FeatureContext{StudentID: "s-" + string(rune('a'+i%26)) + string(rune('a'+i/26))}
		first := ff.IsEnabled(FeatureAdvisor, ctx)
		assert.Equal(t, first, ff.IsEnabled(FeatureAdvisor, ctx), "rollout must be stable")
		if first {
			in++
		}
	}
	assert.Greater(t, in, 0)
	assert.Less(t, in, 200)

	ff.SetRollout(FeatureAdvisor, 0)
	assert.False(t, ff.IsEnabled(FeatureAdvisor, &FeatureContext{StudentID: "s-1"}))
}

func TestFeatureFlags_PercentOverride(t *testing.T) {
	t.Setenv("FEATURE_PSYCH_BOARD", "0")

	ff := LoadFeatureFlags(viper.New())
	assert.False(t, ff.IsEnabled(FeaturePsychBoard, nil))
	assert.False(t, ff.Snapshot()[FeaturePsychBoard])
}

func TestFeatureNameToEnvKey(t *testing.T) {
	assert.Equal(t, "FEATURE_ADVISOR_ENABLED", featureNameToEnvKey(FeatureAdvisor))
}
