package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "UTC", cfg.Analytics.Location.String())
	assert.Equal(t, CompletionSourceUser, cfg.Analytics.CompletionSource)
	assert.Equal(t, 20, cfg.Analytics.LeaderboardSize)
	assert.Equal(t, "Nigeria", cfg.Analytics.FocusCountry)
	assert.Equal(t, time.Minute, cfg.Analytics.CacheTTL)
	assert.False(t, cfg.Analytics.CacheEnabled)
	assert.False(t, cfg.JWT.Enabled)
}

func TestFromViperOverrides(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]interface{}{
		"STORE_DRIVER":                "Postgres",
		"ANALYTICS_TIMEZONE":          "Africa/Lagos",
		"ANALYTICS_COMPLETION_SOURCE": "class",
		"ANALYTICS_LEADERBOARD_SIZE":  0,
		"ANALYTICS_CACHE_TTL":         "not-a-duration",
		"ALLOWED_ORIGINS":             " https://admin.example.com , ,http://localhost:3000",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "Africa/Lagos", cfg.Analytics.Location.String())
	assert.Equal(t, CompletionSourceClass, cfg.Analytics.CompletionSource)
	assert.Equal(t, 20, cfg.Analytics.LeaderboardSize)
	assert.Equal(t, time.Minute, cfg.Analytics.CacheTTL)
	assert.Equal(t, []string{"https://admin.example.com", "http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestFromViperRejectsInvalidPolicy(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]interface{}{"ANALYTICS_TIMEZONE": "Mars/Olympus"}))
	assert.Error(t, err)

	_, err = fromViper(newTestViper(map[string]interface{}{"ANALYTICS_COMPLETION_SOURCE": "both"}))
	assert.Error(t, err)

	_, err = fromViper(newTestViper(map[string]interface{}{"STORE_DRIVER": "sqlite"}))
	assert.Error(t, err)
}
