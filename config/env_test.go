package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "kukuyard", cfg.DB.Name)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, 24, cfg.Auth.TokenTTLHours)
	assert.Equal(t, 30, cfg.Prediction.TimeoutSeconds)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "kukuyard_test")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "72")
	t.Setenv("PREDICTION_SERVICE_URL", "http://predictor:5000")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "kukuyard_test", cfg.DB.Name)
	assert.Equal(t, 72, cfg.Auth.TokenTTLHours)
	assert.Equal(t, "http://predictor:5000", cfg.Prediction.ServiceURL)
}

func TestDSN(t *testing.T) {
	dsn := DBConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "postgres",
		Name:     "kukuyard",
		SSLMode:  "disable",
	}.DSN()

	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=kukuyard sslmode=disable", dsn)
}
