package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  api_port: 9090
database:
  driver: postgres
  host: db.internal
  user: hrhub
  dbname: approval
storage:
  bucket: hrhub-files
  public_base_url: https://files.example.com/hrhub/
employee:
  base_url: http://hr-service:8080/
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.APIPort)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 300, cfg.Storage.PresignTTL)
	assert.Equal(t, "https://files.example.com/hrhub", cfg.Storage.PublicBaseURL)
	assert.Equal(t, "http://hr-service:8080", cfg.Employee.BaseURL)
	assert.Equal(t, "* * * * *", cfg.Scheduler.PublishCron)
	assert.Equal(t, 60, cfg.Workflow.RemindCooldown)
	assert.Equal(t, "gochannel", cfg.Events.Backend)
	assert.Equal(t, "hrhub.approval.events", cfg.Events.Topic)
	assert.NotEmpty(t, cfg.Security.JWTSecret)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "override-db")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("EVENTS_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "override-db", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"redis without host", "redis:\n  enabled: true\n"},
		{"kafka without brokers", "events:\n  backend: kafka\n"},
		{"unknown events backend", "events:\n  backend: nats\n"},
		{"broken yaml", "server: [1, 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hrhub-files", cfg.Storage.Bucket)
	assert.Same(t, cfg, GlobalConfig)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	mysqlCfg := DatabaseConfig{Driver: "mysql", Host: "h", Port: 3306, User: "u", Password: "p", DBName: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", mysqlCfg.DSN())

	pgCfg := DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", pgCfg.DSN())
}

func TestBundledConfigPointsAtServiceRoots(t *testing.T) {
	t.Setenv("EMPLOYEE_BASE_URL", "")

	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	// 客户端自行拼接 /api/employees/by-email
	assert.Equal(t, "http://127.0.0.1:8081", cfg.Employee.BaseURL)
	assert.NotContains(t, cfg.Employee.BaseURL, "/api/")
}
