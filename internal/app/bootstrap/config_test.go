package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaultsWithEnvURLs(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/release")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Escrow-Release-Engine", cfg.ServiceID)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.Equal(t, 500, cfg.ScanBatchSize)
	assert.Equal(t, time.Hour, cfg.MilestoneInterval)
	assert.Equal(t, 2*time.Hour, cfg.ComprehensiveInterval)
	assert.Equal(t, float64(5000), cfg.Policies.HighValueThreshold)
	assert.Equal(t, 60, cfg.Policies.Dispute.MaxEscrowDays)
	assert.Equal(t, 30, cfg.Policies.Standard.MaxEscrowDays)
	assert.False(t, cfg.Policies.Standard.RequiresApproval)
}

func TestLoadConfigReadsFileAndPolicyOverrides(t *testing.T) {
	path := writeConfig(t, `
service:
  id: release-engine-staging
  http_port: 8181
dependencies:
  postgres_url: postgres://db:5432/release
  redis_url: redis://cache:6379/1
  kafka_brokers: [kafka-0:9092, kafka-1:9092]
policies:
  high_value_threshold: 2500
  standard:
    grace_period_days: 10
    max_escrow_days: 20
    requires_approval: true
runs:
  worker_concurrency: 16
  milestone_interval_minutes: 30
  run_on_start: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "release-engine-staging", cfg.ServiceID)
	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, "postgres://db:5432/release", cfg.DatabaseURL)
	assert.Equal(t, []string{"kafka-0:9092", "kafka-1:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, float64(2500), cfg.Policies.HighValueThreshold)
	assert.Equal(t, 10, cfg.Policies.Standard.GracePeriodDays)
	assert.Equal(t, 20, cfg.Policies.Standard.MaxEscrowDays)
	assert.True(t, cfg.Policies.Standard.RequiresApproval)
	// Untouched rows keep platform defaults.
	assert.Equal(t, 14, cfg.Policies.HighValue.GracePeriodDays)
	assert.Equal(t, 16, cfg.WorkerConcurrency)
	assert.Equal(t, 30*time.Minute, cfg.MilestoneInterval)
	assert.True(t, cfg.RunOnStart)
}

func TestLoadConfigPartialPolicyOverrideKeepsApprovalRequirement(t *testing.T) {
	path := writeConfig(t, `
dependencies:
  postgres_url: postgres://db:5432/release
  redis_url: redis://cache:6379/1
policies:
  dispute:
    grace_period_days: 2
  high_value:
    max_escrow_days: 40
  standard:
    requires_approval: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Rows that only adjust day counts keep their default approval requirement.
	assert.Equal(t, 2, cfg.Policies.Dispute.GracePeriodDays)
	assert.True(t, cfg.Policies.Dispute.RequiresApproval)
	assert.Equal(t, 40, cfg.Policies.HighValue.MaxEscrowDays)
	assert.True(t, cfg.Policies.HighValue.RequiresApproval)
	// An explicit requires_approval still wins in either direction.
	assert.True(t, cfg.Policies.Standard.RequiresApproval)
	assert.Equal(t, 7, cfg.Policies.Standard.GracePeriodDays)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
dependencies:
  postgres_url: postgres://db:5432/release
  redis_url: redis://cache:6379/1
runs:
  worker_concurrency: 4
`)
	t.Setenv("DB_URL", "postgres://override:5432/release")
	t.Setenv("RUN_WORKER_CONCURRENCY", "12")
	t.Setenv("KAFKA_BROKERS", "kafka-2:9092, kafka-3:9092")
	t.Setenv("COMPREHENSIVE_INTERVAL_MINUTES", "90")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://override:5432/release", cfg.DatabaseURL)
	assert.Equal(t, 12, cfg.WorkerConcurrency)
	assert.Equal(t, []string{"kafka-2:9092", "kafka-3:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Minute, cfg.ComprehensiveInterval)
}

func TestLoadConfigRequiresDependencyURLs(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")

	t.Setenv("DB_URL", "postgres://localhost:5432/release")
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}
