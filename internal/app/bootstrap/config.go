package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// Config is the resolved runtime configuration for the release engine.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	KafkaBrokers     []string
	KafkaDomainTopic string
	KafkaOpsTopic    string
	KafkaStatsTopic  string
	KafkaDLQTopic    string

	Policies domain.PolicyConfig

	WorkerConcurrency   int
	ScanBatchSize       int
	StoreTimeout        time.Duration
	ErrorAlertThreshold int
	ApprovalNoticeTTL   time.Duration
	RunHistoryLen       int

	MilestoneInterval     time.Duration
	ComprehensiveInterval time.Duration
	RunOnStart            bool

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// policyFile is the YAML shape of one rule table row.
type policyFile struct {
	GracePeriodDays  int   `yaml:"grace_period_days"`
	MaxEscrowDays    int   `yaml:"max_escrow_days"`
	RequiresApproval *bool `yaml:"requires_approval"`
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Topics struct {
		Domain string `yaml:"domain"`
		Ops    string `yaml:"ops"`
		Stats  string `yaml:"stats"`
		DLQ    string `yaml:"dlq"`
	} `yaml:"topics"`
	Policies struct {
		HighValueThreshold float64     `yaml:"high_value_threshold"`
		Dispute            *policyFile `yaml:"dispute"`
		HighValue          *policyFile `yaml:"high_value"`
		Milestone          *policyFile `yaml:"milestone"`
		Standard           *policyFile `yaml:"standard"`
	} `yaml:"policies"`
	Runs struct {
		WorkerConcurrency          int  `yaml:"worker_concurrency"`
		ScanBatchSize              int  `yaml:"scan_batch_size"`
		ErrorAlertThreshold        int  `yaml:"error_alert_threshold"`
		HistoryLen                 int  `yaml:"history_len"`
		MilestoneIntervalMinutes   int  `yaml:"milestone_interval_minutes"`
		ComprehensiveIntervalHours int  `yaml:"comprehensive_interval_hours"`
		RunOnStart                 bool `yaml:"run_on_start"`
	} `yaml:"runs"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:             "Escrow-Release-Engine",
		HTTPPort:              8080,
		GRPCPort:              9090,
		KafkaDomainTopic:      "payments.events",
		KafkaOpsTopic:         "payments.ops",
		KafkaStatsTopic:       "payments.stats",
		KafkaDLQTopic:         "payments.release.dlq",
		Policies:              domain.DefaultPolicyConfig(),
		WorkerConcurrency:     8,
		ScanBatchSize:         500,
		StoreTimeout:          10 * time.Second,
		ErrorAlertThreshold:   5,
		ApprovalNoticeTTL:     24 * time.Hour,
		RunHistoryLen:         50,
		MilestoneInterval:     time.Hour,
		ComprehensiveInterval: 2 * time.Hour,
		RunOnStart:            false,
		MaxDBConns:            20,
		OutboxPollInterval:    2 * time.Second,
		OutboxBatchSize:       100,
		OutboxClaimTTL:        30 * time.Second,
		OutboxMaxRetries:      5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Topics.Domain != "" {
			cfg.KafkaDomainTopic = f.Topics.Domain
		}
		if f.Topics.Ops != "" {
			cfg.KafkaOpsTopic = f.Topics.Ops
		}
		if f.Topics.Stats != "" {
			cfg.KafkaStatsTopic = f.Topics.Stats
		}
		if f.Topics.DLQ != "" {
			cfg.KafkaDLQTopic = f.Topics.DLQ
		}
		if f.Policies.HighValueThreshold > 0 {
			cfg.Policies.HighValueThreshold = f.Policies.HighValueThreshold
		}
		applyPolicy(&cfg.Policies.Dispute, f.Policies.Dispute)
		applyPolicy(&cfg.Policies.HighValue, f.Policies.HighValue)
		applyPolicy(&cfg.Policies.Milestone, f.Policies.Milestone)
		applyPolicy(&cfg.Policies.Standard, f.Policies.Standard)
		if f.Runs.WorkerConcurrency > 0 {
			cfg.WorkerConcurrency = f.Runs.WorkerConcurrency
		}
		if f.Runs.ScanBatchSize > 0 {
			cfg.ScanBatchSize = f.Runs.ScanBatchSize
		}
		if f.Runs.ErrorAlertThreshold > 0 {
			cfg.ErrorAlertThreshold = f.Runs.ErrorAlertThreshold
		}
		if f.Runs.HistoryLen > 0 {
			cfg.RunHistoryLen = f.Runs.HistoryLen
		}
		if f.Runs.MilestoneIntervalMinutes > 0 {
			cfg.MilestoneInterval = time.Duration(f.Runs.MilestoneIntervalMinutes) * time.Minute
		}
		if f.Runs.ComprehensiveIntervalHours > 0 {
			cfg.ComprehensiveInterval = time.Duration(f.Runs.ComprehensiveIntervalHours) * time.Hour
		}
		cfg.RunOnStart = f.Runs.RunOnStart
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaDomainTopic = envOrDefault("KAFKA_DOMAIN_TOPIC", cfg.KafkaDomainTopic)
	cfg.KafkaOpsTopic = envOrDefault("KAFKA_OPS_TOPIC", cfg.KafkaOpsTopic)
	cfg.KafkaStatsTopic = envOrDefault("KAFKA_STATS_TOPIC", cfg.KafkaStatsTopic)
	cfg.KafkaDLQTopic = envOrDefault("KAFKA_DLQ_TOPIC", cfg.KafkaDLQTopic)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.WorkerConcurrency = envInt("RUN_WORKER_CONCURRENCY", cfg.WorkerConcurrency)
	cfg.ScanBatchSize = envInt("RUN_SCAN_BATCH_SIZE", cfg.ScanBatchSize)
	cfg.ErrorAlertThreshold = envInt("RUN_ERROR_ALERT_THRESHOLD", cfg.ErrorAlertThreshold)
	cfg.RunHistoryLen = envInt("RUN_HISTORY_LEN", cfg.RunHistoryLen)
	cfg.RunOnStart = envBool("RUN_ON_START", cfg.RunOnStart)
	cfg.StoreTimeout = time.Duration(envInt("STORE_TIMEOUT_SECONDS", int(cfg.StoreTimeout.Seconds()))) * time.Second
	cfg.ApprovalNoticeTTL = time.Duration(envInt("APPROVAL_NOTICE_TTL_HOURS", int(cfg.ApprovalNoticeTTL.Hours()))) * time.Hour
	cfg.MilestoneInterval = time.Duration(envInt("MILESTONE_INTERVAL_MINUTES", int(cfg.MilestoneInterval.Minutes()))) * time.Minute
	cfg.ComprehensiveInterval = time.Duration(envInt("COMPREHENSIVE_INTERVAL_MINUTES", int(cfg.ComprehensiveInterval.Minutes()))) * time.Minute

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}

	return cfg, nil
}

func applyPolicy(dst *domain.ReleasePolicy, src *policyFile) {
	if src == nil {
		return
	}
	if src.GracePeriodDays > 0 {
		dst.GracePeriodDays = src.GracePeriodDays
	}
	if src.MaxEscrowDays > 0 {
		dst.MaxEscrowDays = src.MaxEscrowDays
	}
	if src.RequiresApproval != nil {
		dst.RequiresApproval = *src.RequiresApproval
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
