// Package config loads the orchestrator's merged configuration: defaults
// layered under a configured JSON document, read through viper. Grounded
// on ralph's internal/config/config.go Load/applyDefaults shape, adapted
// from a flat YAML file to the nested JSON manifest spec.md §4.3 defines.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Executor          ExecutorConfig          `mapstructure:"executor"`
	Validation        ValidationConfig        `mapstructure:"validation"`
	RoleOrchestration RoleOrchestrationConfig `mapstructure:"roleOrchestration"`
	Evidence          EvidenceConfig          `mapstructure:"evidence"`
	Logging           LoggingConfig           `mapstructure:"logging"`
}

type ExecutorConfig struct {
	Command                   string `mapstructure:"command"`
	HandoffExitCode           int    `mapstructure:"handoffExitCode"`
	TimeoutSeconds            int    `mapstructure:"timeoutSeconds"`
	ContextThreshold          int    `mapstructure:"contextThreshold"`
	RequireResultPayload      bool   `mapstructure:"requireResultPayload"`
	EnforceRoleModelSelection bool   `mapstructure:"enforceRoleModelSelection"`
}

type ValidationConfig struct {
	Always                       []string       `mapstructure:"always"`
	HostRequired                 []string       `mapstructure:"hostRequired"`
	RequireAlwaysCommands        bool           `mapstructure:"requireAlwaysCommands"`
	RequireHostRequiredCommands  bool           `mapstructure:"requireHostRequiredCommands"`
	TimeoutSeconds               int            `mapstructure:"timeoutSeconds"`
	Host                         HostLaneConfig `mapstructure:"host"`
}

type HostLaneConfig struct {
	Mode  string         `mapstructure:"mode"`
	CI    ProviderConfig `mapstructure:"ci"`
	Local ProviderConfig `mapstructure:"local"`
}

type ProviderConfig struct {
	Command        string `mapstructure:"command"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

type RoleOrchestrationConfig struct {
	Enabled       bool                   `mapstructure:"enabled"`
	RoleProfiles  map[string]RoleProfile `mapstructure:"roleProfiles"`
	Pipelines     PipelinesConfig        `mapstructure:"pipelines"`
	RiskModel     RiskModelConfig        `mapstructure:"riskModel"`
	ApprovalGates ApprovalGatesConfig    `mapstructure:"approvalGates"`
}

type RoleProfile struct {
	Model           string `mapstructure:"model"`
	ReasoningEffort string `mapstructure:"reasoningEffort"`
	SandboxMode     string `mapstructure:"sandboxMode"`
	Instructions    string `mapstructure:"instructions"`
}

type PipelinesConfig struct {
	Low    []string `mapstructure:"low"`
	Medium []string `mapstructure:"medium"`
	High   []string `mapstructure:"high"`
}

type RiskModelConfig struct {
	Thresholds     RiskThresholds `mapstructure:"thresholds"`
	Weights        RiskWeights    `mapstructure:"weights"`
	SensitiveTags  []string       `mapstructure:"sensitiveTags"`
	SensitivePaths []string       `mapstructure:"sensitivePaths"`
}

type RiskThresholds struct {
	Medium int `mapstructure:"medium"`
	High   int `mapstructure:"high"`
}

type RiskWeights struct {
	DeclaredMedium    int `mapstructure:"declaredMedium"`
	DeclaredHigh      int `mapstructure:"declaredHigh"`
	Dependency        int `mapstructure:"dependency"`
	SensitiveTag      int `mapstructure:"sensitiveTag"`
	SensitivePath     int `mapstructure:"sensitivePath"`
	AutonomyFull      int `mapstructure:"autonomyFull"`
	ValidationFailure int `mapstructure:"validationFailure"`
}

type ApprovalGatesConfig struct {
	RequireSecurityOpsForHigh              bool   `mapstructure:"requireSecurityOpsForHigh"`
	RequireSecurityOpsForMediumIfSensitive bool   `mapstructure:"requireSecurityOpsForMediumIfSensitive"`
	SecurityApprovalMetadataField          string `mapstructure:"securityApprovalMetadataField"`
}

type EvidenceConfig struct {
	Compaction EvidenceCompactionConfig `mapstructure:"compaction"`
	Lifecycle  EvidenceLifecycleConfig  `mapstructure:"lifecycle"`
}

type EvidenceCompactionConfig struct {
	Mode          string `mapstructure:"mode"`
	MaxReferences int    `mapstructure:"maxReferences"`
}

type EvidenceLifecycleConfig struct {
	TrackMode         string `mapstructure:"trackMode"`
	DedupMode         string `mapstructure:"dedupMode"`
	PruneOnComplete   bool   `mapstructure:"pruneOnComplete"`
	KeepMaxPerBlocker int    `mapstructure:"keepMaxPerBlocker"`
}

type LoggingConfig struct {
	Output           string `mapstructure:"output"`
	FailureTailLines int    `mapstructure:"failureTailLines"`
	HeartbeatSeconds int    `mapstructure:"heartbeatSeconds"`
	StallWarnSeconds int    `mapstructure:"stallWarnSeconds"`
}

// Load reads configPath as JSON through viper and layers defaults over
// whatever it doesn't set, mirroring ralph's Load/applyDefaults pairing.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// DefaultConfig returns the configuration with every spec.md §4.3 default
// applied and no executor command set.
func DefaultConfig() *Config {
	return &Config{
		Executor: ExecutorConfig{
			HandoffExitCode:           75,
			TimeoutSeconds:            1800,
			ContextThreshold:          10000,
			RequireResultPayload:      true,
			EnforceRoleModelSelection: true,
		},
		Validation: ValidationConfig{
			RequireAlwaysCommands:       true,
			RequireHostRequiredCommands: true,
			Host: HostLaneConfig{
				Mode: "local",
			},
		},
		RoleOrchestration: RoleOrchestrationConfig{
			Enabled: true,
			Pipelines: PipelinesConfig{
				Low:    []string{"worker"},
				Medium: []string{"planner", "worker", "reviewer"},
				High:   []string{"planner", "explorer", "worker", "reviewer"},
			},
			RiskModel: RiskModelConfig{
				Thresholds: RiskThresholds{Medium: 3, High: 6},
				Weights: RiskWeights{
					DeclaredMedium:    2,
					DeclaredHigh:      4,
					Dependency:        1,
					SensitiveTag:      2,
					SensitivePath:     2,
					AutonomyFull:      1,
					ValidationFailure: 2,
				},
			},
			ApprovalGates: ApprovalGatesConfig{
				RequireSecurityOpsForHigh:              true,
				RequireSecurityOpsForMediumIfSensitive: true,
				SecurityApprovalMetadataField:          "Security-Approval",
			},
		},
		Evidence: EvidenceConfig{
			Compaction: EvidenceCompactionConfig{
				Mode:          "compact-index",
				MaxReferences: 25,
			},
			Lifecycle: EvidenceLifecycleConfig{
				TrackMode:         "curated",
				DedupMode:         "strict-upsert",
				PruneOnComplete:   true,
				KeepMaxPerBlocker: 1,
			},
		},
		Logging: LoggingConfig{
			Output:           "pretty",
			FailureTailLines: 40,
			HeartbeatSeconds: 30,
			StallWarnSeconds: 120,
		},
	}
}

// applyDefaults fills in every zero-valued knob from DefaultConfig, so a
// partially specified JSON document is still fully resolved. Mirrors
// ralph's applyDefaults field-by-field style.
func applyDefaults(cfg *Config) {
	d := DefaultConfig()

	if cfg.Executor.HandoffExitCode == 0 {
		cfg.Executor.HandoffExitCode = d.Executor.HandoffExitCode
	}
	if cfg.Executor.TimeoutSeconds == 0 {
		cfg.Executor.TimeoutSeconds = d.Executor.TimeoutSeconds
	}
	if cfg.Executor.ContextThreshold == 0 {
		cfg.Executor.ContextThreshold = d.Executor.ContextThreshold
	}

	if cfg.Validation.Host.Mode == "" {
		cfg.Validation.Host.Mode = d.Validation.Host.Mode
	}

	if len(cfg.RoleOrchestration.Pipelines.Low) == 0 {
		cfg.RoleOrchestration.Pipelines.Low = d.RoleOrchestration.Pipelines.Low
	}
	if len(cfg.RoleOrchestration.Pipelines.Medium) == 0 {
		cfg.RoleOrchestration.Pipelines.Medium = d.RoleOrchestration.Pipelines.Medium
	}
	if len(cfg.RoleOrchestration.Pipelines.High) == 0 {
		cfg.RoleOrchestration.Pipelines.High = d.RoleOrchestration.Pipelines.High
	}
	if cfg.RoleOrchestration.RiskModel.Thresholds.Medium == 0 {
		cfg.RoleOrchestration.RiskModel.Thresholds.Medium = d.RoleOrchestration.RiskModel.Thresholds.Medium
	}
	if cfg.RoleOrchestration.RiskModel.Thresholds.High == 0 {
		cfg.RoleOrchestration.RiskModel.Thresholds.High = d.RoleOrchestration.RiskModel.Thresholds.High
	}
	w := &cfg.RoleOrchestration.RiskModel.Weights
	dw := d.RoleOrchestration.RiskModel.Weights
	if w.DeclaredMedium == 0 {
		w.DeclaredMedium = dw.DeclaredMedium
	}
	if w.DeclaredHigh == 0 {
		w.DeclaredHigh = dw.DeclaredHigh
	}
	if w.Dependency == 0 {
		w.Dependency = dw.Dependency
	}
	if w.SensitiveTag == 0 {
		w.SensitiveTag = dw.SensitiveTag
	}
	if w.SensitivePath == 0 {
		w.SensitivePath = dw.SensitivePath
	}
	if w.AutonomyFull == 0 {
		w.AutonomyFull = dw.AutonomyFull
	}
	if w.ValidationFailure == 0 {
		w.ValidationFailure = dw.ValidationFailure
	}
	if cfg.RoleOrchestration.ApprovalGates.SecurityApprovalMetadataField == "" {
		cfg.RoleOrchestration.ApprovalGates.SecurityApprovalMetadataField = d.RoleOrchestration.ApprovalGates.SecurityApprovalMetadataField
	}

	if cfg.Evidence.Compaction.Mode == "" {
		cfg.Evidence.Compaction.Mode = d.Evidence.Compaction.Mode
	}
	if cfg.Evidence.Compaction.MaxReferences == 0 {
		cfg.Evidence.Compaction.MaxReferences = d.Evidence.Compaction.MaxReferences
	}
	if cfg.Evidence.Lifecycle.TrackMode == "" {
		cfg.Evidence.Lifecycle.TrackMode = d.Evidence.Lifecycle.TrackMode
	}
	if cfg.Evidence.Lifecycle.DedupMode == "" {
		cfg.Evidence.Lifecycle.DedupMode = d.Evidence.Lifecycle.DedupMode
	}
	if cfg.Evidence.Lifecycle.KeepMaxPerBlocker == 0 {
		cfg.Evidence.Lifecycle.KeepMaxPerBlocker = d.Evidence.Lifecycle.KeepMaxPerBlocker
	}

	if cfg.Logging.Output == "" {
		cfg.Logging.Output = d.Logging.Output
	}
	if cfg.Logging.FailureTailLines == 0 {
		cfg.Logging.FailureTailLines = d.Logging.FailureTailLines
	}
	if cfg.Logging.HeartbeatSeconds == 0 {
		cfg.Logging.HeartbeatSeconds = d.Logging.HeartbeatSeconds
	}
	if cfg.Logging.StallWarnSeconds == 0 {
		cfg.Logging.StallWarnSeconds = d.Logging.StallWarnSeconds
	}
}
