package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file drover looks for in the work directory.
const DefaultFileName = ".drover.yaml"

// BudgetConfig configures the budget guardian.
type BudgetConfig struct {
	// Enabled turns the guardian on; --no-budget flips it off
	Enabled bool `yaml:"enabled"`

	// MaxAttempts is the attempt ceiling per run
	MaxAttempts int `yaml:"max_attempts"`

	// BudgetLimit is the cumulative cost ceiling per run
	BudgetLimit float64 `yaml:"budget_limit"`

	// CostPerAttempt is the default charge per authorized attempt
	CostPerAttempt float64 `yaml:"cost_per_attempt"`

	// AllowOverflow lets attempts proceed past the budget limit
	AllowOverflow bool `yaml:"allow_overflow"`
}

// CodexConfig configures the codex backend.
type CodexConfig struct {
	// PromptFile is exported to the child as CODEX_PROMPT_FILE; empty means
	// CLAUDE.md in the work directory
	PromptFile string `yaml:"prompt_file"`

	// Model is passed to codex exec -m
	Model string `yaml:"model"`

	// ReasoningEffort is passed via --config model_reasoning_effort
	ReasoningEffort string `yaml:"reasoning_effort"`

	// Sandbox is passed to --sandbox
	Sandbox string `yaml:"sandbox"`

	// FullAuto is exported to the child as CODEX_FULL_AUTO
	FullAuto bool `yaml:"full_auto"`

	// ExtraArgs is a whitespace-separated string appended to the argv
	ExtraArgs string `yaml:"extra_args"`
}

// OpencodeConfig configures the opencode backend.
type OpencodeConfig struct {
	// Model is passed to opencode --model
	Model string `yaml:"model"`

	// ExtraArgs is a whitespace-separated string appended to the argv
	ExtraArgs string `yaml:"extra_args"`
}

// Config represents drover configuration options
type Config struct {
	// Tool selects the agent CLI backend (amp, claude, codex, opencode)
	Tool string `yaml:"tool"`

	// MaxIterations caps loop iterations per run
	MaxIterations int `yaml:"max_iterations"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written
	LogDir string `yaml:"log_dir"`

	// Budget contains budget guardian configuration
	Budget BudgetConfig `yaml:"budget"`

	// Codex contains codex backend configuration
	Codex CodexConfig `yaml:"codex"`

	// Opencode contains opencode backend configuration
	Opencode OpencodeConfig `yaml:"opencode"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Tool:          "amp",
		MaxIterations: 10,
		LogLevel:      "info",
		LogDir:        ".drover/logs",
		Budget: BudgetConfig{
			Enabled:        true,
			MaxAttempts:    10,
			BudgetLimit:    100.0,
			CostPerAttempt: 10.0,
			AllowOverflow:  false,
		},
		Codex: CodexConfig{
			Model:           "gpt-5-codex",
			ReasoningEffort: "high",
			Sandbox:         "workspace-write",
			FullAuto:        true,
		},
		Opencode: OpencodeConfig{
			Model: "gpt-4",
		},
	}
}

// yamlConfig mirrors Config with pointer fields so keys absent from the
// file are distinguishable from explicit zero values when merging over
// the defaults.
type yamlConfig struct {
	Tool          *string       `yaml:"tool"`
	MaxIterations *int          `yaml:"max_iterations"`
	LogLevel      *string       `yaml:"log_level"`
	LogDir        *string       `yaml:"log_dir"`
	Budget        *yamlBudget   `yaml:"budget"`
	Codex         *yamlCodex    `yaml:"codex"`
	Opencode      *yamlOpencode `yaml:"opencode"`
}

type yamlBudget struct {
	Enabled        *bool    `yaml:"enabled"`
	MaxAttempts    *int     `yaml:"max_attempts"`
	BudgetLimit    *float64 `yaml:"budget_limit"`
	CostPerAttempt *float64 `yaml:"cost_per_attempt"`
	AllowOverflow  *bool    `yaml:"allow_overflow"`
}

type yamlCodex struct {
	PromptFile      *string `yaml:"prompt_file"`
	Model           *string `yaml:"model"`
	ReasoningEffort *string `yaml:"reasoning_effort"`
	Sandbox         *string `yaml:"sandbox"`
	FullAuto        *bool   `yaml:"full_auto"`
	ExtraArgs       *string `yaml:"extra_args"`
}

type yamlOpencode struct {
	Model     *string `yaml:"model"`
	ExtraArgs *string `yaml:"extra_args"`
}

// LoadConfig loads configuration from the specified file path.
// A missing file returns default configuration without error; a malformed
// file returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply only the values the file provides.
	if yamlCfg.Tool != nil {
		cfg.Tool = *yamlCfg.Tool
	}
	if yamlCfg.MaxIterations != nil {
		cfg.MaxIterations = *yamlCfg.MaxIterations
	}
	if yamlCfg.LogLevel != nil {
		cfg.LogLevel = *yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != nil {
		cfg.LogDir = *yamlCfg.LogDir
	}

	if b := yamlCfg.Budget; b != nil {
		if b.Enabled != nil {
			cfg.Budget.Enabled = *b.Enabled
		}
		if b.MaxAttempts != nil {
			cfg.Budget.MaxAttempts = *b.MaxAttempts
		}
		if b.BudgetLimit != nil {
			cfg.Budget.BudgetLimit = *b.BudgetLimit
		}
		if b.CostPerAttempt != nil {
			cfg.Budget.CostPerAttempt = *b.CostPerAttempt
		}
		if b.AllowOverflow != nil {
			cfg.Budget.AllowOverflow = *b.AllowOverflow
		}
	}

	if cx := yamlCfg.Codex; cx != nil {
		if cx.PromptFile != nil {
			cfg.Codex.PromptFile = *cx.PromptFile
		}
		if cx.Model != nil {
			cfg.Codex.Model = *cx.Model
		}
		if cx.ReasoningEffort != nil {
			cfg.Codex.ReasoningEffort = *cx.ReasoningEffort
		}
		if cx.Sandbox != nil {
			cfg.Codex.Sandbox = *cx.Sandbox
		}
		if cx.FullAuto != nil {
			cfg.Codex.FullAuto = *cx.FullAuto
		}
		if cx.ExtraArgs != nil {
			cfg.Codex.ExtraArgs = *cx.ExtraArgs
		}
	}

	if oc := yamlCfg.Opencode; oc != nil {
		if oc.Model != nil {
			cfg.Opencode.Model = *oc.Model
		}
		if oc.ExtraArgs != nil {
			cfg.Opencode.ExtraArgs = *oc.ExtraArgs
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .drover.yaml in the specified
// directory. A missing file returns default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DefaultFileName))
}

// LoadFromEnv overlays environment variables onto the configuration.
// Unset and empty variables leave the current values alone; malformed
// numeric values are an error.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("DROVER_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DROVER_MAX_ATTEMPTS %q: %w", v, err)
		}
		c.Budget.MaxAttempts = n
	}
	if v := os.Getenv("DROVER_BUDGET_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DROVER_BUDGET_LIMIT %q: %w", v, err)
		}
		c.Budget.BudgetLimit = f
	}
	if v := os.Getenv("DROVER_COST_PER_ATTEMPT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DROVER_COST_PER_ATTEMPT %q: %w", v, err)
		}
		c.Budget.CostPerAttempt = f
	}

	if v := os.Getenv("CODEX_PROMPT_FILE"); v != "" {
		c.Codex.PromptFile = v
	}
	if v := os.Getenv("CODEX_MODEL"); v != "" {
		c.Codex.Model = v
	}
	if v := os.Getenv("CODEX_REASONING_EFFORT"); v != "" {
		c.Codex.ReasoningEffort = v
	}
	if v := os.Getenv("CODEX_SANDBOX"); v != "" {
		c.Codex.Sandbox = v
	}
	if v, ok := os.LookupEnv("CODEX_FULL_AUTO"); ok {
		c.Codex.FullAuto = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("CODEX_EXTRA_ARGS"); v != "" {
		c.Codex.ExtraArgs = v
	}

	if v := os.Getenv("OPENCODE_MODEL"); v != "" {
		c.Opencode.Model = v
	}
	if v := os.Getenv("OPENCODE_EXTRA_ARGS"); v != "" {
		c.Opencode.ExtraArgs = v
	}

	return nil
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values, so CLI flags take
// precedence over environment and file settings.
func (c *Config) MergeWithFlags(tool *string, maxIterations *int, logLevel *string, noBudget *bool) {
	if tool != nil {
		c.Tool = *tool
	}
	if maxIterations != nil {
		c.MaxIterations = *maxIterations
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if noBudget != nil {
		c.Budget.Enabled = !*noBudget
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validTools := map[string]bool{
		"amp":      true,
		"claude":   true,
		"codex":    true,
		"opencode": true,
	}
	if !validTools[c.Tool] {
		return fmt.Errorf("invalid tool %q, must be one of: amp, claude, codex, opencode", c.Tool)
	}

	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be > 0, got %d", c.MaxIterations)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Budget.Enabled {
		if c.Budget.MaxAttempts <= 0 {
			return fmt.Errorf("budget.max_attempts must be > 0, got %d", c.Budget.MaxAttempts)
		}
		if c.Budget.BudgetLimit < 0 {
			return fmt.Errorf("budget.budget_limit must be >= 0, got %v", c.Budget.BudgetLimit)
		}
		if c.Budget.CostPerAttempt < 0 {
			return fmt.Errorf("budget.cost_per_attempt must be >= 0, got %v", c.Budget.CostPerAttempt)
		}
	}

	if c.Tool == "codex" {
		if c.Codex.Model == "" {
			return fmt.Errorf("codex.model cannot be empty when tool is codex")
		}
		validSandboxes := map[string]bool{
			"read-only":          true,
			"workspace-write":    true,
			"danger-full-access": true,
		}
		if !validSandboxes[c.Codex.Sandbox] {
			return fmt.Errorf("invalid codex.sandbox %q, must be one of: read-only, workspace-write, danger-full-access", c.Codex.Sandbox)
		}
	}

	if c.Tool == "opencode" && c.Opencode.Model == "" {
		return fmt.Errorf("opencode.model cannot be empty when tool is opencode")
	}

	return nil
}
