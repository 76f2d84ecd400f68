package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tool != "amp" {
		t.Errorf("Tool = %q, want %q", cfg.Tool, "amp")
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.MaxIterations)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogDir != ".drover/logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, ".drover/logs")
	}
	if !cfg.Budget.Enabled {
		t.Error("Budget.Enabled = false, want true")
	}
	if cfg.Budget.MaxAttempts != 10 {
		t.Errorf("Budget.MaxAttempts = %d, want 10", cfg.Budget.MaxAttempts)
	}
	if cfg.Budget.BudgetLimit != 100.0 {
		t.Errorf("Budget.BudgetLimit = %v, want 100.0", cfg.Budget.BudgetLimit)
	}
	if cfg.Budget.CostPerAttempt != 10.0 {
		t.Errorf("Budget.CostPerAttempt = %v, want 10.0", cfg.Budget.CostPerAttempt)
	}
	if cfg.Budget.AllowOverflow {
		t.Error("Budget.AllowOverflow = true, want false")
	}
	if cfg.Codex.Model != "gpt-5-codex" {
		t.Errorf("Codex.Model = %q, want %q", cfg.Codex.Model, "gpt-5-codex")
	}
	if cfg.Codex.ReasoningEffort != "high" {
		t.Errorf("Codex.ReasoningEffort = %q, want %q", cfg.Codex.ReasoningEffort, "high")
	}
	if cfg.Codex.Sandbox != "workspace-write" {
		t.Errorf("Codex.Sandbox = %q, want %q", cfg.Codex.Sandbox, "workspace-write")
	}
	if !cfg.Codex.FullAuto {
		t.Error("Codex.FullAuto = false, want true")
	}
	if cfg.Opencode.Model != "gpt-4" {
		t.Errorf("Opencode.Model = %q, want %q", cfg.Opencode.Model, "gpt-4")
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, DefaultFileName)

	configContent := `tool: codex
max_iterations: 25
log_level: debug
log_dir: /tmp/drover-logs
budget:
  enabled: true
  max_attempts: 5
  budget_limit: 50.0
  cost_per_attempt: 2.5
  allow_overflow: true
codex:
  model: o3
  reasoning_effort: medium
  sandbox: read-only
  full_auto: false
  extra_args: "--profile ci"
opencode:
  model: claude-sonnet
  extra_args: "--quiet"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Tool != "codex" {
		t.Errorf("Tool = %q, want %q", cfg.Tool, "codex")
	}
	if cfg.MaxIterations != 25 {
		t.Errorf("MaxIterations = %d, want 25", cfg.MaxIterations)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogDir != "/tmp/drover-logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/tmp/drover-logs")
	}
	if cfg.Budget.MaxAttempts != 5 {
		t.Errorf("Budget.MaxAttempts = %d, want 5", cfg.Budget.MaxAttempts)
	}
	if cfg.Budget.BudgetLimit != 50.0 {
		t.Errorf("Budget.BudgetLimit = %v, want 50.0", cfg.Budget.BudgetLimit)
	}
	if cfg.Budget.CostPerAttempt != 2.5 {
		t.Errorf("Budget.CostPerAttempt = %v, want 2.5", cfg.Budget.CostPerAttempt)
	}
	if !cfg.Budget.AllowOverflow {
		t.Error("Budget.AllowOverflow = false, want true")
	}
	if cfg.Codex.Model != "o3" {
		t.Errorf("Codex.Model = %q, want %q", cfg.Codex.Model, "o3")
	}
	if cfg.Codex.ReasoningEffort != "medium" {
		t.Errorf("Codex.ReasoningEffort = %q, want %q", cfg.Codex.ReasoningEffort, "medium")
	}
	if cfg.Codex.Sandbox != "read-only" {
		t.Errorf("Codex.Sandbox = %q, want %q", cfg.Codex.Sandbox, "read-only")
	}
	if cfg.Codex.FullAuto {
		t.Error("Codex.FullAuto = true, want false")
	}
	if cfg.Codex.ExtraArgs != "--profile ci" {
		t.Errorf("Codex.ExtraArgs = %q, want %q", cfg.Codex.ExtraArgs, "--profile ci")
	}
	if cfg.Opencode.Model != "claude-sonnet" {
		t.Errorf("Opencode.Model = %q, want %q", cfg.Opencode.Model, "claude-sonnet")
	}
	if cfg.Opencode.ExtraArgs != "--quiet" {
		t.Errorf("Opencode.ExtraArgs = %q, want %q", cfg.Opencode.ExtraArgs, "--quiet")
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/.drover.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}

	// Should return default config
	if cfg.Tool != "amp" {
		t.Errorf("Tool = %q, want %q (default)", cfg.Tool, "amp")
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10 (default)", cfg.MaxIterations)
	}
}

// TestLoadConfigInvalidYAML tests error handling for malformed YAML
func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, DefaultFileName)

	invalidYAML := `
tool: codex
max_iterations: [this is not valid
log_level: debug
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("LoadConfig() expected error for invalid YAML, got nil")
	}
}

// TestLoadConfigPartialValues tests that partial config merges with defaults
func TestLoadConfigPartialValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, DefaultFileName)

	// Only set some values
	configContent := `tool: claude
log_level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	// Check set values
	if cfg.Tool != "claude" {
		t.Errorf("Tool = %q, want %q", cfg.Tool, "claude")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}

	// Check default values for unset fields
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10 (default)", cfg.MaxIterations)
	}
	if cfg.LogDir != ".drover/logs" {
		t.Errorf("LogDir = %q, want %q (default)", cfg.LogDir, ".drover/logs")
	}
	if cfg.Budget.MaxAttempts != 10 {
		t.Errorf("Budget.MaxAttempts = %d, want 10 (default)", cfg.Budget.MaxAttempts)
	}
}

// TestLoadConfigPartialNestedSection tests that a sparse nested section only
// overrides the keys it names, including explicit false values
func TestLoadConfigPartialNestedSection(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, DefaultFileName)

	configContent := `budget:
  enabled: false
  budget_limit: 20.0
codex:
  model: o4-mini
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	// Explicit false must survive the merge
	if cfg.Budget.Enabled {
		t.Error("Budget.Enabled = true, want false (explicit)")
	}
	if cfg.Budget.BudgetLimit != 20.0 {
		t.Errorf("Budget.BudgetLimit = %v, want 20.0", cfg.Budget.BudgetLimit)
	}

	// Keys the section omits keep their defaults
	if cfg.Budget.MaxAttempts != 10 {
		t.Errorf("Budget.MaxAttempts = %d, want 10 (default)", cfg.Budget.MaxAttempts)
	}
	if cfg.Budget.CostPerAttempt != 10.0 {
		t.Errorf("Budget.CostPerAttempt = %v, want 10.0 (default)", cfg.Budget.CostPerAttempt)
	}
	if cfg.Codex.Model != "o4-mini" {
		t.Errorf("Codex.Model = %q, want %q", cfg.Codex.Model, "o4-mini")
	}
	if cfg.Codex.ReasoningEffort != "high" {
		t.Errorf("Codex.ReasoningEffort = %q, want %q (default)", cfg.Codex.ReasoningEffort, "high")
	}
	if !cfg.Codex.FullAuto {
		t.Error("Codex.FullAuto = false, want true (default)")
	}
}

// TestLoadConfigFromDir tests loading config from .drover.yaml in a directory
func TestLoadConfigFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, DefaultFileName)

	configContent := `tool: opencode
max_iterations: 3
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfigFromDir(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}

	if cfg.Tool != "opencode" {
		t.Errorf("Tool = %q, want %q", cfg.Tool, "opencode")
	}
	if cfg.MaxIterations != 3 {
		t.Errorf("MaxIterations = %d, want 3", cfg.MaxIterations)
	}
}

// TestLoadConfigFromDirNotExists tests loading when .drover.yaml doesn't exist
func TestLoadConfigFromDirNotExists(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadConfigFromDir(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() should not error on missing config, got: %v", err)
	}

	// Should return defaults
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q (default)", cfg.LogLevel, "info")
	}
}

// TestLoadFromEnv tests environment variable overlay
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DROVER_MAX_ATTEMPTS", "7")
	t.Setenv("DROVER_BUDGET_LIMIT", "42.5")
	t.Setenv("DROVER_COST_PER_ATTEMPT", "1.25")
	t.Setenv("CODEX_PROMPT_FILE", "AGENTS.md")
	t.Setenv("CODEX_MODEL", "o3")
	t.Setenv("CODEX_REASONING_EFFORT", "low")
	t.Setenv("CODEX_SANDBOX", "read-only")
	t.Setenv("CODEX_EXTRA_ARGS", "--profile ci")
	t.Setenv("OPENCODE_MODEL", "claude-sonnet")
	t.Setenv("OPENCODE_EXTRA_ARGS", "--quiet")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Budget.MaxAttempts != 7 {
		t.Errorf("Budget.MaxAttempts = %d, want 7", cfg.Budget.MaxAttempts)
	}
	if cfg.Budget.BudgetLimit != 42.5 {
		t.Errorf("Budget.BudgetLimit = %v, want 42.5", cfg.Budget.BudgetLimit)
	}
	if cfg.Budget.CostPerAttempt != 1.25 {
		t.Errorf("Budget.CostPerAttempt = %v, want 1.25", cfg.Budget.CostPerAttempt)
	}
	if cfg.Codex.PromptFile != "AGENTS.md" {
		t.Errorf("Codex.PromptFile = %q, want %q", cfg.Codex.PromptFile, "AGENTS.md")
	}
	if cfg.Codex.Model != "o3" {
		t.Errorf("Codex.Model = %q, want %q", cfg.Codex.Model, "o3")
	}
	if cfg.Codex.ReasoningEffort != "low" {
		t.Errorf("Codex.ReasoningEffort = %q, want %q", cfg.Codex.ReasoningEffort, "low")
	}
	if cfg.Codex.Sandbox != "read-only" {
		t.Errorf("Codex.Sandbox = %q, want %q", cfg.Codex.Sandbox, "read-only")
	}
	if cfg.Codex.ExtraArgs != "--profile ci" {
		t.Errorf("Codex.ExtraArgs = %q, want %q", cfg.Codex.ExtraArgs, "--profile ci")
	}
	if cfg.Opencode.Model != "claude-sonnet" {
		t.Errorf("Opencode.Model = %q, want %q", cfg.Opencode.Model, "claude-sonnet")
	}
	if cfg.Opencode.ExtraArgs != "--quiet" {
		t.Errorf("Opencode.ExtraArgs = %q, want %q", cfg.Opencode.ExtraArgs, "--quiet")
	}
}

// TestLoadFromEnvUnsetLeavesDefaults tests that unset variables change nothing
func TestLoadFromEnvUnsetLeavesDefaults(t *testing.T) {
	// Guard against ambient values leaking into the test
	for _, key := range []string{
		"DROVER_MAX_ATTEMPTS", "DROVER_BUDGET_LIMIT", "DROVER_COST_PER_ATTEMPT",
		"CODEX_PROMPT_FILE", "CODEX_MODEL", "CODEX_REASONING_EFFORT",
		"CODEX_SANDBOX", "CODEX_FULL_AUTO", "CODEX_EXTRA_ARGS",
		"OPENCODE_MODEL", "OPENCODE_EXTRA_ARGS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("LoadFromEnv() with no variables set = %+v, want defaults %+v", cfg, want)
	}
}

// TestLoadFromEnvInvalidNumbers tests error handling for malformed numeric values
func TestLoadFromEnvInvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "max attempts not an int", key: "DROVER_MAX_ATTEMPTS", value: "ten"},
		{name: "budget limit not a float", key: "DROVER_BUDGET_LIMIT", value: "lots"},
		{name: "cost per attempt not a float", key: "DROVER_COST_PER_ATTEMPT", value: "cheap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg := DefaultConfig()
			err := cfg.LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() expected error for %s=%q, got nil", tt.key, tt.value)
			}
		})
	}
}

// TestLoadFromEnvFullAuto tests the CODEX_FULL_AUTO boolean parsing
func TestLoadFromEnvFullAuto(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "lowercase true", value: "true", want: true},
		{name: "uppercase true", value: "TRUE", want: true},
		{name: "mixed case", value: "True", want: true},
		{name: "false", value: "false", want: false},
		{name: "numeric one is not true", value: "1", want: false},
		{name: "empty but set", value: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CODEX_FULL_AUTO", tt.value)

			cfg := DefaultConfig()
			if err := cfg.LoadFromEnv(); err != nil {
				t.Fatalf("LoadFromEnv() error = %v", err)
			}
			if cfg.Codex.FullAuto != tt.want {
				t.Errorf("Codex.FullAuto = %v, want %v for CODEX_FULL_AUTO=%q", cfg.Codex.FullAuto, tt.want, tt.value)
			}
		})
	}
}

// TestMergeWithFlags tests CLI flag precedence over config values
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	tool := "codex"
	maxIterations := 50
	logLevel := "trace"
	noBudget := true

	cfg.MergeWithFlags(&tool, &maxIterations, &logLevel, &noBudget)

	if cfg.Tool != "codex" {
		t.Errorf("Tool = %q, want %q", cfg.Tool, "codex")
	}
	if cfg.MaxIterations != 50 {
		t.Errorf("MaxIterations = %d, want 50", cfg.MaxIterations)
	}
	if cfg.LogLevel != "trace" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "trace")
	}
	if cfg.Budget.Enabled {
		t.Error("Budget.Enabled = true, want false after --no-budget")
	}
}

// TestMergeWithFlagsPartial tests that only non-nil flags override config
func TestMergeWithFlagsPartial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tool = "claude"
	cfg.MaxIterations = 20

	maxIterations := 5

	cfg.MergeWithFlags(nil, &maxIterations, nil, nil)

	if cfg.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", cfg.MaxIterations)
	}

	// Verify original values preserved
	if cfg.Tool != "claude" {
		t.Errorf("Tool = %q, want %q (original)", cfg.Tool, "claude")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q (original)", cfg.LogLevel, "info")
	}
	if !cfg.Budget.Enabled {
		t.Error("Budget.Enabled = false, want true (original)")
	}
}

// TestMergeWithFlagsNil tests that nil flags don't override config
func TestMergeWithFlagsNil(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeWithFlags(nil, nil, nil, nil)

	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("MergeWithFlags(nil, nil, nil, nil) = %+v, want unchanged defaults %+v", cfg, want)
	}
}

// TestConfigValidation tests validation of config values
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{
			name:      "valid defaults",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "unknown tool",
			mutate:    func(c *Config) { c.Tool = "cursor" },
			wantError: true,
		},
		{
			name:      "empty tool",
			mutate:    func(c *Config) { c.Tool = "" },
			wantError: true,
		},
		{
			name:      "zero max_iterations",
			mutate:    func(c *Config) { c.MaxIterations = 0 },
			wantError: true,
		},
		{
			name:      "negative max_iterations",
			mutate:    func(c *Config) { c.MaxIterations = -1 },
			wantError: true,
		},
		{
			name:      "invalid log_level",
			mutate:    func(c *Config) { c.LogLevel = "verbose" },
			wantError: true,
		},
		{
			name:      "uppercase log_level",
			mutate:    func(c *Config) { c.LogLevel = "INFO" },
			wantError: true,
		},
		{
			name:      "zero budget max_attempts",
			mutate:    func(c *Config) { c.Budget.MaxAttempts = 0 },
			wantError: true,
		},
		{
			name:      "negative budget_limit",
			mutate:    func(c *Config) { c.Budget.BudgetLimit = -1 },
			wantError: true,
		},
		{
			name:      "negative cost_per_attempt",
			mutate:    func(c *Config) { c.Budget.CostPerAttempt = -0.5 },
			wantError: true,
		},
		{
			name: "disabled budget skips budget checks",
			mutate: func(c *Config) {
				c.Budget.Enabled = false
				c.Budget.MaxAttempts = 0
				c.Budget.BudgetLimit = -1
			},
			wantError: false,
		},
		{
			name: "codex tool requires model",
			mutate: func(c *Config) {
				c.Tool = "codex"
				c.Codex.Model = ""
			},
			wantError: true,
		},
		{
			name: "codex tool rejects unknown sandbox",
			mutate: func(c *Config) {
				c.Tool = "codex"
				c.Codex.Sandbox = "yolo"
			},
			wantError: true,
		},
		{
			name:      "codex defaults are valid",
			mutate:    func(c *Config) { c.Tool = "codex" },
			wantError: false,
		},
		{
			name: "opencode tool requires model",
			mutate: func(c *Config) {
				c.Tool = "opencode"
				c.Opencode.Model = ""
			},
			wantError: true,
		},
		{
			name: "empty codex model ignored for other tools",
			mutate: func(c *Config) {
				c.Tool = "amp"
				c.Codex.Model = ""
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

// TestValidLogLevels tests that valid log levels are accepted
func TestValidLogLevels(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error"}

	for _, level := range validLevels {
		t.Run(level, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = level

			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v for valid level %q", err, level)
			}
		})
	}
}

// TestEmptyConfigFile tests loading an empty config file
func TestEmptyConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, DefaultFileName)

	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	// Should return defaults for empty file
	if cfg.Tool != "amp" {
		t.Errorf("Tool = %q, want %q (default)", cfg.Tool, "amp")
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10 (default)", cfg.MaxIterations)
	}
}

// TestConfigWithComments tests loading config with YAML comments
func TestConfigWithComments(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, DefaultFileName)

	configContent := `# This is a comment
tool: claude  # inline comment
# Another comment
max_iterations: 4
log_level: debug  # set to debug for troubleshooting
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Tool != "claude" {
		t.Errorf("Tool = %q, want %q", cfg.Tool, "claude")
	}
	if cfg.MaxIterations != 4 {
		t.Errorf("MaxIterations = %d, want 4", cfg.MaxIterations)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}
