// Package config loads the blurt configuration: hotkey bindings, the
// speech model, the delivery target, and the tuning knobs the rest of the
// program treats as fixed.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses yaml values like "10s" or "500ms"; a bare integer is
// taken as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Binding ties one physical key to a chat prefix.
type Binding struct {
	Key    string `yaml:"key"`
	Label  string `yaml:"label"`
	Prefix string `yaml:"prefix"`
}

type Config struct {
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`

	SampleRate int `yaml:"sample_rate"`

	// TargetProcesses are the executable names that count as "in game"
	// for the focus gate. Only meaningful on Windows.
	TargetProcesses []string `yaml:"target_processes"`
	ChatKey         string   `yaml:"chat_key"`
	AutoSend        bool     `yaml:"auto_send"`

	PollInterval     Duration `yaml:"poll_interval"`
	ReadyTimeout     Duration `yaml:"ready_timeout"`
	StatusResetDelay Duration `yaml:"status_reset_delay"`
	SilenceWarnAfter Duration `yaml:"silence_warn_after"`

	Bindings []Binding `yaml:"bindings"`
}

func Default() Config {
	return Config{
		ModelPath:        "models/ggml-tiny.en.bin",
		Language:         "en",
		SampleRate:       16000,
		TargetProcesses:  []string{"javaw.exe", "java.exe"},
		ChatKey:          "t",
		AutoSend:         true,
		PollInterval:     Duration(10 * time.Millisecond),
		ReadyTimeout:     Duration(30 * time.Second),
		StatusResetDelay: Duration(2 * time.Second),
		SilenceWarnAfter: Duration(8 * time.Second),
		Bindings: []Binding{
			{Key: "G", Label: "Prefix 1", Prefix: "!"},
			{Key: "L", Label: "Prefix 2", Prefix: ""},
			{Key: "P", Label: "Prefix 3", Prefix: "/pc"},
		},
	}
}

// Load reads the config file at path (optional) over the defaults,
// applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLURT_MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("BLURT_LANGUAGE"); v != "" {
		cfg.Language = v
	}
}

func validate(cfg Config) error {
	if cfg.ModelPath == "" {
		return fmt.Errorf("model_path must not be empty")
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", cfg.PollInterval.Std())
	}
	if cfg.ReadyTimeout <= 0 {
		return fmt.Errorf("ready_timeout must be positive, got %s", cfg.ReadyTimeout.Std())
	}
	if len(cfg.Bindings) == 0 {
		return fmt.Errorf("at least one binding is required")
	}
	seen := make(map[string]bool, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		key := strings.ToUpper(strings.TrimSpace(b.Key))
		if key == "" {
			return fmt.Errorf("binding %q has an empty key", b.Label)
		}
		if seen[key] {
			return fmt.Errorf("duplicate binding key %q", b.Key)
		}
		seen[key] = true
	}
	return nil
}
