package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"esthersim/internal/esther"
)

const (
	FileName = "esthersim.yml"

	StagingRetain          = "retain"
	StagingRemoveOnSuccess = "remove_on_success"
)

type Config struct {
	Tool      ToolConfig      `yaml:"tool"`
	Runner    RunnerConfig    `yaml:"runner"`
	Converter ConverterConfig `yaml:"converter"`
	Staging   string          `yaml:"staging"`
}

// ToolConfig overrides the directory names below ESTHER_ESTHER. The root itself
// always comes from the environment.
type ToolConfig struct {
	InputSubdir    string `yaml:"input_subdir"`
	Namespace      string `yaml:"namespace"`
	OutputSubdir   string `yaml:"output_subdir"`
	OutputRunDir   string `yaml:"output_run_dir"`
	OutputStockDir string `yaml:"output_stock_dir"`
}

type RunnerConfig struct {
	Command   []string `yaml:"command"`
	ForceFlag string   `yaml:"force_flag"`
}

type ConverterConfig struct {
	Command []string `yaml:"command"`
}

func Default() *Config {
	return &Config{
		Tool: ToolConfig{
			InputSubdir:    esther.DefaultInputSubdir,
			Namespace:      esther.DefaultNamespace,
			OutputSubdir:   esther.DefaultOutputSubdir,
			OutputRunDir:   esther.DefaultOutputRunDir,
			OutputStockDir: esther.DefaultOutputStockDir,
		},
		Runner: RunnerConfig{
			Command:   []string{"{root}/esth", "{deck}"},
			ForceFlag: "--forcer-passage",
		},
		Converter: ConverterConfig{
			Command: []string{"hydro_txt_to_opmd", "{dir}"},
		},
		Staging: StagingRetain,
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional behaves like Load but returns the defaults when path does not exist.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Write stores cfg as YAML at path.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Staging {
	case StagingRetain, StagingRemoveOnSuccess:
	default:
		return fmt.Errorf("unknown staging policy %q", c.Staging)
	}
	if len(c.Runner.Command) == 0 || strings.TrimSpace(c.Runner.Command[0]) == "" {
		return fmt.Errorf("runner.command is required")
	}
	if len(c.Converter.Command) == 0 || strings.TrimSpace(c.Converter.Command[0]) == "" {
		return fmt.Errorf("converter.command is required")
	}
	return nil
}

// Layout combines the configured directory names with an installation root.
func (c *Config) Layout(root string) esther.Layout {
	layout := esther.DefaultLayout(root)
	if c.Tool.InputSubdir != "" {
		layout.InputSubdir = c.Tool.InputSubdir
	}
	if c.Tool.Namespace != "" {
		layout.Namespace = c.Tool.Namespace
	}
	if c.Tool.OutputSubdir != "" {
		layout.OutputSubdir = c.Tool.OutputSubdir
	}
	if c.Tool.OutputRunDir != "" {
		layout.OutputRunDir = c.Tool.OutputRunDir
	}
	if c.Tool.OutputStockDir != "" {
		layout.OutputStockDir = c.Tool.OutputStockDir
	}
	return layout
}
