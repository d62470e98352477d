package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fpvtools/blackbox-analysis/internal/analysis"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Decoder  DecoderConfig  `yaml:"decoder"`
	Storage  StorageConfig  `yaml:"storage"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level maps the configured log level onto slog. Unknown or empty values
// fall back to info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DecoderConfig points at the external blackbox_decode binary. An empty
// binary is looked up on PATH.
type DecoderConfig struct {
	Binary string `yaml:"binary"`
}

// StorageConfig represents results storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// AnalysisConfig overrides estimator parameters. Zero values keep the
// defaults of each estimator.
type AnalysisConfig struct {
	Step        StepConfig        `yaml:"step"`
	Welch       WelchConfig       `yaml:"welch"`
	Noise       NoiseConfig       `yaml:"noise"`
	Spectrogram SpectrogramConfig `yaml:"spectrogram"`
}

type StepConfig struct {
	FrameSeconds    float64 `yaml:"frameSeconds"`
	ResponseSeconds float64 `yaml:"responseSeconds"`
	Superpos        int     `yaml:"superpos"`
	CutoffHz        float64 `yaml:"cutoffHz"`
	MinUsefulFrames int     `yaml:"minUsefulFrames"`
}

type WelchConfig struct {
	NPerSeg  int `yaml:"nperseg"`
	NOverlap int `yaml:"noverlap"`
}

type NoiseConfig struct {
	FrameSeconds float64 `yaml:"frameSeconds"`
	Superpos     int     `yaml:"superpos"`
	SmoothSigma  float64 `yaml:"smoothSigma"`
	Gain         float64 `yaml:"gain"`
}

type SpectrogramConfig struct {
	NPerSeg     int     `yaml:"nperseg"`
	NOverlap    int     `yaml:"noverlap"`
	MaxFreq     float64 `yaml:"maxFreq"`
	Gain        float64 `yaml:"gain"`
	ClipSeconds float64 `yaml:"clipSeconds"`
}

// LoadConfig reads and parses the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return &config, nil
}

// StepConfig merges the overrides onto the estimator defaults.
func (c AnalysisConfig) StepConfig() analysis.StepConfig {
	cfg := analysis.DefaultStepConfig()
	if c.Step.FrameSeconds > 0 {
		cfg.FrameSeconds = c.Step.FrameSeconds
	}
	if c.Step.ResponseSeconds > 0 {
		cfg.ResponseSeconds = c.Step.ResponseSeconds
	}
	if c.Step.Superpos > 0 {
		cfg.Superpos = c.Step.Superpos
	}
	if c.Step.CutoffHz > 0 {
		cfg.CutoffHz = c.Step.CutoffHz
	}
	if c.Step.MinUsefulFrames > 0 {
		cfg.MinUsefulFrames = c.Step.MinUsefulFrames
	}
	return cfg
}

// WelchConfig merges the overrides onto the estimator defaults.
func (c AnalysisConfig) WelchConfig() analysis.WelchConfig {
	return analysis.WelchConfig{
		NPerSeg:  c.Welch.NPerSeg,
		NOverlap: c.Welch.NOverlap,
	}
}

// NoiseConfig merges the overrides onto the estimator defaults.
func (c AnalysisConfig) NoiseConfig() analysis.NoiseConfig {
	cfg := analysis.DefaultNoiseConfig()
	if c.Noise.FrameSeconds > 0 {
		cfg.FrameSeconds = c.Noise.FrameSeconds
	}
	if c.Noise.Superpos > 0 {
		cfg.Superpos = c.Noise.Superpos
	}
	if c.Noise.SmoothSigma > 0 {
		cfg.SmoothSigma = c.Noise.SmoothSigma
	}
	if c.Noise.Gain > 0 {
		cfg.Gain = c.Noise.Gain
	}
	return cfg
}

// SpectrogramConfig merges the overrides onto the estimator defaults.
func (c AnalysisConfig) SpectrogramConfig() analysis.SpectrogramConfig {
	cfg := analysis.DefaultSpectrogramConfig()
	if c.Spectrogram.NPerSeg > 0 {
		cfg.NPerSeg = c.Spectrogram.NPerSeg
	}
	if c.Spectrogram.NOverlap > 0 {
		cfg.NOverlap = c.Spectrogram.NOverlap
	}
	if c.Spectrogram.MaxFreq > 0 {
		cfg.MaxFreq = c.Spectrogram.MaxFreq
	}
	if c.Spectrogram.Gain > 0 {
		cfg.Gain = c.Spectrogram.Gain
	}
	if c.Spectrogram.ClipSeconds > 0 {
		cfg.ClipSeconds = c.Spectrogram.ClipSeconds
	}
	return cfg
}
