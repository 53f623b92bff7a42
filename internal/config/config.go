package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete recap configuration
type Config struct {
	Recording RecordingConfig `mapstructure:"recording"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Bluetooth BluetoothConfig `mapstructure:"bluetooth"`
	Output    OutputConfig    `mapstructure:"output"`
	Privacy   PrivacyConfig   `mapstructure:"privacy"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RecordingConfig controls screen capture behavior
type RecordingConfig struct {
	// Enabled controls whether the screen stream is captured (default: true)
	Enabled bool `mapstructure:"enabled"`
	// FPS is the screen capture frame rate (default: 30)
	FPS int `mapstructure:"fps"`
	// IncludeCursor draws the cursor into the captured video (default: true)
	IncludeCursor bool `mapstructure:"include_cursor"`
	// MonitorIndex selects which display to capture (default: 1)
	MonitorIndex int `mapstructure:"monitor_index"`
}

// AudioConfig controls the two audio streams
type AudioConfig struct {
	// SystemAudio captures system output via a loopback device (default: true)
	SystemAudio bool `mapstructure:"system_audio"`
	// Microphone captures the default input device (default: true)
	Microphone bool `mapstructure:"microphone"`
	// SampleRate in Hz for both audio streams (default: 44100)
	SampleRate int `mapstructure:"sample_rate"`
}

// BluetoothConfig controls the Bluetooth proximity stream
type BluetoothConfig struct {
	// Enabled controls whether the Bluetooth stream runs (default: true)
	Enabled bool `mapstructure:"enabled"`
	// ScanIntervalSeconds is the discovery interval (default: 1)
	ScanIntervalSeconds float64 `mapstructure:"scan_interval"`
	// Anonymize hashes device names with a per-session salt (default: true)
	Anonymize bool `mapstructure:"anonymize"`
}

// OutputConfig controls where sessions are written
type OutputConfig struct {
	// Directory is the root under which session directories are created.
	// Supports ~ for home directory expansion (default: ~/Recordings).
	Directory string `mapstructure:"directory"`
	// Format is the container format for screen capture (default: "mp4")
	Format string `mapstructure:"format"`
}

// PrivacyConfig controls consent and retention
type PrivacyConfig struct {
	// AutoDeleteDays removes completed sessions older than this many days.
	// 0 disables the retention sweep (default: 30).
	AutoDeleteDays int `mapstructure:"auto_delete_days"`
	// RequireConsent blocks recording until a consent record is granted (default: true)
	RequireConsent bool `mapstructure:"require_consent"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// ScanInterval returns the Bluetooth scan interval as a time.Duration.
func (b *BluetoothConfig) ScanInterval() time.Duration {
	return time.Duration(b.ScanIntervalSeconds * float64(time.Second))
}

// ResolveOutputDir returns the output directory with ~ expanded.
func (o *OutputConfig) ResolveOutputDir() string {
	path := o.Directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}
	return path
}

// EnabledStreams returns the stream kinds enabled by this configuration,
// as the orchestrator names them.
func (c *Config) EnabledStreams() []string {
	var streams []string
	if c.Recording.Enabled {
		streams = append(streams, "screen")
	}
	if c.Audio.SystemAudio {
		streams = append(streams, "audio")
	}
	if c.Audio.Microphone {
		streams = append(streams, "mic")
	}
	if c.Bluetooth.Enabled {
		streams = append(streams, "bluetooth")
	}
	return streams
}

// Default returns a Config with sensible default values
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Recording: RecordingConfig{
			Enabled:       true,
			FPS:           30,
			IncludeCursor: true,
			MonitorIndex:  1,
		},
		Audio: AudioConfig{
			SystemAudio: true,
			Microphone:  true,
			SampleRate:  44100,
		},
		Bluetooth: BluetoothConfig{
			Enabled:             true,
			ScanIntervalSeconds: 1.0,
			Anonymize:           true,
		},
		Output: OutputConfig{
			Directory: filepath.Join(home, "Recordings"),
			Format:    "mp4",
		},
		Privacy: PrivacyConfig{
			AutoDeleteDays: 30,
			RequireConsent: true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("recording.enabled", defaults.Recording.Enabled)
	viper.SetDefault("recording.fps", defaults.Recording.FPS)
	viper.SetDefault("recording.include_cursor", defaults.Recording.IncludeCursor)
	viper.SetDefault("recording.monitor_index", defaults.Recording.MonitorIndex)

	viper.SetDefault("audio.system_audio", defaults.Audio.SystemAudio)
	viper.SetDefault("audio.microphone", defaults.Audio.Microphone)
	viper.SetDefault("audio.sample_rate", defaults.Audio.SampleRate)

	viper.SetDefault("bluetooth.enabled", defaults.Bluetooth.Enabled)
	viper.SetDefault("bluetooth.scan_interval", defaults.Bluetooth.ScanIntervalSeconds)
	viper.SetDefault("bluetooth.anonymize", defaults.Bluetooth.Anonymize)

	viper.SetDefault("output.directory", defaults.Output.Directory)
	viper.SetDefault("output.format", defaults.Output.Format)

	viper.SetDefault("privacy.auto_delete_days", defaults.Privacy.AutoDeleteDays)
	viper.SetDefault("privacy.require_consent", defaults.Privacy.RequireConsent)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for basic sanity.
func (c *Config) Validate() error {
	if c.Recording.FPS <= 0 || c.Recording.FPS > 240 {
		return fmt.Errorf("recording.fps must be between 1 and 240, got %d", c.Recording.FPS)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Bluetooth.ScanIntervalSeconds <= 0 {
		return fmt.Errorf("bluetooth.scan_interval must be positive, got %v", c.Bluetooth.ScanIntervalSeconds)
	}
	if c.Privacy.AutoDeleteDays < 0 {
		return fmt.Errorf("privacy.auto_delete_days must not be negative, got %d", c.Privacy.AutoDeleteDays)
	}
	return nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recap")
	}
	// Fall back to ~/.config/recap
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recap"
	}
	return filepath.Join(home, ".config", "recap")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory holding the crash-recovery state file,
// consent record, and debug log.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recap-state"
	}
	return filepath.Join(home, ".recap")
}
