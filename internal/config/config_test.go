package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() config failed validation: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Recording.FPS != 30 {
		t.Errorf("recording.fps = %d, want 30", cfg.Recording.FPS)
	}
	if !cfg.Bluetooth.Anonymize {
		t.Error("bluetooth.anonymize should default to true")
	}
	if cfg.Privacy.AutoDeleteDays != 30 {
		t.Errorf("privacy.auto_delete_days = %d, want 30", cfg.Privacy.AutoDeleteDays)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"zero fps", "recording.fps", 0},
		{"negative sample rate", "audio.sample_rate", -1},
		{"zero scan interval", "bluetooth.scan_interval", 0.0},
		{"negative retention", "privacy.auto_delete_days", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			SetDefaults()
			viper.Set(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() accepted invalid %s=%v", tt.key, tt.value)
			}
		})
	}
}

func TestScanInterval(t *testing.T) {
	b := BluetoothConfig{ScanIntervalSeconds: 0.5}
	if got := b.ScanInterval(); got != 500*time.Millisecond {
		t.Errorf("ScanInterval() = %v, want 500ms", got)
	}
}

func TestEnabledStreams(t *testing.T) {
	cfg := Default()
	got := cfg.EnabledStreams()
	want := []string{"screen", "audio", "mic", "bluetooth"}
	if len(got) != len(want) {
		t.Fatalf("EnabledStreams() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EnabledStreams()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	cfg.Recording.Enabled = false
	cfg.Audio.SystemAudio = false
	cfg.Audio.Microphone = false
	cfg.Bluetooth.Enabled = false
	if streams := cfg.EnabledStreams(); len(streams) != 0 {
		t.Errorf("EnabledStreams() with everything disabled = %v, want empty", streams)
	}
}
