package permissions

import "testing"

func TestStatusDenied(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   int
	}{
		{"all granted", Status{Screen: true, Microphone: true, Bluetooth: true}, 0},
		{"all denied", Status{}, 3},
		{"mic only denied", Status{Screen: true, Bluetooth: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Denied(); len(got) != tt.want {
				t.Errorf("Denied() = %v, want %d entries", got, tt.want)
			}
		})
	}
}

func TestOpenSettingsUnknownCapability(t *testing.T) {
	if err := OpenSettings(Capability("camera")); err == nil {
		t.Error("OpenSettings() accepted an unknown capability")
	}
}
