package capture

import "testing"

func TestAvfDeviceLine(t *testing.T) {
	tests := []struct {
		line  string
		index string
		name  string
	}{
		{"[AVFoundation indev @ 0x7f8] [2] BlackHole 2ch", "2", "BlackHole 2ch"},
		{"[AVFoundation indev @ 0x7f8] [0] MacBook Pro Microphone", "0", "MacBook Pro Microphone"},
	}
	for _, tt := range tests {
		m := avfDeviceLine.FindStringSubmatch(tt.line)
		if m == nil {
			t.Errorf("line %q did not match", tt.line)
			continue
		}
		if m[1] != tt.index || m[2] != tt.name {
			t.Errorf("line %q parsed as [%s] %q, want [%s] %q",
				tt.line, m[1], m[2], tt.index, tt.name)
		}
	}
}

func TestAudioUnitKinds(t *testing.T) {
	mic := NewAudioUnit(AudioOptions{Source: SourceMicrophone}, nil)
	if mic.Kind() != KindMic {
		t.Errorf("microphone unit kind = %v, want %v", mic.Kind(), KindMic)
	}
	system := NewAudioUnit(AudioOptions{Source: SourceSystem}, nil)
	if system.Kind() != KindAudio {
		t.Errorf("system audio unit kind = %v, want %v", system.Kind(), KindAudio)
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	NewAudioUnit(AudioOptions{Source: SourceMicrophone}, nil).Stop()
	NewScreenUnit(ScreenOptions{}, nil).Stop()
}
