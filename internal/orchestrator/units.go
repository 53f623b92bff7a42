package orchestrator

import (
	"path/filepath"

	"github.com/recapd/recap/internal/capture"
	"github.com/recapd/recap/internal/config"
	"github.com/recapd/recap/internal/logging"
)

// Per-session output file names for the process-backed streams.
const (
	systemAudioFile = "system_audio.wav"
	microphoneFile  = "microphone.wav"
)

// StreamsFromConfig maps the configuration's enabled streams to capture
// kinds in start order.
func StreamsFromConfig(cfg *config.Config) []capture.Kind {
	var streams []capture.Kind
	for _, name := range cfg.EnabledStreams() {
		streams = append(streams, capture.Kind(name))
	}
	return streams
}

// ConfigUnitFactory builds real capture units from configuration. This is
// the production UnitFactory; tests substitute their own.
func ConfigUnitFactory(cfg *config.Config, logger *logging.Logger) UnitFactory {
	return func(kind capture.Kind, sessionDir string, sink capture.EventSink) capture.Unit {
		switch kind {
		case capture.KindScreen:
			return capture.NewScreenUnit(capture.ScreenOptions{
				OutputPath:    filepath.Join(sessionDir, "screen."+cfg.Output.Format),
				FPS:           cfg.Recording.FPS,
				MonitorIndex:  cfg.Recording.MonitorIndex,
				IncludeCursor: cfg.Recording.IncludeCursor,
			}, logger)
		case capture.KindAudio:
			return capture.NewAudioUnit(capture.AudioOptions{
				OutputPath: filepath.Join(sessionDir, systemAudioFile),
				Source:     capture.SourceSystem,
				SampleRate: cfg.Audio.SampleRate,
			}, logger)
		case capture.KindMic:
			return capture.NewAudioUnit(capture.AudioOptions{
				OutputPath: filepath.Join(sessionDir, microphoneFile),
				Source:     capture.SourceMicrophone,
				SampleRate: cfg.Audio.SampleRate,
			}, logger)
		case capture.KindBluetooth:
			return capture.NewBluetoothUnit(capture.BluetoothOptions{
				ScanInterval: cfg.Bluetooth.ScanInterval(),
				Anonymize:    cfg.Bluetooth.Anonymize,
			}, sink, logger)
		default:
			return nil
		}
	}
}
