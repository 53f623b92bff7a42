// Package permissions probes macOS privacy permissions for the capture
// capabilities and opens the relevant System Settings pane. Probes are
// best-effort: on platforms without a TCC database, or when the probe
// tool fails, the capability is reported as available and the capture
// attempt itself surfaces any real denial.
package permissions

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/recapd/recap/internal/logging"
)

// Capability names a permission-gated capture capability.
type Capability string

const (
	CapabilityScreen     Capability = "screen"
	CapabilityMicrophone Capability = "microphone"
	CapabilityBluetooth  Capability = "bluetooth"
)

// Settings panes for each capability, used with the
// x-apple.systempreferences URL scheme.
var settingsPanes = map[Capability]string{
	CapabilityScreen:     "com.apple.preference.security?Privacy_ScreenCapture",
	CapabilityMicrophone: "com.apple.preference.security?Privacy_Microphone",
	CapabilityBluetooth:  "com.apple.preference.security?Privacy_Bluetooth",
}

// Status holds the per-capability probe results.
type Status struct {
	Screen     bool
	Microphone bool
	Bluetooth  bool
}

// Denied returns the capabilities the probe reported as unavailable.
func (s Status) Denied() []Capability {
	var denied []Capability
	if !s.Screen {
		denied = append(denied, CapabilityScreen)
	}
	if !s.Microphone {
		denied = append(denied, CapabilityMicrophone)
	}
	if !s.Bluetooth {
		denied = append(denied, CapabilityBluetooth)
	}
	return denied
}

// Prober checks capture permissions.
type Prober struct {
	logger *logging.Logger
}

// NewProber creates a permission prober.
func NewProber(logger *logging.Logger) *Prober {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Prober{logger: logger}
}

// Probe checks each capability. Non-darwin platforms report everything
// available.
func (p *Prober) Probe() Status {
	if runtime.GOOS != "darwin" {
		return Status{Screen: true, Microphone: true, Bluetooth: true}
	}
	return Status{
		Screen:     p.probeTCC("kTCCServiceScreenCapture"),
		Microphone: p.probeTCC("kTCCServiceMicrophone"),
		Bluetooth:  p.probeTCC("kTCCServiceBluetoothAlways"),
	}
}

// probeTCC asks tccutil about a service. The tool is only present on
// macOS and may refuse to answer; treat any failure as "available" and
// let the capture attempt surface the real denial.
func (p *Prober) probeTCC(service string) bool {
	out, err := exec.Command("tccutil", "check", service).CombinedOutput()
	if err != nil {
		p.logger.Debug("permission probe inconclusive",
			"service", service, "error", err.Error())
		return true
	}
	return string(out) != "denied\n"
}

// OpenSettings opens the System Settings pane for a capability so the
// user can grant the permission.
func OpenSettings(capability Capability) error {
	pane, ok := settingsPanes[capability]
	if !ok {
		return fmt.Errorf("no settings pane for capability %q", capability)
	}
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("settings panes are only available on macOS")
	}
	return exec.Command("open", "x-apple.systempreferences:"+pane).Run()
}
