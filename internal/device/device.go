// Package device chooses the execution device for model construction and
// defines the fallback order used when construction fails.
package device

import (
	"os"
	"os/exec"
	"strings"
)

// ID identifies an execution target.
type ID string

const (
	// CUDA is the accelerator device.
	CUDA ID = "cuda"
	// CPU is the general-purpose device. It is always available.
	CPU ID = "cpu"
)

// Policy values accepted by NewSelector.
const (
	PolicyAuto = "auto"
	PolicyCPU  = "cpu"
	PolicyCUDA = "cuda"
)

// IsAccelerator reports whether id names an accelerator device.
func (id ID) IsAccelerator() bool { return id == CUDA }

// Fallback returns the device to retry construction on after a failure on id.
// Only accelerator failures have a fallback.
func Fallback(id ID) (ID, bool) {
	if id.IsAccelerator() {
		return CPU, true
	}
	return "", false
}

// Probe reports whether an accelerator is present and usable.
type Probe interface {
	AcceleratorAvailable() bool
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func() bool

func (f ProbeFunc) AcceleratorAvailable() bool { return f() }

// Selector resolves the active device. Select is re-evaluated on every call.
type Selector struct {
	policy string
	probe  Probe
}

// NewSelector builds a Selector for policy. Unknown or empty policies behave
// as PolicyAuto. A nil probe means SysProbe.
func NewSelector(policy string, probe Probe) *Selector {
	p := strings.ToLower(strings.TrimSpace(policy))
	switch p {
	case PolicyCPU, PolicyCUDA:
	default:
		p = PolicyAuto
	}
	if probe == nil {
		probe = SysProbe{}
	}
	return &Selector{policy: p, probe: probe}
}

// Policy returns the normalized policy string.
func (s *Selector) Policy() string { return s.policy }

// Select returns the preferred device. It never fails; the worst case is CPU.
func (s *Selector) Select() ID {
	switch s.policy {
	case PolicyCPU:
		return CPU
	case PolicyCUDA:
		return CUDA
	}
	if s.probe.AcceleratorAvailable() {
		return CUDA
	}
	return CPU
}

// SysProbe inspects the host for an NVIDIA device.
type SysProbe struct {
	// Root overrides "/" for the /proc lookup; used by tests.
	Root string
	// LookPath overrides exec.LookPath; used by tests.
	LookPath func(string) (string, error)
}

func (p SysProbe) AcceleratorAvailable() bool {
	if v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok {
		v = strings.TrimSpace(v)
		if v == "" || v == "-1" || strings.EqualFold(v, "none") {
			return false
		}
	}
	root := p.Root
	if root == "" {
		root = "/"
	}
	if entries, err := os.ReadDir(strings.TrimSuffix(root, "/") + "/proc/driver/nvidia/gpus"); err == nil && len(entries) > 0 {
		return true
	}
	look := p.LookPath
	if look == nil {
		look = exec.LookPath
	}
	_, err := look("nvidia-smi")
	return err == nil
}
