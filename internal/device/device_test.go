package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSelectorPolicies(t *testing.T) {
	yes := ProbeFunc(func() bool { return true })
	no := ProbeFunc(func() bool { return false })
	cases := []struct {
		policy string
		probe  Probe
		want   ID
	}{
		{"auto", yes, CUDA},
		{"auto", no, CPU},
		{"", yes, CUDA},
		{"bogus", no, CPU},
		{"cpu", yes, CPU},
		{" CUDA ", no, CUDA},
	}
	for _, c := range cases {
		if got := NewSelector(c.policy, c.probe).Select(); got != c.want {
			t.Fatalf("policy %q: got %s want %s", c.policy, got, c.want)
		}
	}
}

func TestSelectReevaluatesProbe(t *testing.T) {
	avail := true
	s := NewSelector(PolicyAuto, ProbeFunc(func() bool { return avail }))
	if s.Select() != CUDA {
		t.Fatalf("expected cuda while available")
	}
	avail = false
	if s.Select() != CPU {
		t.Fatalf("expected cpu once probe flips")
	}
}

func TestFallback(t *testing.T) {
	if d, ok := Fallback(CUDA); !ok || d != CPU {
		t.Fatalf("cuda fallback = %s,%v", d, ok)
	}
	if _, ok := Fallback(CPU); ok {
		t.Fatalf("cpu must not have a fallback")
	}
}

func TestSysProbe(t *testing.T) {
	notFound := func(string) (string, error) { return "", errors.New("not found") }

	t.Setenv("CUDA_VISIBLE_DEVICES", "0")
	root := t.TempDir()
	p := SysProbe{Root: root, LookPath: notFound}
	if p.AcceleratorAvailable() {
		t.Fatalf("expected no accelerator on empty root")
	}
	gpus := filepath.Join(root, "proc", "driver", "nvidia", "gpus")
	if err := os.MkdirAll(filepath.Join(gpus, "0000:01:00.0"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !p.AcceleratorAvailable() {
		t.Fatalf("expected accelerator when gpus dir populated")
	}

	t.Setenv("CUDA_VISIBLE_DEVICES", "-1")
	if p.AcceleratorAvailable() {
		t.Fatalf("CUDA_VISIBLE_DEVICES=-1 must hide the accelerator")
	}

	t.Setenv("CUDA_VISIBLE_DEVICES", "0")
	p2 := SysProbe{Root: t.TempDir(), LookPath: func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }}
	if !p2.AcceleratorAvailable() {
		t.Fatalf("expected accelerator when nvidia-smi is on PATH")
	}
}
