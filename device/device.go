package device

import (
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	CPU  = "cpu"
	CUDA = "cuda"
	Auto = "auto"

	// Seed is fixed so repeated runs on the same input sample identically.
	Seed int64 = 42
)

// Selection is handed to the model call; nothing about it is global.
type Selection struct {
	Device string
	Seed   int64
}

// Probe reports whether accelerated compute is usable.
type Probe func() bool

var (
	cudaAvailable bool
	probeOnce     sync.Once
)

// Select resolves a preference of auto, cpu or cuda into a concrete device.
// It never fails; an unknown preference is treated as auto.
func Select(preference string, probe Probe) Selection {
	if probe == nil {
		probe = cachedProbe
	}

	sel := Selection{Device: CPU, Seed: Seed}
	switch strings.ToLower(preference) {
	case CPU:
	case CUDA:
		sel.Device = CUDA
	default:
		if probe() {
			sel.Device = CUDA
		}
	}

	logrus.WithFields(logrus.Fields{
		"preference": preference,
		"device":     sel.Device,
		"seed":       sel.Seed,
	}).Debug("Selected compute device")
	return sel
}

func cachedProbe() bool {
	probeOnce.Do(func() {
		cudaAvailable = DetectCUDA()
	})
	return cudaAvailable
}

// DetectCUDA looks for an NVIDIA driver the way torch would find one, honouring
// CUDA_VISIBLE_DEVICES when it hides every device.
func DetectCUDA() bool {
	if visible, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok {
		visible = strings.TrimSpace(visible)
		if visible == "" || visible == "-1" {
			return false
		}
	}

	for _, path := range []string{"/proc/driver/nvidia/version", "/dev/nvidia0"} {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}

	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return true
	}
	return false
}
