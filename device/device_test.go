package device

import "testing"

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		preference string
		available  bool
		expected   string
	}{
		{"auto with gpu", "auto", true, CUDA},
		{"auto without gpu", "auto", false, CPU},
		{"forced cpu with gpu", "cpu", true, CPU},
		{"forced cuda without gpu", "cuda", false, CUDA},
		{"upper case", "CPU", true, CPU},
		{"unknown falls back to probe", "", true, CUDA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probed := false
			sel := Select(tt.preference, func() bool {
				probed = true
				return tt.available
			})
			if sel.Device != tt.expected {
				t.Errorf("expected device %s, got %s", tt.expected, sel.Device)
			}
			if sel.Seed != 42 {
				t.Errorf("expected seed 42, got %d", sel.Seed)
			}
			if (tt.preference == "cpu" || tt.preference == "cuda") && probed {
				t.Error("forced preference should not probe")
			}
		})
	}
}

func TestDetectCUDAHiddenDevices(t *testing.T) {
	for _, value := range []string{"", "-1"} {
		t.Setenv("CUDA_VISIBLE_DEVICES", value)
		if DetectCUDA() {
			t.Errorf("expected no CUDA with CUDA_VISIBLE_DEVICES=%q", value)
		}
	}
}
