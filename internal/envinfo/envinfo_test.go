package envinfo

import (
	"runtime"
	"testing"
)

func TestEnvironmentBasics(t *testing.T) {
	p := New("3.1.0")
	env := p.Environment()

	if env.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", env.OS, runtime.GOOS)
	}
	if env.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", env.Arch, runtime.GOARCH)
	}
	if env.AppVersion != "3.1.0" {
		t.Errorf("AppVersion = %q", env.AppVersion)
	}
}

func TestEnvironmentIsCached(t *testing.T) {
	p := New("")
	first := p.Environment()
	second := p.Environment()
	if first != second {
		t.Error("Environment should return the same cached snapshot")
	}
}

func TestContextContainsRequiredKeys(t *testing.T) {
	p := New("1.0.0")
	ctx := p.Context()

	for _, key := range []string{"os", "arch", "app_version"} {
		if ctx[key] == "" {
			t.Errorf("context missing %q: %v", key, ctx)
		}
	}
}
