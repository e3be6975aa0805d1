// Package envinfo collects the device/app metadata attached to upload
// batches and crash reports.
package envinfo

import (
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/fieldtrace/fieldtrace/internal/record"
)

// Provider gathers environment metadata once and serves the cached
// snapshot afterwards. Collection is best effort: fields a platform
// cannot supply stay empty rather than failing the pipeline.
type Provider struct {
	appVersion string

	once sync.Once
	env  record.Environment
}

// New creates a provider. appVersion is the host application's own
// version string and may be empty.
func New(appVersion string) *Provider {
	return &Provider{appVersion: appVersion}
}

// Environment returns the cached metadata snapshot.
func (p *Provider) Environment() record.Environment {
	p.once.Do(p.collect)
	return p.env
}

// Context returns the metadata as a flat string map for crash report
// context.
func (p *Provider) Context() map[string]string {
	env := p.Environment()
	ctx := map[string]string{
		"os":   env.OS,
		"arch": env.Arch,
	}
	if env.Hostname != "" {
		ctx["hostname"] = env.Hostname
	}
	if env.Platform != "" {
		ctx["platform"] = env.Platform
	}
	if env.OSVersion != "" {
		ctx["os_version"] = env.OSVersion
	}
	if env.AppVersion != "" {
		ctx["app_version"] = env.AppVersion
	}
	if env.TotalMemMB > 0 {
		ctx["total_mem_mb"] = strconv.FormatUint(env.TotalMemMB, 10)
	}
	return ctx
}

func (p *Provider) collect() {
	env := record.Environment{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		AppVersion: p.appVersion,
	}

	if hostname, err := os.Hostname(); err == nil {
		env.Hostname = hostname
	}
	if info, err := host.Info(); err == nil {
		env.Platform = info.Platform
		env.OSVersion = info.PlatformVersion
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		env.TotalMemMB = vm.Total / (1024 * 1024)
	}

	p.env = env
}
