package sysprobe

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/ports"
)

// DefaultTools are checked on PATH for every probe.
var DefaultTools = []string{"kubectl", "helm", "curl", "docker", "git"}

// HostProbe implements ports.SystemProbe with runtime data and PATH lookups.
type HostProbe struct {
	toolsToCheck []string
	timeout      time.Duration
	lookPath     func(string) (string, error)
	getenv       func(string) string
}

// NewHostProbe builds a probe checking the given tools, or DefaultTools.
func NewHostProbe(tools ...string) *HostProbe {
	if len(tools) == 0 {
		tools = DefaultTools
	}
	return &HostProbe{
		toolsToCheck: tools,
		timeout:      domain.DefaultProbeTimeout,
		lookPath:     exec.LookPath,
		getenv:       os.Getenv,
	}
}

// Probe gathers host details. Partial failures leave fields empty; the probe
// itself never fails.
func (p *HostProbe) Probe(ctx context.Context) (domain.SystemInfo, error) {
	hostname, _ := os.Hostname()
	wd, _ := os.Getwd()

	info := domain.SystemInfo{
		OS: domain.OSInfo{
			System:  osName(runtime.GOOS),
			Release: p.release(ctx),
			Machine: runtime.GOARCH,
			CPUs:    runtime.NumCPU(),
		},
		Hostname: hostname,
		Environment: domain.EnvironmentInfo{
			Shell:    p.detectShell(),
			Terminal: p.getenv("TERM"),
		},
		Tools:      p.detectTools(),
		WorkingDir: wd,
		User:       currentUser(p.getenv),
	}
	return info, nil
}

func (p *HostProbe) detectTools() map[string]bool {
	available := make(map[string]bool, len(p.toolsToCheck))
	for _, tool := range p.toolsToCheck {
		_, err := p.lookPath(tool)
		available[tool] = err == nil
	}
	return available
}

func (p *HostProbe) detectShell() string {
	if shell := p.getenv("SHELL"); shell != "" {
		return shell
	}
	if runtime.GOOS == "windows" {
		return p.getenv("ComSpec")
	}
	return ""
}

func (p *HostProbe) release(ctx context.Context) string {
	if runtime.GOOS == "windows" {
		return ""
	}
	return strings.TrimSpace(runCmd(ctx, p.timeout, "uname", "-r"))
}

// osName matches the names users expect in prompts: Linux, Darwin, Windows.
func osName(goos string) string {
	if goos == "" {
		return ""
	}
	return strings.ToUpper(goos[:1]) + goos[1:]
}

func currentUser(getenv func(string) string) string {
	if name := getenv("USER"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func runCmd(ctx context.Context, timeout time.Duration, name string, args ...string) string {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(cctx, name, args...).Output()
	if err != nil {
		return ""
	}
	return string(out)
}

var _ ports.SystemProbe = (*HostProbe)(nil)
