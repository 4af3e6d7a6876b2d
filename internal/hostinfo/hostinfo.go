// Package hostinfo captures the facts about the running host that the
// rest of the tool keys off: OS, ISA, libc flavor and privilege level.
// Detection happens once at startup; everything downstream receives the
// resulting Info value so tests can substitute arbitrary hosts.
package hostinfo

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/forgebin/forgebin/internal/utils/logger"
)

// Info is an immutable snapshot of the host.
type Info struct {
	OS   string // runtime.GOOS
	Arch string // runtime.GOARCH

	// Distro is the Linux distribution id ("ubuntu", "alpine", ...).
	// Empty on other platforms or when detection fails.
	Distro string

	// Musl is set on distributions that link against musl libc.
	Musl bool

	// Elevated is set when the process runs with root privilege.
	Elevated bool
}

// muslDistros are the distributions known to ship musl as the system libc.
var muslDistros = []string{"alpine", "postmarketos", "chimera"}

// Detect builds an Info for the current host. Distro detection is best
// effort: a probe failure downgrades to OS/arch only rather than
// failing the whole run.
func Detect(ctx context.Context) Info {
	info := Info{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Elevated: os.Geteuid() == 0,
	}

	if runtime.GOOS != "linux" {
		return info
	}

	platform, _, _, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		logger.Logger().Debugf("distro detection failed, continuing with OS/arch only: %v", err)
		return info
	}
	info.Distro = strings.ToLower(strings.TrimSpace(platform))
	for _, d := range muslDistros {
		if info.Distro == d {
			info.Musl = true
			break
		}
	}
	return info
}
