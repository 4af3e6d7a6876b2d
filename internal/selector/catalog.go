package selector

import "github.com/forgebin/forgebin/internal/hostinfo"

// Catalog is the fixed marker catalog for one host: the platform set
// and the architecture set the pipeline filters against. Build it once
// per process with NewCatalog; tests construct catalogs for foreign
// hosts directly.
type Catalog struct {
	Platform []Marker
	Arch     []Marker
}

// NewCatalog derives the marker catalog from the host OS and ISA.
func NewCatalog(host hostinfo.Info) Catalog {
	return Catalog{
		Platform: platformMarkers(host.OS),
		Arch:     archMarkers(host.Arch),
	}
}

func platformMarkers(goos string) []Marker {
	var set []Marker
	switch goos {
	case "linux":
		set = markers("linux", "unix")
	case "windows":
		set = markers("windows", "win32")
	case "darwin":
		set = markers("osx", "macos", "darwin")
	case "freebsd", "netbsd", "openbsd":
		set = markers("freebsd", "netbsd", "openbsd")
	default:
		set = markers(goos)
	}
	if goos == "windows" {
		// Bare executables and native installer packages count as
		// Windows assets even without an OS marker in the name.
		set = append(set,
			Marker{Text: ".exe", Pos: Suffix},
			Marker{Text: ".msi", Pos: Suffix},
		)
	}
	return set
}

func archMarkers(goarch string) []Marker {
	switch goarch {
	case "amd64":
		return markers("x64", "x86_64", "amd64")
	case "arm64":
		return markers("aarch64", "armv8", "arm64")
	case "386":
		return markers("x86", "i386", "i686")
	default:
		return markers(goarch)
	}
}
