package pkginfo_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/hostinfo"
	"github.com/forgebin/forgebin/internal/pkginfo"
)

var linuxHost = hostinfo.Info{OS: "linux", Arch: "amd64"}
var windowsHost = hostinfo.Info{OS: "windows", Arch: "amd64"}

func TestFromURLRoundTrip(t *testing.T) {
	rec, err := pkginfo.FromURL("https://github.com/OWNER/NAME/", linuxHost)
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if rec.Owner != "OWNER" {
		t.Errorf("Owner = %q, want OWNER", rec.Owner)
	}
	if rec.Name != "NAME" {
		t.Errorf("Name = %q, want NAME", rec.Name)
	}
	u, err := rec.URL()
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if u != "https://github.com/OWNER/NAME" {
		t.Errorf("URL = %q, want canonical form without trailing slash", u)
	}
}

func TestURLRequiresResolvedIdentity(t *testing.T) {
	rec, err := pkginfo.New("eza", linuxHost)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := rec.URL(); !errors.Is(err, errdefs.ErrNotResolved) {
		t.Fatalf("URL on unresolved record: err = %v, want ErrNotResolved", err)
	}
}

func TestFromIdentifierDispatch(t *testing.T) {
	rec, err := pkginfo.FromIdentifier("https://github.com/lxl66566/bpm-rs/", linuxHost)
	if err != nil {
		t.Fatalf("FromIdentifier(url): %v", err)
	}
	if !rec.Resolved() || rec.Owner != "lxl66566" || rec.Repo != "bpm-rs" {
		t.Fatalf("url identifier not resolved: %+v", rec)
	}

	rec, err = pkginfo.FromIdentifier("ripgrep", linuxHost)
	if err != nil {
		t.Fatalf("FromIdentifier(name): %v", err)
	}
	if rec.Resolved() {
		t.Fatalf("bare name should start unresolved: %+v", rec)
	}
	if rec.BinaryName != "ripgrep" {
		t.Errorf("BinaryName = %q, want package name", rec.BinaryName)
	}
}

func TestReservedNamesOnWindows(t *testing.T) {
	for _, name := range []string{"app", "bin"} {
		if _, err := pkginfo.New(name, windowsHost); !errors.Is(err, errdefs.ErrInvalidIdentifier) {
			t.Errorf("New(%q) on windows: err = %v, want ErrInvalidIdentifier", name, err)
		}
		if _, err := pkginfo.New(name, linuxHost); err != nil {
			t.Errorf("New(%q) on linux: %v", name, err)
		}
	}
}

func TestWindowsBinaryNameDefaults(t *testing.T) {
	rec, err := pkginfo.New("eza", windowsHost)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if rec.BinaryName != "*.exe" {
		t.Errorf("BinaryName = %q, want *.exe", rec.BinaryName)
	}
	rec.SetBinaryName("tool", windowsHost)
	if rec.BinaryName != "tool.exe" {
		t.Errorf("SetBinaryName: %q, want tool.exe", rec.BinaryName)
	}
	rec.SetBinaryName("Tool.EXE", windowsHost)
	if rec.BinaryName != "Tool.EXE" {
		t.Errorf("SetBinaryName should keep existing extension, got %q", rec.BinaryName)
	}
}

func TestInvalidIdentifiers(t *testing.T) {
	cases := []string{"", "   ", "https://github.com/onlyowner", "https://github.com/"}
	for _, c := range cases {
		if _, err := pkginfo.FromIdentifier(c, linuxHost); !errors.Is(err, errdefs.ErrInvalidIdentifier) {
			t.Errorf("FromIdentifier(%q): err = %v, want ErrInvalidIdentifier", c, err)
		}
	}
}

func TestDedupInstalledFiles(t *testing.T) {
	rec, _ := pkginfo.New("tool", linuxHost)
	rec.AddInstalledFile("/root/app/tool/sub/file")
	rec.AddInstalledFile("/root/app/tool/sub")
	rec.AddInstalledFile("/root/app/tool/sub/file")
	rec.AddInstalledFile("/root/app/tool")
	rec.DedupInstalledFiles()
	want := []string{"/root/app/tool", "/root/app/tool/sub", "/root/app/tool/sub/file"}
	if !reflect.DeepEqual(rec.InstalledFiles, want) {
		t.Fatalf("InstalledFiles = %v, want %v", rec.InstalledFiles, want)
	}
}
