package selector_test

import (
	"reflect"
	"testing"

	"github.com/forgebin/forgebin/internal/hostinfo"
	"github.com/forgebin/forgebin/internal/selector"
)

// winX64 is a fixed catalog so assertions do not depend on the host
// running the tests.
func winX64() selector.Catalog {
	return selector.NewCatalog(hostinfo.Info{OS: "windows", Arch: "amd64"})
}

func linuxX64() selector.Catalog {
	return selector.NewCatalog(hostinfo.Info{OS: "linux", Arch: "amd64"})
}

func TestMatchOne(t *testing.T) {
	set := []selector.Marker{{Text: "foo"}}
	if !selector.MatchOne("asdfoo123", set, selector.Any, false) {
		t.Errorf("Contains marker should match substring")
	}
	if selector.MatchOne("asdfoo123", []selector.Marker{{Text: "foo", Pos: selector.Prefix}}, selector.Any, false) {
		t.Errorf("Prefix marker should not match mid-string")
	}
	if !selector.MatchOne("asdfoo123", []selector.Marker{{Text: "asd", Pos: selector.Prefix}}, selector.Any, false) {
		t.Errorf("Prefix marker should match start")
	}
	if !selector.MatchOne("asdfoo123", []selector.Marker{{Text: "123", Pos: selector.Suffix}}, selector.Any, false) {
		t.Errorf("Suffix marker should match end")
	}
}

func TestMatchOneCombination(t *testing.T) {
	set := []selector.Marker{{Text: "win"}, {Text: "x64"}}
	if !selector.MatchOne("app-win.zip", set, selector.Any, false) {
		t.Errorf("Any should succeed with one marker matching")
	}
	if selector.MatchOne("app-win.zip", set, selector.All, false) {
		t.Errorf("All should fail with one marker missing")
	}
	if !selector.MatchOne("app-win-x64.zip", set, selector.All, false) {
		t.Errorf("All should succeed with every marker matching")
	}
}

func TestMatchOneCaseInsensitiveByDefault(t *testing.T) {
	set := []selector.Marker{{Text: "windows"}}
	for _, c := range []string{"WINDOWS", "windows", "WiNdOwS"} {
		if !selector.MatchOne(c, set, selector.Any, false) {
			t.Errorf("case-insensitive match failed for %q", c)
		}
	}
	if selector.MatchOne("WINDOWS", set, selector.Any, true) {
		t.Errorf("case-sensitive match should fail for WINDOWS vs windows")
	}
}

func TestFilterByIsSubsequence(t *testing.T) {
	in := []string{"a-linux", "b-win", "c-linux", "d-mac", "e-linux"}
	out := selector.FilterBy(in, []selector.Marker{{Text: "linux"}}, selector.Any, false)
	want := []string{"a-linux", "c-linux", "e-linux"}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("FilterBy = %v, want %v", out, want)
	}

	// Never introduces elements and never reorders.
	idx := 0
	for _, o := range out {
		found := false
		for ; idx < len(in); idx++ {
			if in[idx] == o {
				found = true
				idx++
				break
			}
		}
		if !found {
			t.Fatalf("output %q is not an in-order element of the input", o)
		}
	}
}

func TestFilterByCanEmpty(t *testing.T) {
	out := selector.FilterBy([]string{"a", "b"}, []selector.Marker{{Text: "zzz"}}, selector.Any, false)
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %v", out)
	}
}

func TestRankByStablePartition(t *testing.T) {
	out := selector.RankBy([]string{"foo", "bar", "baz"}, []selector.Marker{{Text: "a"}}, selector.Any, false, false)
	want := []string{"bar", "baz", "foo"}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("RankBy = %v, want %v", out, want)
	}
}

func TestRankByReverse(t *testing.T) {
	out := selector.RankBy([]string{"foo", "bar", "baz"}, []selector.Marker{{Text: "a"}}, selector.Any, false, true)
	want := []string{"foo", "baz", "bar"}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("RankBy reversed = %v, want %v", out, want)
	}
}

func TestSelectThreePlatforms(t *testing.T) {
	assets := []string{
		"asd-macos-x86_64.zip",
		"asd-windows-x86_64.zip",
		"asd-linux-x86_64.zip",
	}
	got := winX64().Select(assets)
	want := []string{"asd-windows-x86_64.zip"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Select = %v, want %v", got, want)
	}

	got = linuxX64().Select(assets)
	want = []string{"asd-linux-x86_64.zip"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Select = %v, want %v", got, want)
	}
}

func TestSelectTypstyle(t *testing.T) {
	assets := []string{
		"typstyle-alpine-x64",
		"typstyle-alpine-x64.debug",
		"typstyle-darwin-arm64",
		"typstyle-darwin-arm64.dwarf",
		"typstyle-darwin-x64",
		"typstyle-darwin-x64.dwarf",
		"typstyle-linux-arm64",
		"typstyle-linux-arm64.debug",
		"typstyle-linux-armhf",
		"typstyle-linux-armhf.debug",
		"typstyle-linux-x64",
		"typstyle-linux-x64.debug",
		"typstyle-win32-arm64.exe",
		"typstyle-win32-arm64.pdb",
		"typstyle-win32-x64.exe",
		"typstyle-win32-x64.pdb",
	}
	got := winX64().Select(assets)
	if len(got) == 0 {
		t.Fatal("Select returned no assets")
	}
	if got[0] != "typstyle-win32-x64.exe" {
		t.Fatalf("first asset = %q, want typstyle-win32-x64.exe", got[0])
	}
	// The .pdb sibling is demoted, not excluded.
	found := false
	for _, a := range got {
		if a == "typstyle-win32-x64.pdb" {
			found = true
		}
	}
	if !found {
		t.Fatalf("demoted .pdb asset missing from result: %v", got)
	}
}

func TestSelectStrictEmpty(t *testing.T) {
	// Nothing matches the platform: the pipeline legitimately returns
	// an empty sequence instead of falling back to the input.
	got := winX64().Select([]string{"tool-linux-x86_64.tar.gz", "tool-darwin-arm64.zip"})
	if len(got) != 0 {
		t.Fatalf("expected empty selection, got %v", got)
	}
}

func TestSelectWindowsSuffixMarkers(t *testing.T) {
	// A bare .exe with no OS marker still counts as a Windows asset.
	got := winX64().Select([]string{"tool-x86_64.exe", "tool-linux-x86_64"})
	if len(got) != 1 || got[0] != "tool-x86_64.exe" {
		t.Fatalf("Select = %v, want [tool-x86_64.exe]", got)
	}
}

func TestPreferLibc(t *testing.T) {
	assets := []string{
		"eza-x86_64-unknown-linux-gnu.tar.gz",
		"eza-x86_64-unknown-linux-musl.tar.gz",
	}
	got := selector.PreferLibc(assets, true)
	if got[0] != "eza-x86_64-unknown-linux-musl.tar.gz" {
		t.Fatalf("musl host: first = %q", got[0])
	}
	got = selector.PreferLibc(assets, false)
	if got[0] != "eza-x86_64-unknown-linux-gnu.tar.gz" {
		t.Fatalf("gnu host: first = %q", got[0])
	}
	if len(got) != len(assets) {
		t.Fatalf("PreferLibc dropped candidates: %v", got)
	}
}
