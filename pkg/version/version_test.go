package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
	if info.Platform == "" {
		t.Error("Platform should not be empty")
	}

	expectedPlatform := runtime.GOOS + "/" + runtime.GOARCH
	if info.Platform != expectedPlatform {
		t.Errorf("Expected platform %s, got %s", expectedPlatform, info.Platform)
	}
}

func TestString(t *testing.T) {
	origVersion, origCommit, origBranch, origDate := Version, GitCommit, GitBranch, BuildDate
	defer func() { Version, GitCommit, GitBranch, BuildDate = origVersion, origCommit, origBranch, origDate }()

	Version, GitCommit, GitBranch, BuildDate = "1.0.0", "", "", ""
	str := String()
	if !strings.Contains(str, "1.0.0") {
		t.Errorf("String should contain version 1.0.0, got: %s", str)
	}

	Version, GitCommit, GitBranch, BuildDate = "1.0.0", "abcdef1234567890", "main", "2026-01-11"
	str = String()
	if !strings.Contains(str, "1.0.0") || !strings.Contains(str, "abcdef1") || !strings.Contains(str, "main") {
		t.Errorf("String should contain version/commit/branch, got: %s", str)
	}
}

func TestShort(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version, GitCommit = "1.0.0", ""
	if Short() != "1.0.0" {
		t.Errorf("expected '1.0.0', got %s", Short())
	}

	Version, GitCommit = "1.0.0", "abcdef1234567890"
	if Short() != "1.0.0-abcdef1" {
		t.Errorf("expected '1.0.0-abcdef1', got %s", Short())
	}
}

func TestUserAgent(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version, GitCommit = "1.0.0", ""
	if ua := UserAgent(); ua != "notify-gatewayd/1.0.0" {
		t.Errorf("expected 'notify-gatewayd/1.0.0', got %s", ua)
	}

	GitCommit = "abcdef1234567890"
	if ua := UserAgent(); ua != "notify-gatewayd/1.0.0-abcdef1" {
		t.Errorf("expected 'notify-gatewayd/1.0.0-abcdef1', got %s", ua)
	}
}

func TestGetModuleVersion(t *testing.T) {
	if v := GetModuleVersion(); v == "" {
		t.Error("GetModuleVersion should not return empty string")
	}
}

func TestPrintVersion(t *testing.T) {
	PrintVersion()
}

func TestPrintVersionJSON(t *testing.T) {
	PrintVersionJSON()
}

func TestVersionConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version constant should be set")
	}
	if !strings.HasPrefix(GoVersion, "go") {
		t.Errorf("GoVersion should start with 'go', got: %s", GoVersion)
	}
}

func TestInfoStruct(t *testing.T) {
	info := Info{
		Version:   "1.0.0",
		GitCommit: "abc123",
		GitBranch: "main",
		BuildDate: "2026-01-11",
		GoVersion: "go1.24.8",
		Platform:  "linux/amd64",
	}
	if info.Version != "1.0.0" || info.GitCommit != "abc123" || info.GitBranch != "main" {
		t.Errorf("unexpected Info fields: %+v", info)
	}
}
