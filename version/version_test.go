package version

import (
	"runtime/debug"
	"testing"
	"time"
)

func TestFromBuild(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "4f1c2ab9e0d3"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-09-30T12:00:00Z"},
		},
	}

	info := fromBuild("1.4.0", "", bi)
	if info.Commit != "4f1c2ab" || !info.Dirty || info.GoVersion != "go1.26.0" {
		t.Errorf("info = %+v", info)
	}
	if want := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC); !info.BuildDate.Equal(want) {
		t.Errorf("build date = %v, want %v", info.BuildDate, want)
	}
	if info.Release() {
		t.Error("dirty build reported as release")
	}
	if got := info.String(); got != "1.4.0-4f1c2ab-dirty" {
		t.Errorf("String = %q", got)
	}
}

func TestFromBuild_LinkTimeWins(t *testing.T) {
	bi := &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"}}}
	info := fromBuild("2.0.0", "2026-10-01T08:00:00Z", bi)
	if info.BuildDate.Month() != time.October {
		t.Errorf("build date = %v", info.BuildDate)
	}
	if !info.Release() || info.String() != "2.0.0" {
		t.Errorf("info = %+v", info)
	}
}

func TestFromBuild_NoBuildInfo(t *testing.T) {
	info := fromBuild("dev", "not a time", nil)
	if info.Release() || !info.BuildDate.IsZero() || info.String() != "dev" {
		t.Errorf("info = %+v", info)
	}
}

func TestGet(t *testing.T) {
	if Get().Version != Version {
		t.Error("Get should report the link-time version")
	}
}
