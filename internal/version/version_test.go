package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfoUsesLinkerValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	Version, Commit, Date = "1.0.0", "abc123def456", "2024-01-01T12:00:00Z"

	info := GetInfo()
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123def456", info.Commit)
	assert.Equal(t, "2024-01-01T12:00:00Z", info.Date)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-03-02T10:00:00Z"},
		},
	}

	info := Info{Version: "dev", Commit: "unknown", Date: "unknown"}
	fillFromBuildInfo(&info, bi)
	assert.Equal(t, "v0.4.1", info.Version)
	assert.Equal(t, "0123456789abcdef", info.Commit)
	assert.Equal(t, "2025-03-02T10:00:00Z", info.Date)

	stamped := Info{Version: "1.2.0", Commit: "feedface", Date: "2025-01-01"}
	fillFromBuildInfo(&stamped, bi)
	assert.Equal(t, Info{Version: "1.2.0", Commit: "feedface", Date: "2025-01-01"}, stamped)

	devel := Info{Version: "dev"}
	fillFromBuildInfo(&devel, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	assert.Equal(t, "dev", devel.Version)
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "1.0.0",
		Commit:    "abc123def456",
		Date:      "2024-01-01",
		GoVersion: "go1.24.0",
		Platform:  "linux/amd64",
	}

	assert.Equal(t, "wakanet 1.0.0 (abc123de) built 2024-01-01 with go1.24.0 for linux/amd64", info.String())
	assert.Equal(t, "1.0.0", info.Short())
	assert.Equal(t, "wakanet/1.0.0 (linux/amd64)", info.UserAgent())
	assert.Equal(t, "abc123", Info{Commit: "abc123"}.ShortCommit())
}
