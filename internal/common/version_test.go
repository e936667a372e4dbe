package common

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo_LdflagsWin(t *testing.T) {
	oldVersion, oldBuild, oldCommit := Version, Build, GitCommit
	t.Cleanup(func() { Version, Build, GitCommit = oldVersion, oldBuild, oldCommit })

	Version, Build, GitCommit = "1.4.0", "2026-10-01T08:00:00Z", "abc1234"

	info := GetVersionInfo()

	assert.Equal(t, VersionInfo{
		Version:   "1.4.0",
		Build:     "2026-10-01T08:00:00Z",
		GitCommit: "abc1234",
		GoVersion: runtime.Version(),
	}, info)
	assert.Equal(t, "1.4.0 (build: 2026-10-01T08:00:00Z, commit: abc1234)", GetFullVersion())
}

func TestGetVersionInfo_Defaults(t *testing.T) {
	info := GetVersionInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "0123456", shortCommit("0123456789abcdef"))
	assert.Equal(t, "abc", shortCommit("abc"))
}
