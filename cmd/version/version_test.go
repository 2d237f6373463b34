package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInfo(t *testing.T) {
	Version, GitCommit, BuildTime = "v1.0.0", "abcdef", "2025-01-01"
	info := BuildInfo()
	assert.Contains(t, info, "v1.0.0")
	assert.Contains(t, info, "abcdef")
	assert.Contains(t, info, "2025-01-01")
	assert.Contains(t, info, runtime.Version())
	assert.Contains(t, info, runtime.GOOS+"/"+runtime.GOARCH)
}
