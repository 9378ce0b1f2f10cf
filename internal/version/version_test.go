package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldVersion, oldCommit, oldDate })

	Version, Commit, Date = "v1.2.0", "abc1234", "2026-01-02"

	s := String()
	assert.Contains(t, s, "star-vault v1.2.0 (abc1234, built 2026-01-02, ")
	assert.Contains(t, s, runtime.GOOS+"/"+runtime.GOARCH+")")
}
