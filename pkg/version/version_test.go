package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	VersionCmd.SetOut(&out)
	VersionCmd.SetArgs(nil)
	require.NoError(t, VersionCmd.Execute())
	assert.Contains(t, out.String(), `"version": "dev"`)
	assert.Contains(t, out.String(), `"goVersion"`)
}
