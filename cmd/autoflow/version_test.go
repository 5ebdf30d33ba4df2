package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/autoflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"version", "--short"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, autoflow.Version, strings.TrimSpace(out.String()))

	out.Reset()
	require.NoError(t, versionCmd.Flags().Set("short", "false"))
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "autoflow "+autoflow.Version+" (go"), out.String())
}
