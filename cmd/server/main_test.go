package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "tunnelgate v"))
}

func TestFlagValues_OnlyChanged(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags([]string{"--port", "3128", "--relay-mode", "linked"}))

	v := flagValues(rootCmd)
	require.NotNil(t, v.Port)
	assert.Equal(t, 3128, *v.Port)
	require.NotNil(t, v.RelayMode)
	assert.Equal(t, "linked", *v.RelayMode)
	assert.Nil(t, v.Host)
	assert.Nil(t, v.LogLevel)
}
