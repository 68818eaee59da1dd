package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFlagsFromEnvVariables(t *testing.T) {
	t.Run("override flag with env var", func(t *testing.T) {
		fs := pflag.NewFlagSet("testing", pflag.ContinueOnError)
		got := fs.String("log-format", "text", "")
		t.Setenv("KVGATE_LOG_FORMAT", "json")
		require.NoError(t, SetFlagsFromEnvVariables(fs))
		require.NoError(t, fs.Parse(nil))
		assert.Equal(t, "json", *got)
	})
	t.Run("explicit flag beats env var", func(t *testing.T) {
		fs := pflag.NewFlagSet("testing", pflag.ContinueOnError)
		got := fs.String("foo", "default", "")
		t.Setenv("KVGATE_FOO", "env")
		require.NoError(t, SetFlagsFromEnvVariables(fs))
		require.NoError(t, fs.Parse([]string{"--foo", "flag"}))
		assert.Equal(t, "flag", *got)
	})
	t.Run("invalid env var value", func(t *testing.T) {
		fs := pflag.NewFlagSet("testing", pflag.ContinueOnError)
		_ = fs.Int("v", 0, "")
		t.Setenv("KVGATE_V", "loud")
		assert.Error(t, SetFlagsFromEnvVariables(fs))
	})
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("woops"))
	assert.Contains(t, buf.String(), "Error:")
	assert.Contains(t, buf.String(), "woops")
}
