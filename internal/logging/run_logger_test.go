package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestSetup_JSONWithRunFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	dir := t.TempDir()
	run, err := Setup(Options{Level: "debug", Format: "json", Dir: dir, Out: &buf})
	require.NoError(t, err)

	WithRunID("run-123")
	log.Info().Str("phase", "test").Msg("hello")
	require.NoError(t, run.Close())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "run-123", line["run_id"])

	require.True(t, strings.HasPrefix(filepath.Base(run.Path()), "run_"))
	data, err := os.ReadFile(run.Path())
	require.NoError(t, err)
	require.Contains(t, string(data), `"phase":"test"`)
}

func TestSetup_RejectsBadLevel(t *testing.T) {
	_, err := Setup(Options{Level: "chatty"})
	require.Error(t, err)
}

func TestRunLogNil(t *testing.T) {
	var r *RunLog
	require.Equal(t, "", r.Path())
	require.NoError(t, r.Close())
}
