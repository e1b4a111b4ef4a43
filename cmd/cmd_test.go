package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reactionwatch/internal/config"
	"github.com/reactionwatch/internal/monitor"
	"github.com/reactionwatch/internal/state"
)

func clearPlainEnv(t *testing.T) {
	t.Helper()
	for name := range config.EnvKeys() {
		t.Setenv(name, "")
	}
}

func TestMaskSecret(t *testing.T) {
	require.Equal(t, "****", maskSecret("short"))
	require.Equal(t, "gh****yz", maskSecret("ghp_abcdefxyz"))
}

func TestCheckRequiredConfig_SMTP(t *testing.T) {
	clearPlainEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_1234567890")
	t.Setenv("GITHUB_USERNAME", "octocat")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	result := CheckRequiredConfig("smtp")
	require.ElementsMatch(t, []string{"SMTP_USER", "SMTP_PASSWORD", "EMAIL_FROM", "EMAIL_TO"}, result.Missing)
	require.Equal(t, "gh****90", result.Present["GITHUB_TOKEN"])
	require.Equal(t, "octocat", result.Present["GITHUB_USERNAME"])
	require.Equal(t, "smtp.example.com", result.Present["SMTP_HOST"])
}

func TestCheckRequiredConfig_LogTransport(t *testing.T) {
	clearPlainEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_1234567890")
	t.Setenv("GITHUB_USERNAME", "octocat")

	result := CheckRequiredConfig("log")
	require.Empty(t, result.Missing)
	require.NotEmpty(t, result.Warnings)
}

func TestCheckRequiredConfig_Resend(t *testing.T) {
	clearPlainEnv(t)

	result := CheckRequiredConfig("resend")
	require.Contains(t, result.Missing, "RESEND_API_KEY")
	require.NotContains(t, result.Missing, "SMTP_HOST")
}

func TestLoadEnvFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GITHUB_USERNAME=\"from-file\"\n# comment\n"), 0o644))
	t.Setenv("GITHUB_USERNAME", "from-env")

	require.NoError(t, LoadEnvFile(path))
	require.Equal(t, "from-file", os.Getenv("GITHUB_USERNAME"))

	require.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.GitHub.Token = "ghp_test"
	cfg.GitHub.Username = "octocat"
	cfg.Mail.Transport = "log"
	cfg.Mail.From = "bot@example.com"
	cfg.Mail.To = "a@example.com; b@example.com"
	cfg.Mail.SubjectPrefix = "[gh]"
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Port = 465
	cfg.SMTP.Secure = true
	cfg.State.Backend = state.BackendFile
	cfg.State.Path = filepath.Join(t.TempDir(), "seen.json")
	cfg.State.MaxEntries = 2
	cfg.Fetch.Concurrency = 2
	return cfg
}

func TestNotifierConfig(t *testing.T) {
	nc := notifierConfig(testConfig(t))
	require.Equal(t, []string{"a@example.com", "b@example.com"}, nc.To)
	require.Equal(t, "[gh]", nc.SubjectPrefix)
	require.Equal(t, 465, nc.SMTP.Port)
	require.True(t, nc.SMTP.Secure)
}

func TestBuildMonitor(t *testing.T) {
	cfg := testConfig(t)

	m, store, runMetrics, err := buildMonitor(context.Background(), cfg, monitor.Options{DryRun: true, RunID: "run-1"})
	require.NoError(t, err)
	require.NotNil(t, m)
	require.NotNil(t, runMetrics)
	require.NoError(t, store.Close())

	cfg.Mail.Transport = "pigeon"
	_, _, _, err = buildMonitor(context.Background(), cfg, monitor.Options{})
	require.Error(t, err)
}

func TestPrintStateAndPrune(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	printState(&buf, store, 10, time.Now())
	require.Contains(t, buf.String(), "Entries: 0")
	require.Contains(t, buf.String(), "Last updated: never")

	store.MarkSeen("1", 10)
	store.MarkSeen("2")
	store.MarkSeen("3", 30, 31)

	dropped, err := pruneState(ctx, store)
	require.NoError(t, err)
	require.Equal(t, 1, dropped)
	require.NoError(t, store.Close())

	reopened, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()
	reopened.Load(ctx)

	buf.Reset()
	updated := reopened.LastUpdated()
	require.NotNil(t, updated)
	printState(&buf, reopened, 1, updated.Add(2*time.Hour))
	out := buf.String()
	require.Contains(t, out, "Entries: 2")
	require.Contains(t, out, "2 hours ago")
	require.Contains(t, out, "3  2 reaction(s)")
	require.NotContains(t, out, "2  0 reaction(s)")
}
