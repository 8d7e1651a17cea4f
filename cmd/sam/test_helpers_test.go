package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	base       string
	workDir    string
	stateDir   string
	logDir     string
	configPath string
}

func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"SAM_WORKDIR", "SAM_ALLOWED_IDS", "SAM_BRIDGE_URL", "SAM_BRIDGE_TOKEN", "SAM_NTFY_TOPIC"} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		base:       base,
		workDir:    filepath.Join(base, "work"),
		stateDir:   filepath.Join(base, "state"),
		logDir:     filepath.Join(base, "logs"),
		configPath: filepath.Join(homeDir, ".config", "sam", "config.toml"),
	}
	content := fmt.Sprintf(
		"[paths]\nwork_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n[access]\nallowed_ids = [\"5511999990000\"]\n%s",
		env.workDir, env.stateDir, env.logDir, extra,
	)
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
