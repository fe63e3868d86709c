package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, dir string, args ...string) (string, string) {
	t.Helper()
	t.Setenv("PROVISION_STORE_DRIVER", "sqlite")
	t.Setenv("PROVISION_SQLITE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("PROVISION_REDIS_ADDR", "")
	t.Setenv("INSTALL_STEP_DELAY", "1ms")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--redis-addr", ""}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("provisionctl %v: %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String(), stderr.String()
}

func TestSeedRequestApproveCheck(t *testing.T) {
	dir := t.TempDir()

	out, _ := runCLI(t, dir, "seed-catalog", filepath.Join("..", "..", "catalog.yaml"))
	if !strings.HasPrefix(out, "seeded ") {
		t.Fatalf("unexpected seed output %q", out)
	}

	out, _ = runCLI(t, dir, "-o", "json", "request", "please install git")
	if !strings.Contains(out, `"software": "Git"`) {
		t.Fatalf("request did not raise a Git ticket: %s", out)
	}
	id := extract(out, `"ticket_id": "`)
	if id == "" {
		t.Fatalf("no ticket id in %s", out)
	}

	out, _ = runCLI(t, dir, "-o", "json", "ticket", id)
	if !strings.Contains(out, `"approval": "pending"`) {
		t.Fatalf("expected a pending ticket: %s", out)
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("PROVISION_STORE_DRIVER", "mysql")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "mysql") {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func extract(s, prefix string) string {
	i := strings.Index(s, prefix)
	if i < 0 {
		return ""
	}
	rest := s[i+len(prefix):]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		return rest[:j]
	}
	return ""
}
