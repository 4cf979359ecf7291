package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dshills/recovery-go/recovery"
	"github.com/dshills/recovery-go/recovery/store"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// seed runs a two-computation job whose second computation fails, leaving
// a snapshot with steps and an error record.
func seed(t *testing.T, opts ...recovery.Option) {
	t.Helper()

	r, err := recovery.New(recovery.Dependencies{"model": "v2", "limits": map[string]interface{}{"max": 3}}, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	a := recovery.Func("extract", func(ctx context.Context, inst *recovery.Instance, _ interface{}) (interface{}, error) {
		for _, v := range []string{"page-1", "page-2"} {
			v := v
			if _, err := inst.Step(ctx, func(context.Context) (interface{}, error) { return v, nil }); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	b := recovery.Func("load", func(context.Context, *recovery.Instance, interface{}) (interface{}, error) {
		return nil, errors.New("warehouse unavailable")
	})

	if _, err := r.Run(context.Background(), recovery.Entries(a, b), nil); err == nil {
		t.Fatal("expected seeded run to fail")
	}
}

func seedFile(t *testing.T) string {
	t.Helper()
	loc := filepath.Join(t.TempDir(), "job.recovery")
	seed(t, recovery.WithRecoveryLocation(loc))
	return loc
}

func TestShow_Text(t *testing.T) {
	loc := seedFile(t)

	out, err := runCmd(t, "show", loc, "--steps")
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, out)
	}

	for _, want := range []string{
		"Snapshot " + loc,
		"model: v2",
		"extract: 2 steps",
		"[1] page-2",
		"Last failure: load",
		"warehouse unavailable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestShow_JSON(t *testing.T) {
	loc := seedFile(t)

	out, err := runCmd(t, "show", "--location", loc, "-o", "json")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var snap recovery.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if snap.Dependencies["model"] != "v2" {
		t.Errorf("unexpected dependencies: %v", snap.Dependencies)
	}
	if len(snap.Computations["extract"]) != 2 {
		t.Errorf("unexpected computations: %v", snap.Computations)
	}
	if snap.Error == nil || snap.Error.Computation != "load" {
		t.Errorf("unexpected error record: %+v", snap.Error)
	}
}

func TestShow_YAML(t *testing.T) {
	loc := seedFile(t)

	out, err := runCmd(t, "show", loc, "-o", "yaml")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid YAML output: %v\n%s", err, out)
	}
	if _, ok := doc["computations"]; !ok {
		t.Errorf("expected computations key, got %v", doc)
	}
}

func TestShow_Missing(t *testing.T) {
	_, err := runCmd(t, "show", filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestShow_UnknownFormat(t *testing.T) {
	loc := seedFile(t)
	if _, err := runCmd(t, "show", loc, "-o", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDeps(t *testing.T) {
	loc := seedFile(t)

	out, err := runCmd(t, "deps", loc, "-o", "json")
	if err != nil {
		t.Fatalf("deps failed: %v", err)
	}
	var deps map[string]interface{}
	if err := json.Unmarshal([]byte(out), &deps); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	limits, ok := deps["limits"].(map[string]interface{})
	if !ok || limits["max"] != float64(3) {
		t.Errorf("unexpected dependencies: %v", deps)
	}

	out, err = runCmd(t, "deps", loc)
	if err != nil {
		t.Fatalf("deps failed: %v", err)
	}
	if !strings.Contains(out, "model: v2") {
		t.Errorf("expected YAML dependencies, got:\n%s", out)
	}
}

func TestList(t *testing.T) {
	loc := seedFile(t)

	out, err := runCmd(t, "list", filepath.Dir(loc))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if strings.TrimSpace(out) != loc {
		t.Errorf("expected %s, got %q", loc, out)
	}
}

func TestClear(t *testing.T) {
	loc := seedFile(t)

	if _, err := runCmd(t, "clear", loc); err == nil {
		t.Fatal("expected clear without --yes to fail")
	}
	if _, err := os.Stat(loc); err != nil {
		t.Fatalf("expected snapshot to survive, got %v", err)
	}

	out, err := runCmd(t, "clear", loc, "--yes")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !strings.Contains(out, "Removed") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(loc); !os.IsNotExist(err) {
		t.Errorf("expected snapshot removed, got %v", err)
	}
}

func TestConfig_Environment(t *testing.T) {
	loc := seedFile(t)
	t.Setenv("RECOVERYCTL_LOCATION", loc)

	out, err := runCmd(t, "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "extract: 2 steps") {
		t.Errorf("expected snapshot from env location, got:\n%s", out)
	}
}

func TestConfig_File(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "recovery.db")

	tr, err := store.NewSQLiteTransport(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteTransport failed: %v", err)
	}
	seed(t, recovery.WithTransport(tr), recovery.WithRecoveryLocation("nightly"))
	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cfg := filepath.Join(dir, "recoveryctl.yaml")
	content := "transport: sqlite\nsqlite-path: " + dbPath + "\nlocation: nightly\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out, err := runCmd(t, "--config", cfg, "show")
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Snapshot nightly") || !strings.Contains(out, "extract: 2 steps") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = runCmd(t, "--config", cfg, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if strings.TrimSpace(out) != "nightly" {
		t.Errorf("expected nightly, got %q", out)
	}
}

func TestConfig_MissingFile(t *testing.T) {
	if _, err := runCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "show"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestOpenTarget_Invalid(t *testing.T) {
	tests := [][]string{
		{"show", "--transport", "ftp"},
		{"show", "--codec", "xml"},
		{"show", "--transport", "mysql"},
	}
	for _, args := range tests {
		if _, err := runCmd(t, args...); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "recoveryctl dev") || !strings.Contains(out, "Go version:") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
