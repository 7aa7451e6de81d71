package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestMigrate_Idempotent(t *testing.T) {
	d := openTestDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestValidationEvents_RoundTrip(t *testing.T) {
	d := openTestDB(t)

	events := []struct{ stage, event, detail string }{
		{"PROVISIONING", "stage_passed", ""},
		{"PATCH_APPLY", "stage_passed", ""},
		{"BUILD", "stage_failed", "exit 1"},
	}
	for _, e := range events {
		if err := d.LogValidationEvent("run-1", "owner/repo-5", e.stage, e.event, e.detail); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	if err := d.LogValidationEvent("run-1", "owner/repo-6", "PROVISIONING", "stage_failed", "bad revision"); err != nil {
		t.Fatalf("log: %v", err)
	}

	got, err := d.GetInstanceEvents("owner/repo-5")
	if err != nil {
		t.Fatalf("get instance events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Oldest first.
	if got[0].Stage != "PROVISIONING" || got[2].Stage != "BUILD" {
		t.Errorf("events out of order: %+v", got)
	}
	if got[2].Detail != "exit 1" {
		t.Errorf("detail = %q", got[2].Detail)
	}

	all, err := d.GetRunEvents("run-1")
	if err != nil {
		t.Fatalf("get run events: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 run events, got %d", len(all))
	}
}

func TestReset(t *testing.T) {
	d := openTestDB(t)
	if err := d.LogValidationEvent("run-1", "x-1", "BUILD", "stage_failed", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, err := d.GetInstanceEvents("x-1")
	if err != nil {
		t.Fatalf("get after reset: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events after reset, got %d", len(got))
	}
}
