package config

import "testing"

func TestParseCSV(t *testing.T) {
	got := parseCSV("a, b, ,c,,")
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected values: %#v", got)
	}
}

func TestParseAnyCSV(t *testing.T) {
	raw := []any{"x", " ", "y"}
	got := parseAnyCSV(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0] != "x" || got[1] != "y" {
		t.Fatalf("unexpected values: %#v", got)
	}
}

func TestApplyConfigMapSnapshotPolicy(t *testing.T) {
	cfg := Config{SnapshotEvery: 20, CommandRetryMax: 3}
	problems := make([]Problem, 0)
	applyConfigMap(&cfg, map[string]any{
		"SNAPSHOT_EVERY_EVENTS": 50,
		"COMMAND_RETRY_MAX":     "1",
	}, &problems)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %#v", problems)
	}
	if cfg.SnapshotEvery != 50 {
		t.Fatalf("expected SnapshotEvery 50, got %d", cfg.SnapshotEvery)
	}
	if cfg.CommandRetryMax != 1 {
		t.Fatalf("expected CommandRetryMax 1, got %d", cfg.CommandRetryMax)
	}
}

func TestApplyConfigMapRejectsBadFiscalStartDay(t *testing.T) {
	cfg := Config{}
	problems := make([]Problem, 0)
	applyConfigMap(&cfg, map[string]any{"FISCAL_MONTH_START_DAY": "twenty"}, &problems)
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %#v", problems)
	}
}
