package config

import "testing"

func TestTrashRetentionFallback(t *testing.T) {
	cfg := Config{}
	got := cfg.TrashRetention(42)
	if got != 42 {
		t.Errorf("expected fallback 42, got %v", got)
	}
}

func TestTrashRetentionOverride(t *testing.T) {
	cfg := Config{TrashRetentionHours: 2}
	got := cfg.TrashRetention(42)
	if got.Hours() != 2 {
		t.Errorf("expected 2h, got %v", got)
	}
}
