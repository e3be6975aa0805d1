package store

import (
	"strings"
	"testing"
)

func TestSortKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"valid timestamp", "1234567890123-abc.event", 1234567890123},
		{"no dash", "noDash.event", 0},
		{"empty", "", 0},
		{"leading dash", "-12345.event", 0},
		{"non-numeric prefix", "abc-123.event", 0},
		{"crash with marker", "1700000000000-fatal-xyz.crash", 1700000000000},
		{"zero timestamp", "0-abc.event", 0},
		{"full path ignored", "/spool/events/1234567890123-abc.event", 1234567890123},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SortKey(tt.in); got != tt.want {
				t.Errorf("SortKey(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSortByTimestampInvalidFirst(t *testing.T) {
	paths := []string{
		"300-c.event",
		"broken.event",
		"100-a.event",
		"-5.event",
		"200-b.event",
	}
	SortByTimestamp(paths)

	want := []string{
		"broken.event",
		"-5.event",
		"100-a.event",
		"200-b.event",
		"300-c.event",
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("position %d: got %q, want %q (full: %v)", i, paths[i], want[i], paths)
		}
	}
}

func TestSortByTimestampStableOnTies(t *testing.T) {
	paths := []string{"100-first.event", "100-second.event", "100-third.event"}
	SortByTimestamp(paths)

	if paths[0] != "100-first.event" || paths[2] != "100-third.event" {
		t.Errorf("equal keys must keep their relative order: %v", paths)
	}
}

func TestGeneratedFilenamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := eventFilename(1700000000000)
		if seen[name] {
			t.Fatalf("duplicate filename generated: %s", name)
		}
		seen[name] = true
		if SortKey(name) != 1700000000000 {
			t.Fatalf("generated name %q does not round-trip its timestamp", name)
		}
	}
}

func TestCrashFilenameEncodesMarker(t *testing.T) {
	name := crashFilename(1700000000000, "fatal")
	if !strings.HasPrefix(name, "1700000000000-fatal-") {
		t.Errorf("marker not in expected position: %s", name)
	}
	if !strings.HasSuffix(name, CrashExt) {
		t.Errorf("missing crash extension: %s", name)
	}
	if SortKey(name) != 1700000000000 {
		t.Errorf("sort key = %d", SortKey(name))
	}
}
