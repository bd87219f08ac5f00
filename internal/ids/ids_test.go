package ids

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := New()
		if id == "" {
			t.Fatal("empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestFallback_Format(t *testing.T) {
	id := fallback(time.Unix(0, 255))
	if !strings.HasPrefix(id, "ff-") {
		t.Fatalf("fallback id = %q, want ff- prefix", id)
	}
	if fallback(time.Unix(0, 255)) == id {
		t.Fatal("fallback ids should differ in their random suffix")
	}
}

func TestSequence(t *testing.T) {
	next := Sequence("act")
	if got := next(); got != "act-1" {
		t.Fatalf("got %q", got)
	}
	if got := next(); got != "act-2" {
		t.Fatalf("got %q", got)
	}
}
