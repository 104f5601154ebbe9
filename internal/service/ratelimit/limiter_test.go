package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesBurst(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("a", 3, 1) {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow("a", 3, 1) {
		t.Fatalf("bucket should be empty after burst")
	}
}

func TestAllowRefills(t *testing.T) {
	base := time.Now()
	l := New()
	l.now = func() time.Time { return base }

	if !l.Allow("a", 1, 2) {
		t.Fatalf("first request should pass")
	}
	if l.Allow("a", 1, 2) {
		t.Fatalf("bucket should be drained")
	}

	base = base.Add(time.Second)
	if !l.Allow("a", 1, 2) {
		t.Fatalf("bucket should refill after a second")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatalf("key a should pass")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("key b should have its own bucket")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("key a should be drained")
	}
}
