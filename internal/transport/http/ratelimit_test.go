package http

import "testing"

func TestFrameLimiter(t *testing.T) {
	l := newFrameLimiter(3)
	for i := range 3 {
		if !l.allow() {
			t.Fatalf("frame %d denied", i+1)
		}
	}
	if l.allow() {
		t.Fatal("4th frame allowed")
	}

	l.counter.Store(0)
	if !l.allow() {
		t.Fatal("frame denied after reset")
	}
}

func TestFrameLimiterDisabled(t *testing.T) {
	l := newFrameLimiter(0)
	for range 100 {
		if !l.allow() {
			t.Fatal("disabled limiter denied a frame")
		}
	}
	l.startReset(nil)
}
