package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, h *Handle, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.Events():
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return nil
		}
	}
}

func assertNoEvent(t *testing.T, h *Handle) {
	t.Helper()

	select {
	case ev := <-h.Events():
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}
