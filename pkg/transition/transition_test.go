package transition

import (
	"testing"
	"time"
)

func TestReadyFalseBeforeWindowElapses(t *testing.T) {
	m := New()
	start := time.Unix(1000, 0)
	m.Arm(start)

	if m.Ready(start.Add(4 * time.Second)) {
		t.Fatal("expected not ready before the 5s window elapses")
	}
}

func TestReadyTrueAfterWindowElapses(t *testing.T) {
	m := New()
	start := time.Unix(1000, 0)
	m.Arm(start)

	if !m.Ready(start.Add(5 * time.Second)) {
		t.Fatal("expected ready once the 5s window has elapsed")
	}
}

func TestDisarmClearsPending(t *testing.T) {
	m := New()
	start := time.Unix(1000, 0)
	m.Arm(start)
	m.Disarm()

	if m.Pending() {
		t.Fatal("expected Disarm to clear the pending transition")
	}
	if m.Ready(start.Add(10 * time.Second)) {
		t.Fatal("expected Ready to be false once disarmed")
	}
}
