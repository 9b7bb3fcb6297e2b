package timer

import (
	"errors"
	"testing"
	"time"
)

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer event")
	}
	return Event{}
}

func waitFor(t *testing.T, events <-chan Event, kind Kind) Event {
	t.Helper()
	for {
		ev := nextEvent(t, events)
		if ev.Kind == kind {
			return ev
		}
	}
}

func TestTimerCompletesInOrder(t *testing.T) {
	tm := New(WithTick(5 * time.Millisecond))
	defer tm.Close()

	if err := tm.Start(ModeFocus, 20*time.Millisecond); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	start := nextEvent(t, tm.Events())
	if start.Kind != KindStart || start.Mode != ModeFocus || start.Remaining != 20*time.Millisecond {
		t.Fatalf("unexpected start event: %#v", start)
	}

	wantRemaining := []time.Duration{15 * time.Millisecond, 10 * time.Millisecond, 5 * time.Millisecond, 0}
	for i, want := range wantRemaining {
		ev := nextEvent(t, tm.Events())
		if ev.Kind != KindTick {
			t.Fatalf("event %d: expected tick, got %s", i, ev.Kind)
		}
		if ev.Remaining != want || ev.Elapsed != 20*time.Millisecond-want {
			t.Fatalf("event %d: unexpected remaining %v elapsed %v", i, ev.Remaining, ev.Elapsed)
		}
	}

	done := nextEvent(t, tm.Events())
	if done.Kind != KindComplete || done.CompletedFocus != 1 {
		t.Fatalf("unexpected complete event: %#v", done)
	}
	if state := tm.State(); state.Running || state.CompletedFocus != 1 {
		t.Fatalf("unexpected state after completion: %#v", state)
	}
}

func TestBreakDoesNotCountAsFocus(t *testing.T) {
	tm := New(WithTick(2 * time.Millisecond))
	defer tm.Close()

	if err := tm.Start(ModeShortBreak, 4*time.Millisecond); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	done := waitFor(t, tm.Events(), KindComplete)
	if done.Mode != ModeShortBreak || done.CompletedFocus != 0 {
		t.Fatalf("unexpected complete event: %#v", done)
	}
}

func TestPauseResumeStop(t *testing.T) {
	tm := New(WithTick(5 * time.Millisecond))
	defer tm.Close()

	if err := tm.Start(ModeFocus, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, tm.Events(), KindTick)

	if !tm.Pause() {
		t.Fatal("Pause should succeed while running")
	}
	paused := waitFor(t, tm.Events(), KindPause)
	if paused.Remaining <= 0 || paused.Remaining >= time.Minute {
		t.Fatalf("unexpected paused remaining: %v", paused.Remaining)
	}
	if tm.Pause() {
		t.Fatal("second Pause should be a no-op")
	}
	if state := tm.State(); !state.Paused || state.Running {
		t.Fatalf("unexpected paused state: %#v", state)
	}

	if !tm.Resume() {
		t.Fatal("Resume should succeed while paused")
	}
	resumed := nextEvent(t, tm.Events())
	if resumed.Kind != KindStart || resumed.Remaining != paused.Remaining {
		t.Fatalf("resume should emit start with paused remaining, got %#v", resumed)
	}

	if !tm.Stop() {
		t.Fatal("Stop should succeed while running")
	}
	waitFor(t, tm.Events(), KindStop)
	if state := tm.State(); state.Running || state.Paused || state.Remaining != 0 {
		t.Fatalf("unexpected stopped state: %#v", state)
	}
	if tm.Stop() || tm.Resume() {
		t.Fatal("Stop and Resume should be no-ops when idle")
	}
}

func TestStartValidation(t *testing.T) {
	tm := New(WithTick(time.Hour))
	defer tm.Close()

	if err := tm.Start(ModeFocus, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if err := tm.Start("nap", time.Minute); err == nil {
		t.Fatal("expected unknown mode to be rejected")
	}
	if err := tm.Start(ModeFocus, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := tm.Start(ModeFocus, time.Minute); !errors.Is(err, ErrRunning) {
		t.Fatalf("expected ErrRunning, got %v", err)
	}
}

func TestCloseDrainsAndClosesChannel(t *testing.T) {
	tm := New(WithTick(time.Hour))
	if err := tm.Start(ModeLongBreak, time.Minute); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	tm.Close()

	var kinds []Kind
	for ev := range tm.Events() {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) != 1 || kinds[0] != KindStart {
		t.Fatalf("expected only the start event before close, got %v", kinds)
	}
	if err := tm.Start(ModeFocus, time.Minute); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestShutdownWithoutConsumer(t *testing.T) {
	tm := New(WithTick(time.Millisecond))
	if err := tm.Start(ModeFocus, time.Hour); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	// 没有人读取事件，tick 会占满事件缓冲
	time.Sleep(50 * time.Millisecond)
	tm.Stop()

	done := make(chan struct{})
	go func() {
		tm.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown blocked on undelivered events")
	}
	if _, ok := <-tm.Events(); ok {
		t.Fatal("event channel should be closed after Shutdown")
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 25 * time.Minute, want: "25:00"},
		{in: 90 * time.Second, want: "01:30"},
		{in: 0, want: "00:00"},
		{in: -time.Second, want: "00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Fatalf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
