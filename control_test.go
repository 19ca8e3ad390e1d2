/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestParseAction(t *testing.T) {
	for _, s := range []string{"left", "right", "jump", "stop", "none"} {
		action, err := ParseAction(s)
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", s, err)
		}
		if string(action) != s {
			t.Errorf("ParseAction(%q) = %q", s, action)
		}
	}

	if _, err := ParseAction("dash"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestTiltCalibration(t *testing.T) {
	tilt := &TiltModel{}

	if tilt.Calibrated() {
		t.Error("fresh model reports calibrated")
	}

	tilt.Calibrate(10, 20)
	if !tilt.Calibrated() {
		t.Error("model not calibrated after Calibrate")
	}

	if x, y := tilt.Normalize(10, 20); x != 0 || y != 0 {
		t.Errorf("rest position normalized to (%.2f, %.2f), want (0, 0)", x, y)
	}
}

func TestTiltNormalizeClamps(t *testing.T) {
	tilt := &TiltModel{}
	tilt.Calibrate(0, 0)

	cases := []struct {
		beta, gamma float64
		wantX       float64
		wantY       float64
	}{
		{0, 22.5, 0.5, 0},
		{0, 45, 1, 0},
		{0, 90, 1, 0},
		{0, -90, -1, 0},
		{-22.5, 0, 0, -0.5},
		{180, 0, 0, 1},
	}

	for _, c := range cases {
		x, y := tilt.Normalize(c.beta, c.gamma)
		if x != c.wantX || y != c.wantY {
			t.Errorf("Normalize(%.1f, %.1f) = (%.2f, %.2f), want (%.2f, %.2f)",
				c.beta, c.gamma, x, y, c.wantX, c.wantY)
		}
	}
}

func TestTiltAction(t *testing.T) {
	tilt := &TiltModel{}
	tilt.Calibrate(0, 0)

	cases := []struct {
		gamma float64
		want  Action
	}{
		{-45, ActionLeft},
		{-15, ActionLeft},
		{-5, ActionStop},
		{0, ActionStop},
		{5, ActionStop},
		{15, ActionRight},
		{45, ActionRight},
	}

	for _, c := range cases {
		if got := tilt.Action(0, c.gamma); got != c.want {
			t.Errorf("Action(gamma=%.1f) = %q, want %q", c.gamma, got, c.want)
		}
	}
}

func TestTiltActionRespectsCalibration(t *testing.T) {
	tilt := &TiltModel{}
	tilt.Calibrate(0, 30)

	// 30 degrees is the new rest position.
	if got := tilt.Action(0, 30); got != ActionStop {
		t.Errorf("calibrated rest = %q, want stop", got)
	}
	if got := tilt.Action(0, 0); got != ActionLeft {
		t.Errorf("tilt left of rest = %q, want left", got)
	}
}

func TestRepeaterRepeatsUntilStopped(t *testing.T) {
	var count int64
	r := &Repeater{}

	r.Start(ActionRight, func(Action) { atomic.AddInt64(&count, 1) })
	time.Sleep(8 * repeatInterval)
	r.Stop()

	sent := atomic.LoadInt64(&count)
	if sent < 3 {
		t.Fatalf("expected several re-transmissions, got %d", sent)
	}

	time.Sleep(4 * repeatInterval)
	if after := atomic.LoadInt64(&count); after != sent {
		t.Errorf("repeater kept sending after Stop: %d -> %d", sent, after)
	}
}

func TestRepeaterStartReplacesPrevious(t *testing.T) {
	var lefts, rights int64
	r := &Repeater{}
	defer r.Stop()

	send := func(a Action) {
		if a == ActionLeft {
			atomic.AddInt64(&lefts, 1)
		} else {
			atomic.AddInt64(&rights, 1)
		}
	}

	r.Start(ActionLeft, send)
	r.Start(ActionRight, send)
	before := atomic.LoadInt64(&lefts)
	time.Sleep(6 * repeatInterval)

	if after := atomic.LoadInt64(&lefts); after != before {
		t.Errorf("replaced repeat kept sending left: %d -> %d", before, after)
	}
	if atomic.LoadInt64(&rights) < 2 {
		t.Error("replacement repeat never sent")
	}
}

func TestRepeaterStopIsIdempotent(t *testing.T) {
	r := &Repeater{}

	// Stop before Start and repeated Stop must both be safe.
	r.Stop()
	r.Start(ActionLeft, func(Action) {})
	r.Stop()
	r.Stop()
}
