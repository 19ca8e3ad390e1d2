/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Action is the discrete control vocabulary shared by controllers and the
// physics engine. Left/right/stop are level changes on the held-direction
// state; jump is an edge.
type Action string

const (
	ActionLeft  Action = "left"
	ActionRight Action = "right"
	ActionJump  Action = "jump"
	ActionStop  Action = "stop"
	ActionNone  Action = "none"
)

// ParseAction validates an action received off the wire.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionLeft, ActionRight, ActionJump, ActionStop, ActionNone:
		return Action(s), nil
	default:
		return ActionNone, fmt.Errorf("unknown control action %q", s)
	}
}

// ControlIntent is one discrete controller event. The timestamp orders
// intents for staleness checks only; it carries no causality.
type ControlIntent struct {
	Action    Action `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// NewControlIntent stamps an action with the current wall clock in
// milliseconds.
func NewControlIntent(action Action) ControlIntent {
	return ControlIntent{
		Action:    action,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Sensor failures surfaced by the tilt model. Unsupported is reported once
// at setup; permission denial must never degrade silently into wrong data.
var (
	ErrOrientationUnsupported = errors.New("device orientation is not supported on this device")
	ErrPermissionDenied       = errors.New("permission denied for device orientation")
)

const (
	// maxTiltDegrees maps a 45 degree tilt to full deflection.
	maxTiltDegrees = 45.0

	// tiltThreshold is the normalized deflection past which a discrete
	// direction is reported instead of stop.
	tiltThreshold = 0.25
)

// TiltModel converts raw device-orientation angles (beta: front/back tilt,
// gamma: left/right tilt, both in degrees) into normalized deflections and
// discrete actions. A calibration offset captured on demand makes "flat" the
// rest position.
type TiltModel struct {
	mu          sync.Mutex
	betaOffset  float64
	gammaOffset float64
	calibrated  bool
}

// Calibrate captures the current resting angles as the zero point.
func (t *TiltModel) Calibrate(beta, gamma float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.betaOffset = beta
	t.gammaOffset = gamma
	t.calibrated = true
}

// Calibrated reports whether a zero point has been captured.
func (t *TiltModel) Calibrated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calibrated
}

// Normalize maps live angles into [-1, 1] on each axis, relative to the
// calibration offset. Hosts surface these floats for visual feedback.
func (t *TiltModel) Normalize(beta, gamma float64) (x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	x = clampUnit((gamma - t.gammaOffset) / maxTiltDegrees)
	y = clampUnit((beta - t.betaOffset) / maxTiltDegrees)
	return x, y
}

// Action reduces live angles to the discrete vocabulary: sign plus threshold
// on the horizontal axis.
func (t *TiltModel) Action(beta, gamma float64) Action {
	x, _ := t.Normalize(beta, gamma)
	switch {
	case x < -tiltThreshold:
		return ActionLeft
	case x > tiltThreshold:
		return ActionRight
	default:
		return ActionStop
	}
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// repeatInterval is how often a held button is re-transmitted, for transports
// where a later unrelated write would otherwise overwrite the held state.
const repeatInterval = 50 * time.Millisecond

// Repeater re-sends a held action at a steady rate until stopped. Start on
// press, Stop on release or teardown; Stop is safe to call repeatedly and
// before Start.
type Repeater struct {
	mu   sync.Mutex
	stop chan struct{}
}

// Start begins repeating action through send, replacing any prior repeat.
func (r *Repeater) Start(action Action, send func(Action)) {
	r.mu.Lock()
	if r.stop != nil {
		close(r.stop)
	}
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	send(action)

	go func() {
		ticker := time.NewTicker(repeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				send(action)
			}
		}
	}()
}

// Stop cancels the active repeat, if any.
func (r *Repeater) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}
