/*
Copyright © 2026 GyroArena contributors
*/

package main

import "fmt"

// Character size and world bounds, in percent of the arena.
const (
	CharacterWidth  = 5.0
	CharacterHeight = 8.0

	// The character's left edge is clamped into [0, boundRight-CharacterWidth].
	boundRight = 95.0

	// Dropping past this y respawns the character.
	fallThreshold = 100.0

	spawnX = 15.0
	spawnY = 50.0

	// A landing counts when the character's bottom edge ends the tick within
	// landingBand of the platform top, and started the tick no deeper than
	// crossingBand below it. The second check prevents side clips from
	// registering as landings.
	landingBand  = 12.0
	crossingBand = 8.0

	// TicksPerSecond is the fixed simulation rate, independent of rendering.
	TicksPerSecond = 60
)

// PhysicsProfile is one named movement tuning. All values are per-tick.
type PhysicsProfile struct {
	Name         string  `json:"name"`
	Gravity      float64 `json:"gravity"`
	JumpForce    float64 `json:"jumpForce"`
	MaxFallSpeed float64 `json:"maxFallSpeed"`
	MaxSpeed     float64 `json:"maxSpeed"`
	Acceleration float64 `json:"acceleration"`
	Deceleration float64 `json:"deceleration"`
	AirControl   float64 `json:"airControl"`
}

// SnappyProfile is the default tuning: quick falls, tight steering.
func SnappyProfile() PhysicsProfile {
	return PhysicsProfile{
		Name:         "snappy",
		Gravity:      0.4,
		JumpForce:    -10,
		MaxFallSpeed: 12,
		MaxSpeed:     4,
		Acceleration: 0.5,
		Deceleration: 0.3,
		AirControl:   0.7,
	}
}

// FloatyProfile hangs longer at the jump apex and slides more.
func FloatyProfile() PhysicsProfile {
	return PhysicsProfile{
		Name:         "floaty",
		Gravity:      0.25,
		JumpForce:    -8,
		MaxFallSpeed: 9,
		MaxSpeed:     3.5,
		Acceleration: 0.35,
		Deceleration: 0.2,
		AirControl:   0.85,
	}
}

func profileByName(name string) (PhysicsProfile, error) {
	switch name {
	case "snappy":
		return SnappyProfile(), nil
	case "floaty":
		return FloatyProfile(), nil
	default:
		return PhysicsProfile{}, fmt.Errorf("unknown physics profile %q (want snappy or floaty)", name)
	}
}

// CharacterState is the simulation output, mutated once per tick and
// read-only everywhere else. Position is the top-left corner in percent
// coordinates.
type CharacterState struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VelocityX   float64 `json:"velocityX"`
	VelocityY   float64 `json:"velocityY"`
	IsGrounded  bool    `json:"isGrounded"`
	FacingRight bool    `json:"facingRight"`
	IsJumping   bool    `json:"isJumping"`
}

func spawnState() CharacterState {
	return CharacterState{X: spawnX, Y: spawnY, FacingRight: true}
}

// Engine advances one character at a fixed timestep against a platform list.
// It is not safe for concurrent use; the owning tick loop is the only caller.
type Engine struct {
	profile PhysicsProfile
	state   CharacterState

	// Held intents. Left and right are mutually exclusive; jump is a
	// one-shot flag consumed the instant it triggers.
	heldLeft  bool
	heldRight bool
	heldJump  bool
}

func NewEngine(profile PhysicsProfile) *Engine {
	return &Engine{
		profile: profile,
		state:   spawnState(),
	}
}

// Apply folds one discrete control action into the held-keys set.
func (e *Engine) Apply(action Action) {
	switch action {
	case ActionLeft:
		e.heldLeft = true
		e.heldRight = false
	case ActionRight:
		e.heldRight = true
		e.heldLeft = false
	case ActionStop:
		e.heldLeft = false
		e.heldRight = false
	case ActionJump:
		e.heldJump = true
	case ActionNone:
	}
}

// Held reports the current held-direction flags.
func (e *Engine) Held() (left, right, jump bool) {
	return e.heldLeft, e.heldRight, e.heldJump
}

// State returns the character state as of the last completed tick.
func (e *Engine) State() CharacterState {
	return e.state
}

// Profile returns the active tuning.
func (e *Engine) Profile() PhysicsProfile {
	return e.profile
}

// SetProfile swaps the tuning mid-game. Position and velocity carry over.
func (e *Engine) SetProfile(profile PhysicsProfile) {
	e.profile = profile
}

// ResetCharacter forces the character back to the spawn point with zero
// velocity. Platform data is untouched.
func (e *Engine) ResetCharacter() {
	e.state = spawnState()
}

// Step runs one fixed 1/60s tick and returns the new state. The platform
// list is static for the duration of the tick. Platforms must not vertically
// overlap each other; if they do, the last match wins.
func (e *Engine) Step(platforms []PlatformRect) CharacterState {
	p := e.profile
	s := e.state
	prevBottom := s.Y + CharacterHeight

	accel := p.Acceleration
	decel := p.Deceleration
	if !s.IsGrounded {
		accel *= p.AirControl
		decel *= p.AirControl
	}

	switch {
	case e.heldLeft:
		s.VelocityX -= accel
		if s.VelocityX < -p.MaxSpeed {
			s.VelocityX = -p.MaxSpeed
		}
		s.FacingRight = false
	case e.heldRight:
		s.VelocityX += accel
		if s.VelocityX > p.MaxSpeed {
			s.VelocityX = p.MaxSpeed
		}
		s.FacingRight = true
	case s.VelocityX > 0:
		s.VelocityX -= decel
		if s.VelocityX < 0 {
			s.VelocityX = 0
		}
	case s.VelocityX < 0:
		s.VelocityX += decel
		if s.VelocityX > 0 {
			s.VelocityX = 0
		}
	}

	// The flag is consumed only when the jump fires, so a press made just
	// before landing still triggers on the landing tick.
	if e.heldJump && s.IsGrounded {
		s.VelocityY = p.JumpForce
		s.IsGrounded = false
		s.IsJumping = true
		e.heldJump = false
	}

	s.VelocityY += p.Gravity
	if s.VelocityY > p.MaxFallSpeed {
		s.VelocityY = p.MaxFallSpeed
	}

	s.X += s.VelocityX
	s.Y += s.VelocityY

	s.IsGrounded = false
	for _, obj := range platforms {
		overlap := s.X+CharacterWidth > obj.X && s.X < obj.X+obj.Width
		bottom := s.Y + CharacterHeight

		if overlap &&
			s.VelocityY >= 0 &&
			bottom >= obj.Y &&
			bottom <= obj.Y+landingBand &&
			prevBottom <= obj.Y+crossingBand {
			s.Y = obj.Y - CharacterHeight
			s.VelocityY = 0
			s.IsGrounded = true
			s.IsJumping = false
		}
	}

	if s.X < 0 {
		s.X = 0
	}
	if s.X > boundRight-CharacterWidth {
		s.X = boundRight - CharacterWidth
	}

	if s.Y > fallThreshold {
		s.X = spawnX
		s.Y = spawnY
		s.VelocityX = 0
		s.VelocityY = 0
	}

	e.state = s
	return s
}
