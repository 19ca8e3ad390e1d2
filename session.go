/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"
)

// Room codes are short enough to type on a phone and avoid the glyphs
// people misread (I, O, 0, 1). 32^4 codes; creation retries on collision
// with an active room.
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 4
)

func newRoomCode() string {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, roomCodeLength)
	for i := range out {
		// 32 divides 256, so the modulo draw is uniform.
		out[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
	}
	return string(out)
}

// Session is one end of a room: either the host that owns the authoritative
// platform list, or a controller feeding it intents. All mutation funnels
// through the methods below; there is no ambient shared state.
type Session struct {
	transport   Transport
	joinTimeout time.Duration

	mu          sync.Mutex
	roomCode    string
	isHost      bool
	isConnected bool
	controlData ControlIntent
	roomObjects []PlatformRect
	peer        Peer
	acked       chan struct{}
	onControl   func(ControlIntent)
	onObjects   func([]PlatformRect)
}

// NewSession builds a session over the given transport. joinTimeout bounds
// how long JoinRoom waits for the host acknowledgement.
func NewSession(transport Transport, joinTimeout time.Duration) *Session {
	return &Session{
		transport:   transport,
		joinTimeout: joinTimeout,
		controlData: ControlIntent{Action: ActionNone},
	}
}

// OnControl registers a callback invoked for each control intent the host
// receives. Must be set before CreateRoom.
func (s *Session) OnControl(fn func(ControlIntent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onControl = fn
}

// OnObjects registers a callback invoked when a controller receives an
// updated platform list. Must be set before JoinRoom.
func (s *Session) OnObjects(fn func([]PlatformRect)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onObjects = fn
}

// CreateRoom registers a new room, seeds the default layout, opens the
// receive channel, and returns the room code. The caller becomes the host.
func (s *Session) CreateRoom() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomCode != "" {
		return "", errors.New("session already belongs to a room")
	}

	var code string
	for {
		code = newRoomCode()
		if !s.transport.Exists(code) {
			break
		}
	}

	objects := DefaultRoomObjects()
	if err := s.transport.Register(code, objects); err != nil {
		return "", err
	}

	peer, err := s.transport.Subscribe(code)
	if err != nil {
		return "", err
	}

	s.roomCode = code
	s.isHost = true
	s.roomObjects = objects
	s.peer = peer
	go s.receive(peer)

	logger.Infof("room %s created", code)
	return code, nil
}

// JoinRoom connects a controller to an existing room. The code is
// case-insensitive. Returns false when the session already belongs to a
// room, when no active room is registered under the code, or when the host
// does not acknowledge within the join timeout.
func (s *Session) JoinRoom(code string) bool {
	code = strings.ToUpper(code)

	s.mu.Lock()
	if existing := s.roomCode; existing != "" {
		s.mu.Unlock()
		logger.Warnf("join %s refused: session already belongs to room %s", code, existing)
		return false
	}
	s.mu.Unlock()

	if !s.transport.Exists(code) {
		logger.Infof("join %s refused: room not found", code)
		return false
	}

	peer, err := s.transport.Subscribe(code)
	if err != nil {
		logger.Infof("join %s refused: %v", code, err)
		return false
	}

	acked := make(chan struct{})

	s.mu.Lock()
	s.roomCode = code
	s.isHost = false
	s.peer = peer
	s.acked = acked
	s.mu.Unlock()

	go s.receive(peer)

	if err := peer.Publish(Message{Type: MsgJoin}); err != nil {
		logger.Warnf("join %s: publish failed: %v", code, err)
	}

	select {
	case <-acked:
		logger.Infof("joined room %s", code)
		return true
	case <-time.After(s.joinTimeout):
		logger.Infof("join %s timed out waiting for host", code)
		s.Disconnect()
		return false
	}
}

// SendControl publishes one control intent, fire-and-forget. Publish errors
// are logged and left alone; the next level-state send self-heals.
func (s *Session) SendControl(action Action) {
	s.mu.Lock()
	peer := s.peer
	intent := NewControlIntent(action)
	s.controlData = intent
	s.mu.Unlock()

	if peer == nil {
		return
	}
	if err := peer.Publish(Message{Type: MsgControl, Control: &intent}); err != nil {
		logger.Warnf("send control: %v", err)
	}
}

// UpdateRoomObjects replaces the authoritative platform list, re-publishes
// it to subscribers, and updates the persisted record for late joiners.
// Host only.
func (s *Session) UpdateRoomObjects(objects []PlatformRect) error {
	if err := ValidateRoomObjects(objects); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.isHost {
		s.mu.Unlock()
		return errors.New("only the host may update room objects")
	}
	code := s.roomCode
	peer := s.peer
	s.roomObjects = cloneRoomObjects(objects)
	s.mu.Unlock()

	if err := s.transport.UpdateObjects(code, objects); err != nil {
		return err
	}
	if err := peer.Publish(Message{Type: MsgObjects, Objects: cloneRoomObjects(objects)}); err != nil {
		logger.Warnf("publish objects: %v", err)
	}
	return nil
}

// Disconnect tears the session down: the subscription is closed, the room
// record is retired when hosting, and state returns to its initial empty
// form. Safe to call repeatedly and on teardown paths.
func (s *Session) Disconnect() {
	s.mu.Lock()
	peer := s.peer
	code := s.roomCode
	wasHost := s.isHost

	s.peer = nil
	s.acked = nil
	s.roomCode = ""
	s.isHost = false
	s.isConnected = false
	s.controlData = ControlIntent{Action: ActionNone}
	s.roomObjects = nil
	s.mu.Unlock()

	if peer != nil {
		peer.Close()
	}
	if wasHost && code != "" {
		if err := s.transport.Retire(code); err != nil {
			logger.Warnf("retire %s: %v", code, err)
		}
		logger.Infof("room %s retired", code)
	}
}

// receive dispatches inbound messages until the peer closes. Exhaustive over
// the message kinds; unknown tags are logged and dropped.
func (s *Session) receive(peer Peer) {
	for msg := range peer.Recv() {
		switch msg.Type {
		case MsgJoin:
			s.handleJoin(peer)
		case MsgHostAck:
			s.handleHostAck(msg)
		case MsgControl:
			s.handleControl(msg)
		case MsgObjects:
			s.handleObjects(msg)
		default:
			logger.Warnf("dropping message with unknown type %q", msg.Type)
		}
	}
}

func (s *Session) handleJoin(peer Peer) {
	s.mu.Lock()
	if !s.isHost {
		s.mu.Unlock()
		return
	}
	s.isConnected = true
	objects := cloneRoomObjects(s.roomObjects)
	s.mu.Unlock()

	if err := peer.Publish(Message{Type: MsgHostAck, Objects: objects}); err != nil {
		logger.Warnf("host ack: %v", err)
	}
}

func (s *Session) handleHostAck(msg Message) {
	s.mu.Lock()
	if s.isHost {
		s.mu.Unlock()
		return
	}
	s.isConnected = true
	if msg.Objects != nil {
		s.roomObjects = cloneRoomObjects(msg.Objects)
	}
	acked := s.acked
	s.acked = nil
	s.mu.Unlock()

	if acked != nil {
		close(acked)
	}
}

func (s *Session) handleControl(msg Message) {
	if msg.Control == nil {
		return
	}

	s.mu.Lock()
	if !s.isHost {
		s.mu.Unlock()
		return
	}
	// Intents are a level, not an edge: anything older than the latest
	// applied state is stale and can be dropped.
	if msg.Control.Timestamp < s.controlData.Timestamp {
		s.mu.Unlock()
		return
	}
	s.controlData = *msg.Control
	fn := s.onControl
	s.mu.Unlock()

	if fn != nil {
		fn(*msg.Control)
	}
}

func (s *Session) handleObjects(msg Message) {
	s.mu.Lock()
	if s.isHost {
		s.mu.Unlock()
		return
	}
	s.roomObjects = cloneRoomObjects(msg.Objects)
	fn := s.onObjects
	s.mu.Unlock()

	if fn != nil {
		fn(msg.Objects)
	}
}

// RoomCode returns the assigned code, or "" outside a room.
func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode
}

// IsHost reports whether this session owns the room.
func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isHost
}

// IsConnected reports whether the first handshake with a peer completed.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isConnected
}

// ControlData returns the most recent control intent seen by this session.
func (s *Session) ControlData() ControlIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlData
}

// RoomObjects returns a snapshot of the platform list.
func (s *Session) RoomObjects() []PlatformRect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRoomObjects(s.roomObjects)
}
