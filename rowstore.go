/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// RoomRecord is the persisted row backing one room on the networked
// transport. The row always holds the latest control event and layout;
// intermediate values between two rapid writes are not recoverable.
// Retirement flips is_active rather than deleting the row, so teardown
// stays auditable.
type RoomRecord struct {
	RoomCode    string         `json:"room_code"`
	HostID      string         `json:"host_id"`
	RoomObjects []PlatformRect `json:"room_objects"`
	ControlData ControlIntent  `json:"control_data"`
	IsActive    bool           `json:"is_active"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RowTransport implements Transport over a durable record per room code with
// change subscriptions. Watchers observe the latest value only: each watcher
// queue holds one pending message, and a newer write replaces an unread one.
type RowTransport struct {
	mu   sync.Mutex
	rows map[string]*rowEntry
}

type rowEntry struct {
	rec      RoomRecord
	watchers map[*rowPeer]bool
}

func NewRowTransport() *RowTransport {
	return &RowTransport{
		rows: make(map[string]*rowEntry),
	}
}

func (t *RowTransport) Register(code string, objects []PlatformRect) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows[code] = &rowEntry{
		rec: RoomRecord{
			RoomCode:    code,
			HostID:      newHostID(),
			RoomObjects: cloneRoomObjects(objects),
			ControlData: ControlIntent{Action: ActionNone},
			IsActive:    true,
			UpdatedAt:   time.Now(),
		},
		watchers: make(map[*rowPeer]bool),
	}
	return nil
}

func (t *RowTransport) Exists(code string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.rows[code]
	return ok && entry.rec.IsActive
}

func (t *RowTransport) Retire(code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.rows[code]; ok {
		entry.rec.IsActive = false
		entry.rec.UpdatedAt = time.Now()
	}
	return nil
}

func (t *RowTransport) UpdateObjects(code string, objects []PlatformRect) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.rows[code]
	if !ok {
		return fmt.Errorf("no room record under %q", code)
	}
	entry.rec.RoomObjects = cloneRoomObjects(objects)
	entry.rec.UpdatedAt = time.Now()
	return nil
}

func (t *RowTransport) Subscribe(code string) (Peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.rows[code]
	if !ok || !entry.rec.IsActive {
		return nil, fmt.Errorf("no active room record under %q", code)
	}

	p := &rowPeer{
		transport: t,
		code:      code,
		recv:      make(chan Message, 1),
	}
	entry.watchers[p] = true
	return p, nil
}

// Record returns a copy of the current row, for diagnostics and tests.
func (t *RowTransport) Record(code string) (RoomRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.rows[code]
	if !ok {
		return RoomRecord{}, false
	}
	rec := entry.rec
	rec.RoomObjects = cloneRoomObjects(rec.RoomObjects)
	return rec, true
}

type rowPeer struct {
	transport *RowTransport
	code      string
	recv      chan Message
	closed    bool
}

func (p *rowPeer) Recv() <-chan Message {
	return p.recv
}

// Publish writes the message into the row's columns and notifies every other
// watcher of the change.
func (p *rowPeer) Publish(msg Message) error {
	t := p.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.rows[p.code]
	if !ok {
		return fmt.Errorf("no room record under %q", p.code)
	}

	switch msg.Type {
	case MsgControl:
		if msg.Control != nil {
			entry.rec.ControlData = *msg.Control
		}
	case MsgObjects, MsgHostAck:
		if msg.Objects != nil {
			entry.rec.RoomObjects = cloneRoomObjects(msg.Objects)
		}
	}
	entry.rec.UpdatedAt = time.Now()

	for other := range entry.watchers {
		if other == p {
			continue
		}
		other.notify(msg)
	}
	return nil
}

// notify replaces any unread message so the watcher always sees the newest
// row value, mirroring a realtime subscription that coalesces rapid writes.
func (p *rowPeer) notify(msg Message) {
	for {
		select {
		case p.recv <- msg:
			return
		default:
			select {
			case <-p.recv:
			default:
			}
		}
	}
}

func (p *rowPeer) Close() {
	t := p.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if entry, ok := t.rows[p.code]; ok {
		delete(entry.watchers, p)
	}
	close(p.recv)
}

func newHostID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
