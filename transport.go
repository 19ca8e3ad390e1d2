/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"fmt"
	"sync"
)

// Message kinds crossing the room channel. Join flows controller→host,
// host-ack and objects flow host→controllers, control flows controller→host.
const (
	MsgJoin    = "join"
	MsgHostAck = "host-ack"
	MsgControl = "control"
	MsgObjects = "objects"
)

// Message is the tagged union carried by both transports. Exactly one
// payload field is set, according to Type; receivers switch exhaustively on
// Type and log unknown tags rather than dropping them silently.
type Message struct {
	Type    string         `json:"type"`
	Control *ControlIntent `json:"control,omitempty"`
	Objects []PlatformRect `json:"objects,omitempty"`
}

// Peer is one end of an open room channel. Recv is closed by Close; Publish
// delivers to every other peer on the same room, never back to the sender.
type Peer interface {
	Recv() <-chan Message
	Publish(Message) error
	Close()
}

// Transport abstracts how rooms are registered and how messages move between
// a host and its controllers. Sessions never branch on which implementation
// is behind the interface.
type Transport interface {
	// Register persists room existence under code, seeded with objects.
	Register(code string, objects []PlatformRect) error
	// Exists reports whether an active room is registered under code.
	Exists(code string) bool
	// Retire deactivates the room record. Safe to call repeatedly.
	Retire(code string) error
	// UpdateObjects replaces the persisted layout, for late joiners.
	UpdateObjects(code string, objects []PlatformRect) error
	// Subscribe opens a peer on the room's channel.
	Subscribe(code string) (Peer, error)
}

// peerSendBuffer sizes each peer's receive queue. Delivery is non-blocking;
// a full queue drops the message, matching best-effort channel semantics.
const peerSendBuffer = 16

// ChannelTransport is the in-process transport: a broadcast channel per room
// code plus a local existence registry. Ordered and instantaneous, but only
// visible inside one process.
type ChannelTransport struct {
	mu    sync.Mutex
	rooms map[string]*channelRoom
}

type channelRoom struct {
	active  bool
	objects []PlatformRect
	peers   map[*channelPeer]bool
}

func NewChannelTransport() *ChannelTransport {
	return &ChannelTransport{
		rooms: make(map[string]*channelRoom),
	}
}

func (t *ChannelTransport) Register(code string, objects []PlatformRect) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rooms[code] = &channelRoom{
		active:  true,
		objects: cloneRoomObjects(objects),
		peers:   make(map[*channelPeer]bool),
	}
	return nil
}

func (t *ChannelTransport) Exists(code string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[code]
	return ok && room.active
}

func (t *ChannelTransport) Retire(code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if room, ok := t.rooms[code]; ok {
		room.active = false
	}
	return nil
}

func (t *ChannelTransport) UpdateObjects(code string, objects []PlatformRect) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[code]
	if !ok {
		return fmt.Errorf("no room registered under %q", code)
	}
	room.objects = cloneRoomObjects(objects)
	return nil
}

func (t *ChannelTransport) Subscribe(code string) (Peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[code]
	if !ok || !room.active {
		return nil, fmt.Errorf("no active room under %q", code)
	}

	p := &channelPeer{
		transport: t,
		code:      code,
		recv:      make(chan Message, peerSendBuffer),
	}
	room.peers[p] = true
	return p, nil
}

type channelPeer struct {
	transport *ChannelTransport
	code      string
	recv      chan Message
	closed    bool
}

func (p *channelPeer) Recv() <-chan Message {
	return p.recv
}

func (p *channelPeer) Publish(msg Message) error {
	t := p.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[p.code]
	if !ok {
		return fmt.Errorf("no room registered under %q", p.code)
	}

	for other := range room.peers {
		if other == p {
			continue
		}
		select {
		case other.recv <- msg:
		default:
			// Slow peer; best-effort delivery prefers dropping over backpressure.
		}
	}
	return nil
}

func (p *channelPeer) Close() {
	t := p.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if room, ok := t.rooms[p.code]; ok {
		delete(room.peers, p)
	}
	close(p.recv)
}
