/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"strings"
	"sync"
	"testing"
	"time"
)

const testJoinTimeout = 2 * time.Second

// Both transports must satisfy the same session contract.
func eachTransport(t *testing.T, fn func(t *testing.T, transport Transport)) {
	t.Helper()

	t.Run("channel", func(t *testing.T) {
		fn(t, NewChannelTransport())
	})
	t.Run("row", func(t *testing.T) {
		fn(t, NewRowTransport())
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRoomCodeGeneration(t *testing.T) {
	for i := 0; i < 10000; i++ {
		code := newRoomCode()
		if len(code) != roomCodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(roomCodeAlphabet, c) {
				t.Fatalf("code %q contains %q, outside the alphabet", code, c)
			}
		}
	}
}

func TestCreateRoomSeedsDefaultLayout(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		host := NewSession(transport, testJoinTimeout)
		defer host.Disconnect()

		code, err := host.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}
		if len(code) != roomCodeLength {
			t.Fatalf("room code %q", code)
		}
		if !host.IsHost() {
			t.Error("creator is not host")
		}
		if err := ValidateRoomObjects(host.RoomObjects()); err != nil {
			t.Errorf("seeded layout invalid: %v", err)
		}
		if !transport.Exists(code) {
			t.Error("room not registered on the transport")
		}
	})
}

func TestJoinRoomIsCaseInsensitive(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		host := NewSession(transport, testJoinTimeout)
		defer host.Disconnect()

		code, err := host.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}

		controller := NewSession(transport, testJoinTimeout)
		defer controller.Disconnect()

		if !controller.JoinRoom(strings.ToLower(code)) {
			t.Fatal("lowercase join failed")
		}
		if controller.RoomCode() != code {
			t.Errorf("controller code %q, want canonical %q", controller.RoomCode(), code)
		}
		if !controller.IsConnected() {
			t.Error("controller not connected after ack")
		}
		if got := len(controller.RoomObjects()); got != len(DefaultRoomObjects()) {
			t.Errorf("controller received %d objects, want %d", got, len(DefaultRoomObjects()))
		}
		waitFor(t, "host to see the join", host.IsConnected)
	})
}

func TestJoinUnknownRoomFails(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		host := NewSession(transport, testJoinTimeout)
		defer host.Disconnect()

		code, err := host.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}

		absent := "ZZZZ"
		if code == absent {
			absent = "ZZZY"
		}

		controller := NewSession(transport, testJoinTimeout)
		if controller.JoinRoom(absent) {
			t.Error("join of a never-created room succeeded")
		}
		if controller.RoomCode() != "" {
			t.Errorf("failed join left room code %q", controller.RoomCode())
		}
	})
}

func TestJoinTimesOutWithoutHost(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		// A registered room whose host never acknowledges.
		if err := transport.Register("AAAA", DefaultRoomObjects()); err != nil {
			t.Fatalf("Register: %v", err)
		}

		controller := NewSession(transport, 50*time.Millisecond)
		start := time.Now()
		if controller.JoinRoom("AAAA") {
			t.Fatal("join succeeded with no host listening")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("join took %s, want bounded by the timeout", elapsed)
		}
		if controller.IsConnected() {
			t.Error("controller connected after timeout")
		}
	})
}

func TestUpdateRoomObjectsPropagates(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		host := NewSession(transport, testJoinTimeout)
		defer host.Disconnect()
		code, err := host.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}

		controller := NewSession(transport, testJoinTimeout)
		defer controller.Disconnect()

		updated := make(chan []PlatformRect, 1)
		controller.OnObjects(func(objects []PlatformRect) {
			select {
			case updated <- objects:
			default:
			}
		})
		if !controller.JoinRoom(code) {
			t.Fatal("join failed")
		}

		layout := []PlatformRect{
			{ID: FloorID, Name: "Floor", X: 0, Y: 85, Width: 100, Height: 15},
			{ID: "crate", Name: "Crate", X: 5, Y: 75, Width: 10, Height: 10},
			{ID: "lamp", Name: "Lamp", X: 30, Y: 62, Width: 8, Height: 6},
			{ID: "bed", Name: "Bed", X: 55, Y: 70, Width: 25, Height: 12},
			{ID: "ledge", Name: "Ledge", X: 88, Y: 40, Width: 10, Height: 5},
		}
		if err := host.UpdateRoomObjects(layout); err != nil {
			t.Fatalf("UpdateRoomObjects: %v", err)
		}

		select {
		case got := <-updated:
			if len(got) != len(layout) {
				t.Fatalf("controller saw %d objects, want %d", len(got), len(layout))
			}
			for i := range layout {
				if got[i] != layout[i] {
					t.Errorf("object %d = %+v, want %+v", i, got[i], layout[i])
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatal("controller never received the updated layout")
		}
	})
}

func TestControllerCannotUpdateObjects(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		host := NewSession(transport, testJoinTimeout)
		defer host.Disconnect()
		code, _ := host.CreateRoom()

		controller := NewSession(transport, testJoinTimeout)
		defer controller.Disconnect()
		if !controller.JoinRoom(code) {
			t.Fatal("join failed")
		}

		if err := controller.UpdateRoomObjects(DefaultRoomObjects()); err == nil {
			t.Error("controller was allowed to update room objects")
		}
	})
}

func TestControlReachesHostHeldKeys(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		engine := NewEngine(SnappyProfile())
		var mu sync.Mutex

		host := NewSession(transport, testJoinTimeout)
		defer host.Disconnect()
		host.OnControl(func(in ControlIntent) {
			mu.Lock()
			engine.Apply(in.Action)
			mu.Unlock()
		})
		code, err := host.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}

		controller := NewSession(transport, testJoinTimeout)
		defer controller.Disconnect()
		if !controller.JoinRoom(code) {
			t.Fatal("join failed")
		}

		// Level semantics: left then stop with no tick between must leave
		// neither direction held, even if the transport coalesced the pair.
		controller.SendControl(ActionLeft)
		controller.SendControl(ActionStop)

		waitFor(t, "host to apply the stop", func() bool {
			mu.Lock()
			defer mu.Unlock()
			left, right, _ := engine.Held()
			return host.ControlData().Action == ActionStop && !left && !right
		})
	})
}

func TestDisconnectIsIdempotent(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		host := NewSession(transport, testJoinTimeout)
		code, err := host.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}

		host.Disconnect()
		host.Disconnect()

		if host.RoomCode() != "" || host.IsHost() || host.IsConnected() {
			t.Errorf("session not reset: code=%q host=%v connected=%v",
				host.RoomCode(), host.IsHost(), host.IsConnected())
		}
		if host.ControlData().Action != ActionNone {
			t.Errorf("control data not reset: %+v", host.ControlData())
		}
		if host.RoomObjects() != nil {
			t.Error("room objects not cleared")
		}

		// The retired room must refuse subsequent joins.
		controller := NewSession(transport, 50*time.Millisecond)
		if controller.JoinRoom(code) {
			t.Error("joined a retired room")
		}
	})
}

func TestJoinRoomOnLiveSessionFails(t *testing.T) {
	eachTransport(t, func(t *testing.T, transport Transport) {
		first := NewSession(transport, testJoinTimeout)
		defer first.Disconnect()
		firstCode, err := first.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}

		second := NewSession(transport, testJoinTimeout)
		defer second.Disconnect()
		secondCode, err := second.CreateRoom()
		if err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}

		controller := NewSession(transport, testJoinTimeout)
		defer controller.Disconnect()
		if !controller.JoinRoom(firstCode) {
			t.Fatal("join failed")
		}

		// A live session sticks to its room; it must not abandon the first
		// peer for a second join.
		if controller.JoinRoom(secondCode) {
			t.Error("second join on a live session succeeded")
		}
		if controller.RoomCode() != firstCode {
			t.Errorf("session moved to %q, want %q", controller.RoomCode(), firstCode)
		}

		// The host session refuses to join as well.
		if first.JoinRoom(secondCode) {
			t.Error("host session joined another room")
		}
	})
}

func TestCreateRoomTwiceFails(t *testing.T) {
	transport := NewChannelTransport()
	host := NewSession(transport, testJoinTimeout)
	defer host.Disconnect()

	if _, err := host.CreateRoom(); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := host.CreateRoom(); err == nil {
		t.Error("second CreateRoom on the same session succeeded")
	}
}
