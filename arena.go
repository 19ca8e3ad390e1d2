/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Messages from the host display (the room editor lives there).
type displayMessage struct {
	Type    string         `json:"type"` // "objects", "reset"
	Objects []PlatformRect `json:"objects,omitempty"`
}

// Messages from a controller: discrete button events, raw tilt angles, or a
// sensor failure report.
type controllerMessage struct {
	Type   string  `json:"type"` // "control", "tilt", "calibrate", "sensor_error"
	Action string  `json:"action,omitempty"`
	Beta   float64 `json:"beta,omitempty"`
	Gamma  float64 `json:"gamma,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type stateFrame struct {
	Type      string         `json:"type"` // "state"
	Character CharacterState `json:"character"`
	Connected bool           `json:"connected"`
}

type joinedFrame struct {
	Type     string         `json:"type"` // "joined"
	RoomCode string         `json:"roomCode"`
	Objects  []PlatformRect `json:"objects"`
}

type tiltFrame struct {
	Type string  `json:"type"` // "tilt_state"
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type errorFrame struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type displayClient struct {
	conn *websocket.Conn
	send chan any
}

func (c *displayClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// ArenaRoom couples one host session with its physics engine and the display
// sockets watching it. The engine is touched only from the tick goroutine;
// everything else funnels through the intents and commands queues.
type ArenaRoom struct {
	code    string
	session *Session
	engine  *Engine
	metrics *RoomMetrics

	intents  chan ControlIntent
	commands chan func()
	stop     chan struct{}
	stopOnce sync.Once

	mu         sync.Mutex
	displays   map[*displayClient]bool
	profile    PhysicsProfile
	lastActive time.Time
}

func (r *ArenaRoom) touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

func (r *ArenaRoom) onIntent(in ControlIntent) {
	r.touch()
	select {
	case r.intents <- in:
	default:
		// Keep the tick on schedule; a level-based intent is safe to drop.
		r.metrics.IncIntentsDropped()
	}
}

// queue schedules fn for the next tick, where engine mutation is safe.
func (r *ArenaRoom) queue(fn func()) {
	select {
	case r.commands <- fn:
	case <-r.stop:
	}
}

func (r *ArenaRoom) attach(c *displayClient) {
	r.mu.Lock()
	r.displays[c] = true
	r.lastActive = time.Now()
	r.mu.Unlock()
}

func (r *ArenaRoom) detach(c *displayClient) {
	r.mu.Lock()
	if r.displays[c] {
		delete(r.displays, c)
		close(c.send)
	}
	r.lastActive = time.Now()
	r.mu.Unlock()
}

// run is the fixed-timestep host loop. Each tick drains pending commands and
// intents, advances the simulation one step, and fans the new state out.
func (r *ArenaRoom) run() {
	ticker := time.NewTicker(time.Second / TicksPerSecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			start := time.Now()

			for {
				select {
				case fn := <-r.commands:
					fn()
					continue
				default:
				}
				break
			}

			for {
				select {
				case in := <-r.intents:
					r.engine.Apply(in.Action)
					r.metrics.IncIntentsApplied()
					continue
				default:
				}
				break
			}

			state := r.engine.Step(r.session.RoomObjects())
			r.broadcast(state)

			r.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}

func (r *ArenaRoom) broadcast(state CharacterState) {
	frame := stateFrame{
		Type:      "state",
		Character: state,
		Connected: r.session.IsConnected(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.displays {
		select {
		case client.send <- frame:
		default:
			// A stalled display skips frames rather than stalling the room.
			r.metrics.IncFramesDropped()
		}
	}
}

func (r *ArenaRoom) shutdown() {
	r.stopOnce.Do(func() {
		close(r.stop)
		r.session.Disconnect()

		r.mu.Lock()
		for client := range r.displays {
			close(client.send)
			_ = client.conn.Close()
			delete(r.displays, client)
		}
		r.mu.Unlock()
	})
}

// ArenaManager owns every live room, keyed by room code, and reaps the idle
// ones. All rooms share one transport so controllers can find them.
type ArenaManager struct {
	mu          sync.Mutex
	rooms       map[string]*ArenaRoom
	transport   Transport
	idleTimeout time.Duration
}

func newArenaManager(transport Transport, idleTimeout time.Duration) *ArenaManager {
	am := &ArenaManager{
		rooms:       make(map[string]*ArenaRoom),
		transport:   transport,
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go am.reaperLoop()
	}
	return am
}

func (am *ArenaManager) create(cfg *Config) (*ArenaRoom, error) {
	profile, err := profileByName(cfg.physicsProfile)
	if err != nil {
		return nil, err
	}

	session := NewSession(am.transport, cfg.joinTimeout)
	room := &ArenaRoom{
		session:    session,
		engine:     NewEngine(profile),
		metrics:    &RoomMetrics{},
		intents:    make(chan ControlIntent, 64),
		commands:   make(chan func(), 16),
		stop:       make(chan struct{}),
		displays:   make(map[*displayClient]bool),
		profile:    profile,
		lastActive: time.Now(),
	}
	session.OnControl(room.onIntent)

	code, err := session.CreateRoom()
	if err != nil {
		return nil, err
	}
	room.code = code

	am.mu.Lock()
	am.rooms[code] = room
	am.mu.Unlock()

	go room.run()
	return room, nil
}

func (am *ArenaManager) get(code string) *ArenaRoom {
	am.mu.Lock()
	defer am.mu.Unlock()
	return am.rooms[strings.ToUpper(code)]
}

func (am *ArenaManager) reaperLoop() {
	ticker := time.NewTicker(am.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-am.idleTimeout)

		am.mu.Lock()
		for code, room := range am.rooms {
			room.mu.Lock()
			last := room.lastActive
			room.mu.Unlock()

			if last.Before(cutoff) {
				delete(am.rooms, code)
				logger.Infof("room %s reaped after idling", code)
				go room.shutdown()
			}
		}
		am.mu.Unlock()
	}
}

// redirectNewRoom creates a room and redirects the big screen to its page.
func redirectNewRoom(cfg *Config, path string, am *ArenaManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room, err := am.create(cfg)
		if err != nil {
			logger.Errorf("create room: %v", err)
			http.Error(w, "unable to create room", http.StatusInternalServerError)
			return
		}
		logger.Infof("GAMES: Created room %s/%s for %s", path, room.code, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+room.code, http.StatusTemporaryRedirect)
	}
}

func serveArenaPage(cfg *Config, am *ArenaManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := am.get(ps.ByName("code"))
		if room == nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		_, _ = w.Write([]byte(arenaPage(cfg, room.code)))
	}
}

func serveControllerEntry(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		_, _ = w.Write([]byte(controllerPage(cfg, strings.ToUpper(r.URL.Query().Get("room")))))
	}
}

// serveDisplayWS attaches a big-screen socket: it streams state frames out
// and accepts room-editor updates in.
func serveDisplayWS(cfg *Config, am *ArenaManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := am.get(ps.ByName("code"))
		if room == nil {
			http.NotFound(w, r)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnf("upgrade: %v", err)
			return
		}

		client := &displayClient{
			conn: conn,
			send: make(chan any, peerSendBuffer),
		}
		room.attach(client)

		go client.writePump()

		defer func() {
			room.detach(client)
			_ = conn.Close()
		}()

		for {
			var msg displayMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			room.touch()

			switch msg.Type {
			case "objects":
				if err := room.session.UpdateRoomObjects(msg.Objects); err != nil {
					select {
					case client.send <- errorFrame{Type: "error", Message: err.Error()}:
					default:
					}
				}
			case "reset":
				room.queue(room.engine.ResetCharacter)
			default:
				room.metrics.IncUnknownDropped()
			}
		}
	}
}

// serveControllerWS joins a phone to a room and relays its input. Button
// events repeat through a Repeater while held; tilt readings stream through
// the TiltModel.
func serveControllerWS(cfg *Config, am *ArenaManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := strings.ToUpper(r.URL.Query().Get("room"))
		if len(code) != roomCodeLength {
			http.Error(w, "missing or malformed room code", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		session := NewSession(am.transport, cfg.joinTimeout)
		if !session.JoinRoom(code) {
			_ = conn.WriteJSON(errorFrame{Type: "error", Message: "Room not found. Make sure the game is running on the big screen."})
			return
		}
		defer session.Disconnect()

		_ = conn.WriteJSON(joinedFrame{
			Type:     "joined",
			RoomCode: session.RoomCode(),
			Objects:  session.RoomObjects(),
		})

		tilt := &TiltModel{}
		repeater := &Repeater{}
		defer repeater.Stop()

		room := am.get(code)

		for {
			var msg controllerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}

			switch msg.Type {
			case "control":
				action, err := ParseAction(msg.Action)
				if err != nil {
					logger.Warnf("controller %s: %v", code, err)
					continue
				}
				switch action {
				case ActionLeft, ActionRight:
					// Held directions re-transmit so a later row write
					// cannot wipe the level state.
					repeater.Start(action, session.SendControl)
				case ActionJump:
					session.SendControl(ActionJump)
				default:
					repeater.Stop()
					session.SendControl(action)
				}
			case "tilt":
				session.SendControl(tilt.Action(msg.Beta, msg.Gamma))
				x, y := tilt.Normalize(msg.Beta, msg.Gamma)
				_ = conn.WriteJSON(tiltFrame{Type: "tilt_state", X: x, Y: y})
			case "calibrate":
				tilt.Calibrate(msg.Beta, msg.Gamma)
			case "sensor_error":
				// The phone degrades to button input; log once for diagnosis.
				switch msg.Error {
				case "unsupported":
					logger.Infof("controller %s: %v", code, ErrOrientationUnsupported)
				case "permission_denied":
					logger.Infof("controller %s: %v", code, ErrPermissionDenied)
				default:
					logger.Infof("controller %s sensor error: %s", code, msg.Error)
				}
			default:
				if room != nil {
					room.metrics.IncUnknownDropped()
				}
			}
		}
	}
}

// qrHandler renders the controller deep link as a PNG QR code.
func qrHandler(cfg *Config, am *ArenaManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := am.get(ps.ByName("code"))
		if room == nil {
			http.NotFound(w, r)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/controller?room=" + room.code

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func serveMetrics(cfg *Config, am *ArenaManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room := am.get(r.URL.Query().Get("room"))
		if room == nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"room":    room.code,
			"metrics": room.metrics.Snapshot(),
		})
	}
}

// handleAdminProfile reads or hot-swaps a room's movement tuning.
func handleAdminProfile(cfg *Config, am *ArenaManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room := am.get(r.URL.Query().Get("room"))
		if room == nil {
			http.NotFound(w, r)
			return
		}
		room.touch()

		switch r.Method {
		case http.MethodGet:
			room.mu.Lock()
			profile := room.profile
			room.mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(profile)
		case http.MethodPost:
			var body struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			profile, err := profileByName(body.Name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			room.mu.Lock()
			room.profile = profile
			room.mu.Unlock()
			room.queue(func() { room.engine.SetProfile(profile) })

			logger.Infof("room %s switched to profile %s", room.code, profile.Name)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// registerArenaGame sets up routes so that:
//   - $path                → creates a room and redirects to it
//   - $path/:code          → big-screen page for that room
//   - $path/:code/ws       → display socket (state out, editor in)
//   - $path/:code/qr       → PNG QR of the controller deep link
//   - /controller          → phone entry point (?room=CODE deep link)
//   - /controller/ws       → controller socket
//   - /metrics             → per-room counters
//   - /admin/profile       → movement tuning read/hot-swap
func registerArenaGame(cfg *Config, path string, mux *httprouter.Router) {
	am := newArenaManager(cfg.newTransport(), cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, am))

	mux.GET(cfg.prefix+path+"/:code", serveArenaPage(cfg, am))

	mux.GET(cfg.prefix+path+"/:code/ws", serveDisplayWS(cfg, am))

	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler(cfg, am))

	mux.GET(cfg.prefix+"/controller", serveControllerEntry(cfg))

	mux.GET(cfg.prefix+"/controller/ws", serveControllerWS(cfg, am))

	mux.GET(cfg.prefix+"/metrics", serveMetrics(cfg, am))

	mux.GET(cfg.prefix+"/admin/profile", handleAdminProfile(cfg, am))
	mux.POST(cfg.prefix+"/admin/profile", handleAdminProfile(cfg, am))
}
