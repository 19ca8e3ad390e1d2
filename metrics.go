/*
Copyright © 2026 GyroArena contributors
*/

package main

import "sync/atomic"

// RoomMetrics tracks per-room counters for /metrics. All fields are updated
// atomically so the tick loop never blocks on a reader.
type RoomMetrics struct {
	TickCount      int64
	IntentsApplied int64
	IntentsDropped int64
	FramesDropped  int64
	UnknownDropped int64
	TotalTickNs    int64
}

func (m *RoomMetrics) IncIntentsApplied() { atomic.AddInt64(&m.IntentsApplied, 1) }
func (m *RoomMetrics) IncIntentsDropped() { atomic.AddInt64(&m.IntentsDropped, 1) }
func (m *RoomMetrics) IncFramesDropped()  { atomic.AddInt64(&m.FramesDropped, 1) }
func (m *RoomMetrics) IncUnknownDropped() { atomic.AddInt64(&m.UnknownDropped, 1) }

func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot returns a read-only copy for HTTP output.
func (m *RoomMetrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"tick_count":      ticks,
		"intents_applied": atomic.LoadInt64(&m.IntentsApplied),
		"intents_dropped": atomic.LoadInt64(&m.IntentsDropped),
		"frames_dropped":  atomic.LoadInt64(&m.FramesDropped),
		"unknown_dropped": atomic.LoadInt64(&m.UnknownDropped),
		"avg_tick_ms":     avgMs,
	}
}
