/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"errors"
	"fmt"
)

// FloorID is the reserved id of the mandatory floor rect. The floor can
// never be deleted and always spans the full arena width at the bottom band.
const FloorID = "floor"

// PlatformRect is an axis-aligned rectangle in percent-of-arena coordinates,
// x/y being the top-left corner. The host owns the authoritative list;
// controllers only ever see read-only copies.
type PlatformRect struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultRoomObjects seeds a freshly created room with the floor and a few
// pieces of furniture to jump around on.
func DefaultRoomObjects() []PlatformRect {
	return []PlatformRect{
		{ID: FloorID, Name: "Floor", X: 0, Y: 85, Width: 100, Height: 15},
		{ID: "sofa", Name: "Sofa", X: 10, Y: 70, Width: 20, Height: 15},
		{ID: "table", Name: "Table", X: 40, Y: 60, Width: 15, Height: 10},
		{ID: "desk", Name: "Desk", X: 65, Y: 50, Width: 18, Height: 8},
		{ID: "shelf", Name: "Shelf", X: 85, Y: 35, Width: 12, Height: 6},
	}
}

// ValidateRoomObjects checks the layout invariants: unique stable ids,
// positive dimensions, and exactly one full-width floor rect.
func ValidateRoomObjects(objects []PlatformRect) error {
	seen := make(map[string]bool, len(objects))
	floors := 0

	for _, obj := range objects {
		if obj.ID == "" {
			return errors.New("platform rect with empty id")
		}
		if seen[obj.ID] {
			return fmt.Errorf("duplicate platform id: %q", obj.ID)
		}
		seen[obj.ID] = true

		if obj.Width <= 0 || obj.Height <= 0 {
			return fmt.Errorf("platform %q has non-positive dimensions", obj.ID)
		}

		if obj.ID == FloorID {
			floors++
			if obj.X != 0 || obj.Width != 100 {
				return fmt.Errorf("floor must span the full arena width, got x=%.1f width=%.1f", obj.X, obj.Width)
			}
		}
	}

	if floors != 1 {
		return fmt.Errorf("layout must contain exactly one floor rect, got %d", floors)
	}

	return nil
}

// cloneRoomObjects copies a platform list so the session can hand out
// snapshots without sharing backing arrays across goroutines.
func cloneRoomObjects(objects []PlatformRect) []PlatformRect {
	if objects == nil {
		return nil
	}
	out := make([]PlatformRect, len(objects))
	copy(out, objects)
	return out
}
