/*
Copyright © 2026 GyroArena contributors
*/

package main

import "testing"

func TestDefaultRoomObjectsAreValid(t *testing.T) {
	objects := DefaultRoomObjects()

	if err := ValidateRoomObjects(objects); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}
	if objects[0].ID != FloorID {
		t.Errorf("first default object is %q, want the floor", objects[0].ID)
	}
}

func TestValidateRoomObjects(t *testing.T) {
	floor := PlatformRect{ID: FloorID, Name: "Floor", X: 0, Y: 85, Width: 100, Height: 15}

	cases := []struct {
		name    string
		objects []PlatformRect
		wantErr bool
	}{
		{
			name:    "floor alone",
			objects: []PlatformRect{floor},
		},
		{
			name: "floor plus furniture",
			objects: []PlatformRect{
				floor,
				{ID: "sofa", Name: "Sofa", X: 10, Y: 70, Width: 20, Height: 15},
			},
		},
		{
			name:    "missing floor",
			objects: []PlatformRect{{ID: "sofa", Name: "Sofa", X: 10, Y: 70, Width: 20, Height: 15}},
			wantErr: true,
		},
		{
			name: "two floors",
			objects: []PlatformRect{
				floor,
				{ID: "floor2", Name: "Floor", X: 0, Y: 85, Width: 100, Height: 15},
			},
			wantErr: false,
		},
		{
			name:    "duplicate ids",
			objects: []PlatformRect{floor, {ID: FloorID, Name: "Again", X: 0, Y: 10, Width: 100, Height: 5}},
			wantErr: true,
		},
		{
			name:    "empty id",
			objects: []PlatformRect{floor, {Name: "Ghost", X: 1, Y: 1, Width: 1, Height: 1}},
			wantErr: true,
		},
		{
			name:    "zero width",
			objects: []PlatformRect{floor, {ID: "line", Name: "Line", X: 1, Y: 1, Width: 0, Height: 1}},
			wantErr: true,
		},
		{
			name:    "partial floor",
			objects: []PlatformRect{{ID: FloorID, Name: "Floor", X: 10, Y: 85, Width: 80, Height: 15}},
			wantErr: true,
		},
		{
			name:    "empty layout",
			objects: nil,
			wantErr: true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateRoomObjects(c.objects)
			if (err != nil) != c.wantErr {
				t.Errorf("ValidateRoomObjects() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestCloneRoomObjectsIsIndependent(t *testing.T) {
	objects := DefaultRoomObjects()
	clone := cloneRoomObjects(objects)

	clone[0].X = 42
	if objects[0].X == 42 {
		t.Error("mutating the clone changed the original")
	}

	if cloneRoomObjects(nil) != nil {
		t.Error("clone of nil is not nil")
	}
}
