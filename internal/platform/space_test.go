package platform

import "testing"

func TestDesktopSpace_RoundTrip(t *testing.T) {
	tests := []struct {
		desktop, screen int
	}{
		{0, 0},
		{0, 1},
		{3, 2},
		{11, 255},
	}
	seen := make(map[SpaceID]bool)
	for _, tt := range tests {
		s := DesktopSpace(tt.desktop, tt.screen)
		if !s.Valid() {
			t.Fatalf("DesktopSpace(%d, %d) = NoSpace", tt.desktop, tt.screen)
		}
		if seen[s] {
			t.Fatalf("DesktopSpace(%d, %d) = %d collides", tt.desktop, tt.screen, s)
		}
		seen[s] = true

		desktop, screen, ok := SplitDesktopSpace(s)
		if !ok || desktop != tt.desktop || screen != tt.screen {
			t.Errorf("SplitDesktopSpace(%d) = %d, %d, %v; want %d, %d", s, desktop, screen, ok, tt.desktop, tt.screen)
		}
	}
}

func TestDesktopSpace_Invalid(t *testing.T) {
	if got := DesktopSpace(-1, 0); got != NoSpace {
		t.Errorf("sticky desktop mapped to %d", got)
	}
	if got := DesktopSpace(0, 256); got != NoSpace {
		t.Errorf("out of range screen mapped to %d", got)
	}
	if _, _, ok := SplitDesktopSpace(NoSpace); ok {
		t.Error("NoSpace split succeeded")
	}
	if _, _, ok := SplitDesktopSpace(SpaceID(7)); ok {
		t.Error("space without a desktop split succeeded")
	}
}

func TestDisplayUUID_Stable(t *testing.T) {
	a := DisplayUUID("DP-1")
	if a != DisplayUUID("DP-1") {
		t.Fatal("DisplayUUID is not deterministic")
	}
	if a == DisplayUUID("DP-2") {
		t.Fatal("different outputs share a uuid")
	}
	if len(a) != 36 {
		t.Fatalf("DisplayUUID = %q, want canonical form", a)
	}
}

func TestScreenForRect(t *testing.T) {
	screens := []Rect{
		{X: 0, Y: 0, Width: 1000, Height: 800},
		{X: 1000, Y: 0, Width: 1000, Height: 800},
	}
	tests := []struct {
		name   string
		r      Rect
		want   int
		wantOK bool
	}{
		{"inside left", Rect{X: 100, Y: 100, Width: 200, Height: 200}, 0, true},
		{"center on right", Rect{X: 900, Y: 100, Width: 400, Height: 200}, 1, true},
		{"center offscreen", Rect{X: 1800, Y: 700, Width: 400, Height: 400}, 1, true},
		{"nowhere", Rect{X: 5000, Y: 5000, Width: 10, Height: 10}, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := screenForRect(screens, tt.r)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("screenForRect = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
