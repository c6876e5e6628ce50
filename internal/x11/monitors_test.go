package x11

import (
	"testing"

	"github.com/BurntSushi/xgbutil/ewmh"
)

func TestSortMonitors_PrimaryFirstThenPosition(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, Name: "DP-2", X: 1920},
		{ID: 1, Name: "HDMI-1", X: 3840},
		{ID: 2, Name: "eDP-1", X: 0, Primary: true},
		{ID: 3, Name: "DP-1", X: 0, Y: -1080},
	}
	SortMonitors(monitors)

	want := []string{"eDP-1", "DP-1", "DP-2", "HDMI-1"}
	for i, name := range want {
		if monitors[i].Name != name {
			t.Fatalf("monitors[%d] = %s, want %s (order %v)", i, monitors[i].Name, name, monitors)
		}
	}
}

func TestUpdateStrutsForMonitor(t *testing.T) {
	left := Monitor{X: 0, Y: 0, Width: 1920, Height: 1080}
	right := Monitor{X: 1920, Y: 0, Width: 1920, Height: 1080}

	// a 30px panel along the top of the left monitor only
	sp := &ewmh.WmStrutPartial{Top: 30, TopStartX: 0, TopEndX: 1919}

	var accLeft, accRight dockStruts
	updateStrutsForMonitor(&left, 3840, 1080, sp, &accLeft)
	updateStrutsForMonitor(&right, 3840, 1080, sp, &accRight)

	if accLeft.top != 30 {
		t.Errorf("left top strut = %d, want 30", accLeft.top)
	}
	if accRight != (dockStruts{}) {
		t.Errorf("right monitor got struts %+v", accRight)
	}
}

func TestIntersectionSize(t *testing.T) {
	tests := []struct {
		name string
		got  intersection
		want intersection
	}{
		{"overlap", intersectionSize(0, 0, 10, 10, 5, 5, 20, 20), intersection{w: 5, h: 5}},
		{"touching", intersectionSize(0, 0, 10, 10, 10, 0, 20, 10), intersection{}},
		{"disjoint", intersectionSize(0, 0, 10, 10, 30, 30, 40, 40), intersection{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %+v, want %+v", tt.got, tt.want)
			}
		})
	}
}

func TestNormalWindowType(t *testing.T) {
	tests := []struct {
		types []string
		want  bool
	}{
		{nil, true},
		{[]string{"_NET_WM_WINDOW_TYPE_NORMAL"}, true},
		{[]string{"_NET_WM_WINDOW_TYPE_DOCK"}, false},
		{[]string{"_NET_WM_WINDOW_TYPE_DIALOG"}, false},
		{[]string{"_KDE_NET_WM_WINDOW_TYPE_OVERRIDE", "_NET_WM_WINDOW_TYPE_NORMAL"}, true},
		{[]string{"_KDE_NET_WM_WINDOW_TYPE_OVERRIDE"}, false},
	}
	for _, tt := range tests {
		if got := normalWindowType(tt.types); got != tt.want {
			t.Errorf("normalWindowType(%v) = %v, want %v", tt.types, got, tt.want)
		}
	}
}
