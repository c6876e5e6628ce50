package tiling

import (
	"reflect"
	"testing"

	"github.com/1broseidon/spacetile/internal/platform"
)

func newMasterStack(t *testing.T, n int) (*MasterStackSystem, LayoutID, []platform.WindowID) {
	t.Helper()
	s := NewMasterStackSystem(DefaultMasterStackSettings())
	layout := s.CreateLayout()
	var ws []platform.WindowID
	for i := 1; i <= n; i++ {
		w := win(10, uint32(i))
		s.AddWindowAfterSelection(layout, w)
		ws = append(ws, w)
	}
	return s, layout, ws
}

func assertContainers(t *testing.T, s *MasterStackSystem, layout LayoutID, master, stack []platform.WindowID) {
	t.Helper()
	if got := s.MasterWindows(layout); !reflect.DeepEqual(got, master) {
		t.Fatalf("master = %v, want %v", got, master)
	}
	if got := s.StackWindows(layout); !reflect.DeepEqual(got, stack) {
		t.Fatalf("stack = %v, want %v", got, stack)
	}
}

func TestMasterStack_AddAndGrowMasterCount(t *testing.T) {
	s, layout, ws := newMasterStack(t, 3)
	assertContainers(t, s, layout, ws[:1], ws[1:])

	s.AdjustMasterCount(1)
	assertContainers(t, s, layout, ws[:2], ws[2:])
}

func TestMasterStack_OverflowGoesToStackFront(t *testing.T) {
	s, layout, ws := newMasterStack(t, 3)
	s.AdjustMasterCount(1)
	s.AdjustMasterCount(-1)
	assertContainers(t, s, layout, ws[:1], ws[1:])

	s.AdjustMasterCount(-5)
	if got := s.Settings().Count; got != 1 {
		t.Fatalf("master count = %d, want floor of 1", got)
	}
}

func TestMasterStack_AddInsertsAfterStackSelection(t *testing.T) {
	s, layout, ws := newMasterStack(t, 4)
	if !s.SelectWindow(layout, ws[1]) {
		t.Fatalf("SelectWindow(%v) failed", ws[1])
	}
	w5 := win(10, 5)
	s.AddWindowAfterSelection(layout, w5)
	assertContainers(t, s, layout, ws[:1], []platform.WindowID{ws[1], w5, ws[2], ws[3]})
	if sel, ok := s.SelectedWindow(layout); !ok || sel != w5 {
		t.Fatalf("selection = %v, want %v", sel, w5)
	}
}

func TestMasterStack_RemoveMasterPullsFromStack(t *testing.T) {
	s, layout, ws := newMasterStack(t, 3)
	s.RemoveWindow(ws[0])
	assertContainers(t, s, layout, ws[1:2], ws[2:])
}

func TestMasterStack_PromoteToMaster(t *testing.T) {
	s, layout, ws := newMasterStack(t, 3)
	s.SelectWindow(layout, ws[2])
	s.PromoteToMaster(layout)
	assertContainers(t, s, layout, []platform.WindowID{ws[2]}, []platform.WindowID{ws[0], ws[1]})
	if sel, _ := s.SelectedWindow(layout); sel != ws[2] {
		t.Fatalf("selection = %v, want promoted window %v", sel, ws[2])
	}
}

func TestMasterStack_Frames(t *testing.T) {
	s, layout, ws := newMasterStack(t, 3)
	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	tests := []struct {
		w    platform.WindowID
		want platform.Rect
	}{
		{ws[0], platform.Rect{X: 0, Y: 0, Width: 600, Height: 500}},
		{ws[1], platform.Rect{X: 600, Y: 0, Width: 400, Height: 250}},
		{ws[2], platform.Rect{X: 600, Y: 250, Width: 400, Height: 250}},
	}
	for _, tt := range tests {
		if got[tt.w] != tt.want {
			t.Errorf("%v = %+v, want %+v", tt.w, got[tt.w], tt.want)
		}
	}
}

func TestMasterStack_RightSideMirrorsContainers(t *testing.T) {
	settings := DefaultMasterStackSettings()
	settings.Side = MasterRight
	s := NewMasterStackSystem(settings)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)

	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	if got[w1].X != 400 || got[w1].Width != 600 {
		t.Fatalf("master frame = %+v, want x=400 width=600", got[w1])
	}
	if got[w2].X != 0 {
		t.Fatalf("stack frame = %+v, want x=0", got[w2])
	}
}

func TestMasterStack_MoveFocusAcrossContainers(t *testing.T) {
	s, layout, ws := newMasterStack(t, 3)
	s.SelectWindow(layout, ws[0])
	got, ok := s.MoveFocus(layout, DirRight)
	if !ok || (got != ws[1] && got != ws[2]) {
		t.Fatalf("MoveFocus(right) from master = %v, %v; want a stack window", got, ok)
	}
	back, ok := s.MoveFocus(layout, DirLeft)
	if !ok || back != ws[0] {
		t.Fatalf("MoveFocus(left) from stack = %v, %v; want %v", back, ok, ws[0])
	}
	if _, ok := s.MoveFocus(layout, DirLeft); ok {
		t.Fatalf("MoveFocus(left) from master on the left should report no target")
	}
}

func TestMasterStack_RatioClamped(t *testing.T) {
	s, _, _ := newMasterStack(t, 2)
	s.AdjustMasterRatio(5)
	if got := s.Settings().Ratio; got != 0.95 {
		t.Fatalf("ratio = %v, want 0.95", got)
	}
	s.AdjustMasterRatio(-5)
	if got := s.Settings().Ratio; got != 0.05 {
		t.Fatalf("ratio = %v, want 0.05", got)
	}
}

func TestMasterStack_DocumentRoundTrip(t *testing.T) {
	s, layout, ws := newMasterStack(t, 4)
	s.SelectWindow(layout, ws[2])

	restored := NewMasterStackSystem(DefaultMasterStackSettings())
	id := restored.restore(s.document(layout))
	assertContainers(t, restored, id, s.MasterWindows(layout), s.StackWindows(layout))
	if sel, _ := restored.SelectedWindow(id); sel != ws[2] {
		t.Fatalf("restored selection = %v, want %v", sel, ws[2])
	}
}
