package tiling

import (
	"testing"

	"github.com/1broseidon/spacetile/internal/platform"
)

func win(pid int32, idx uint32) platform.WindowID {
	return platform.WindowID{PID: pid, Idx: idx}
}

func framesByWindow(frames []WindowFrame) map[platform.WindowID]platform.Rect {
	out := make(map[platform.WindowID]platform.Rect, len(frames))
	for _, f := range frames {
		out[f.Window] = f.Rect
	}
	return out
}

var testScreen = platform.Rect{X: 0, Y: 0, Width: 1000, Height: 500}

func TestTraditional_AddSplitsEvenly(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)

	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if want := (platform.Rect{X: 0, Y: 0, Width: 500, Height: 500}); got[w1] != want {
		t.Errorf("w1 = %+v, want %+v", got[w1], want)
	}
	if want := (platform.Rect{X: 500, Y: 0, Width: 500, Height: 500}); got[w2] != want {
		t.Errorf("w2 = %+v, want %+v", got[w2], want)
	}
	if sel, ok := s.SelectedWindow(layout); !ok || sel != w2 {
		t.Errorf("selected = %v, want %v", sel, w2)
	}
}

func TestTraditional_GapsShrinkFrames(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)

	gaps := Gaps{OuterX: 10, OuterY: 10, InnerX: 20}
	got := framesByWindow(s.CalculateLayout(layout, testScreen, gaps))
	// tiling area is 980x480 at (10,10); two columns of 480 with a 20px gap
	if want := (platform.Rect{X: 10, Y: 10, Width: 480, Height: 480}); got[w1] != want {
		t.Errorf("w1 = %+v, want %+v", got[w1], want)
	}
	if want := (platform.Rect{X: 510, Y: 10, Width: 480, Height: 480}); got[w2] != want {
		t.Errorf("w2 = %+v, want %+v", got[w2], want)
	}
}

func TestTraditional_BSPSplitsSelectedLeaf(t *testing.T) {
	s := NewTraditionalSystem(true)
	layout := s.CreateLayout()
	w1, w2, w3 := win(10, 1), win(10, 2), win(10, 3)
	for _, w := range []platform.WindowID{w1, w2, w3} {
		s.AddWindowAfterSelection(layout, w)
	}

	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	tests := []struct {
		w    platform.WindowID
		want platform.Rect
	}{
		{w1, platform.Rect{X: 0, Y: 0, Width: 500, Height: 500}},
		{w2, platform.Rect{X: 500, Y: 0, Width: 500, Height: 250}},
		{w3, platform.Rect{X: 500, Y: 250, Width: 500, Height: 250}},
	}
	for _, tt := range tests {
		if got[tt.w] != tt.want {
			t.Errorf("%v = %+v, want %+v", tt.w, got[tt.w], tt.want)
		}
	}
}

func TestTraditional_MoveFocus(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)

	if got, ok := s.MoveFocus(layout, DirLeft); !ok || got != w1 {
		t.Fatalf("MoveFocus(left) = %v, %v; want %v", got, ok, w1)
	}
	if _, ok := s.MoveFocus(layout, DirLeft); ok {
		t.Fatalf("MoveFocus(left) at edge should report no target")
	}
	if _, ok := s.MoveFocus(layout, DirUp); ok {
		t.Fatalf("MoveFocus(up) in a horizontal split should report no target")
	}
	if got, ok := s.MoveFocus(layout, DirRight); !ok || got != w2 {
		t.Fatalf("MoveFocus(right) = %v, %v; want %v", got, ok, w2)
	}
}

func TestTraditional_RemoveWindowGivesSpaceBack(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)
	s.RemoveWindow(w2)

	frames := s.CalculateLayout(layout, testScreen, Gaps{})
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Window != w1 || frames[0].Rect != testScreen {
		t.Fatalf("remaining frame = %+v, want w1 filling the screen", frames[0])
	}
	if sel, ok := s.SelectedWindow(layout); !ok || sel != w1 {
		t.Fatalf("selection = %v, want %v", sel, w1)
	}
}

func TestTraditional_SetWindowsForAppReconciles(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	a1, a2, b1 := win(10, 1), win(10, 2), win(20, 1)
	s.AddWindowAfterSelection(layout, b1)
	s.SetWindowsForApp(layout, 10, []platform.WindowID{a2, a1})
	if got := len(s.Windows(layout)); got != 3 {
		t.Fatalf("expected 3 windows, got %d", got)
	}

	s.SetWindowsForApp(layout, 10, []platform.WindowID{a2})
	if s.ContainsWindow(layout, a1) {
		t.Fatalf("a1 should have been removed")
	}
	if !s.ContainsWindow(layout, a2) || !s.ContainsWindow(layout, b1) {
		t.Fatalf("a2 and b1 should remain: %v", s.Windows(layout))
	}
}

func TestTraditional_FullscreenOverridesFrame(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)

	s.ToggleFullscreen(layout)
	if !s.HasAnyFullscreen(layout) {
		t.Fatalf("expected a fullscreen window")
	}
	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{OuterX: 5, OuterY: 5}))
	if got[w2] != testScreen {
		t.Fatalf("fullscreen frame = %+v, want %+v", got[w2], testScreen)
	}

	s.ToggleFullscreen(layout)
	if s.HasAnyFullscreen(layout) {
		t.Fatalf("second toggle should clear fullscreen")
	}
}

func TestTraditional_SwapWindows(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)

	if !s.SwapWindows(layout, w1, w2) {
		t.Fatalf("SwapWindows returned false")
	}
	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	if got[w2].X != 0 || got[w1].X != 500 {
		t.Fatalf("after swap w1.X=%v w2.X=%v, want 500 and 0", got[w1].X, got[w2].X)
	}
	if s.SwapWindows(layout, w1, win(99, 1)) {
		t.Fatalf("swapping with an unknown window should fail")
	}
}

func TestTraditional_CloneIsIndependent(t *testing.T) {
	s := NewTraditionalSystem(false)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)

	clone := s.CloneLayout(layout)
	s.RemoveLayout(layout)
	if got := s.Windows(clone); len(got) != 2 {
		t.Fatalf("clone lost windows: %v", got)
	}
	if sel, ok := s.SelectedWindow(clone); !ok || sel != w2 {
		t.Fatalf("clone selection = %v, want %v", sel, w2)
	}
}

func TestTraditional_DocumentRoundTrip(t *testing.T) {
	s := NewTraditionalSystem(true)
	layout := s.CreateLayout()
	for i := uint32(1); i <= 4; i++ {
		s.AddWindowAfterSelection(layout, win(10, i))
	}
	s.SelectWindow(layout, win(10, 2))
	want := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{InnerX: 4, InnerY: 4}))

	restored := NewTraditionalSystem(true)
	id := restored.restore(s.document(layout))
	got := framesByWindow(restored.CalculateLayout(id, testScreen, Gaps{InnerX: 4, InnerY: 4}))
	if len(got) != len(want) {
		t.Fatalf("restored %d frames, want %d", len(got), len(want))
	}
	for w, r := range want {
		if got[w] != r {
			t.Errorf("%v = %+v, want %+v", w, got[w], r)
		}
	}
	if sel, ok := restored.SelectedWindow(id); !ok || sel != win(10, 2) {
		t.Errorf("restored selection = %v, want %v", sel, win(10, 2))
	}
}
