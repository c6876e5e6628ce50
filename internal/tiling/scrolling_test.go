package tiling

import (
	"math"
	"testing"

	"github.com/1broseidon/spacetile/internal/platform"
)

// newStrip builds a two-column strip on testScreen and runs one layout pass
// so the scroll geometry is known. The second column is selected.
func newStrip(t *testing.T, settings ScrollingSettings) (*ScrollingSystem, LayoutID, platform.WindowID, platform.WindowID) {
	t.Helper()
	s := NewScrollingSystem(settings)
	layout := s.CreateLayout()
	w1, w2 := win(10, 1), win(10, 2)
	s.AddWindowAfterSelection(layout, w1)
	s.AddWindowAfterSelection(layout, w2)
	s.CalculateLayout(layout, testScreen, Gaps{})
	return s, layout, w1, w2
}

func TestScrolling_ColumnsAndAlignment(t *testing.T) {
	s, layout, w1, w2 := newStrip(t, DefaultScrollingSettings())
	if got := s.Columns(layout); len(got) != 2 || got[0][0] != w1 || got[1][0] != w2 {
		t.Fatalf("columns = %v", got)
	}
	// the selected second column is aligned to the left edge
	if got := s.ScrollOffset(layout); got != 500 {
		t.Fatalf("offset = %v, want 500", got)
	}
	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	if got[w2] != (platform.Rect{X: 0, Y: 0, Width: 500, Height: 500}) {
		t.Fatalf("w2 = %+v", got[w2])
	}
	if got[w1].X != -500 {
		t.Fatalf("w1.X = %v, want -500", got[w1].X)
	}
}

func TestScrolling_ScrollStaysWithinBounds(t *testing.T) {
	s, layout, _, _ := newStrip(t, DefaultScrollingSettings())
	starts := s.ColumnStarts(layout)
	lo, hi := 0.0, starts[len(starts)-1]
	for _, delta := range []float64{0.3, 2, -5, 1.7, -0.2, 10, -0.4, -0.4, -3} {
		s.ScrollByDelta(layout, delta)
		if off := s.ScrollOffset(layout); off < lo || off > hi {
			t.Fatalf("after delta %v offset %v left [%v, %v]", delta, off, lo, hi)
		}
	}
}

func TestScrolling_SnapLandsOnColumnStart(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		want  float64
	}{
		{"near first", -0.7, 0},
		{"near second", -0.2, 500},
		{"below midpoint", -0.6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, layout, _, _ := newStrip(t, DefaultScrollingSettings())
			s.ScrollByDelta(layout, tt.delta)
			s.SnapToNearestColumn(layout)
			got := s.ScrollOffset(layout)
			if got != tt.want {
				t.Fatalf("snapped offset = %v, want %v", got, tt.want)
			}
			found := false
			for _, st := range s.ColumnStarts(layout) {
				if math.Abs(st-got) < 1e-9 {
					found = true
				}
			}
			if !found {
				t.Fatalf("offset %v is not a column start %v", got, s.ColumnStarts(layout))
			}
		})
	}
}

func TestScrolling_OverscrollReportsBoundaryOnce(t *testing.T) {
	settings := DefaultScrollingSettings()
	settings.OverscrollThreshold = 1.5
	s, layout, _, _ := newStrip(t, settings)

	var hits []Direction
	for i := 0; i < 4; i++ {
		if dir, hit := s.ScrollByDelta(layout, -1); hit {
			hits = append(hits, dir)
			if i != 2 {
				t.Fatalf("boundary hit on call %d, want call 2", i)
			}
		}
	}
	if len(hits) != 1 || hits[0] != DirLeft {
		t.Fatalf("hits = %v, want exactly one left", hits)
	}
}

func TestScrolling_OverscrollRight(t *testing.T) {
	s, layout, _, _ := newStrip(t, DefaultScrollingSettings())
	dir, hit := s.ScrollByDelta(layout, 1)
	if !hit || dir != DirRight {
		t.Fatalf("ScrollByDelta(1) at right edge = %v, %v; want right boundary", dir, hit)
	}
}

func TestScrolling_CenterOverrideClearsOnSelectionChange(t *testing.T) {
	s, layout, w1, w2 := newStrip(t, DefaultScrollingSettings())
	s.CenterSelection(layout)
	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	if got[w2].X != 250 {
		t.Fatalf("centered w2.X = %v, want 250", got[w2].X)
	}

	s.SelectWindow(layout, w1)
	got = framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	if got[w1].X != 0 {
		t.Fatalf("w1.X after selection change = %v, want 0", got[w1].X)
	}
}

func TestScrolling_FullscreenSetsAreExclusive(t *testing.T) {
	s, layout, _, w2 := newStrip(t, DefaultScrollingSettings())
	gaps := Gaps{OuterX: 10, OuterY: 10}

	s.ToggleFullscreen(layout)
	if got := framesByWindow(s.CalculateLayout(layout, testScreen, gaps)); got[w2] != testScreen {
		t.Fatalf("fullscreen w2 = %+v, want screen", got[w2])
	}
	s.ToggleFullscreenWithinGaps(layout)
	if got := framesByWindow(s.CalculateLayout(layout, testScreen, gaps)); got[w2] != gaps.TilingArea(testScreen) {
		t.Fatalf("fullscreen-within-gaps w2 = %+v, want tiling area", got[w2])
	}
	s.ToggleFullscreenWithinGaps(layout)
	if s.HasAnyFullscreen(layout) {
		t.Fatalf("toggling twice should leave no fullscreen window")
	}
}

func TestScrolling_RemoveSelectsNeighbour(t *testing.T) {
	s, layout, w1, w2 := newStrip(t, DefaultScrollingSettings())
	s.RemoveWindow(w2)
	if sel, ok := s.SelectedWindow(layout); !ok || sel != w1 {
		t.Fatalf("selection = %v, want %v", sel, w1)
	}
	if got := s.Columns(layout); len(got) != 1 {
		t.Fatalf("columns = %v, want one", got)
	}
}

func TestScrolling_RemovingSelectionRevealsReplacement(t *testing.T) {
	s := NewScrollingSystem(DefaultScrollingSettings())
	layout := s.CreateLayout()
	w1, w2, w3, w4 := win(10, 1), win(10, 2), win(10, 3), win(10, 4)
	for _, w := range []platform.WindowID{w1, w2, w3, w4} {
		s.AddWindowAfterSelection(layout, w)
	}
	s.CalculateLayout(layout, testScreen, Gaps{})
	s.SelectWindow(layout, w2)
	s.CalculateLayout(layout, testScreen, Gaps{})
	// scroll away from the selection before it closes
	s.ScrollByDelta(layout, 2)
	if got := s.ScrollOffset(layout); got != 1500 {
		t.Fatalf("offset after scroll = %v, want 1500", got)
	}

	s.RemoveWindow(w2)
	if sel, ok := s.SelectedWindow(layout); !ok || sel != w3 {
		t.Fatalf("selection = %v, want %v", sel, w3)
	}
	got := framesByWindow(s.CalculateLayout(layout, testScreen, Gaps{}))
	if got[w3].X != 0 {
		t.Fatalf("w3.X = %v, want 0", got[w3].X)
	}
}

func TestScrolling_DocumentRoundTrip(t *testing.T) {
	s, layout, _, w2 := newStrip(t, DefaultScrollingSettings())
	s.JoinSelection(layout, DirLeft)
	want := s.Columns(layout)

	restored := NewScrollingSystem(DefaultScrollingSettings())
	id := restored.restore(s.document(layout))
	got := restored.Columns(id)
	if len(got) != len(want) {
		t.Fatalf("restored columns = %v, want %v", got, want)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("restored columns = %v, want %v", got, want)
		}
	}
	if sel, _ := restored.SelectedWindow(id); sel != w2 {
		t.Fatalf("restored selection = %v, want %v", sel, w2)
	}
}
