package tiling

import (
	"errors"
	"testing"

	"github.com/1broseidon/spacetile/internal/platform"
)

func newManager(settings WorkspaceSettings) *VirtualWorkspaceManager {
	return NewVirtualWorkspaceManager(settings, ModeTraditional, Settings{
		MasterStack: DefaultMasterStackSettings(),
		Scrolling:   DefaultScrollingSettings(),
	})
}

func TestWorkspaceManager_DefaultsCreatedOnFirstUse(t *testing.T) {
	m := newManager(WorkspaceSettings{
		Count:       3,
		Names:       []string{"web", "", "chat"},
		LayoutRules: []LayoutRule{{Workspace: 2, Mode: ModeMasterStack}},
	})
	list := m.ListWorkspaces(testSpace)
	if len(list) != 3 {
		t.Fatalf("workspaces = %d, want 3", len(list))
	}
	wantNames := []string{"web", "2", "chat"}
	for i, ws := range list {
		if ws.Name != wantNames[i] {
			t.Errorf("workspace %d name = %q, want %q", i, ws.Name, wantNames[i])
		}
	}
	if list[2].Mode != ModeMasterStack || list[0].Mode != ModeTraditional {
		t.Errorf("modes = %s, %s", list[0].Mode, list[2].Mode)
	}
	if active, ok := m.ActiveWorkspace(testSpace); !ok || active != list[0].ID {
		t.Errorf("active = %d, want first workspace", active)
	}
}

func TestWorkspaceManager_CreateWorkspaceLimit(t *testing.T) {
	m := newManager(WorkspaceSettings{Count: 2, Max: 3})
	if _, err := m.CreateWorkspace(testSpace, "extra"); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	_, err := m.CreateWorkspace(testSpace, "")
	if !errors.Is(err, ErrWorkspaceLimit) {
		t.Fatalf("expected ErrWorkspaceLimit, got %v", err)
	}
	if n := len(m.ListWorkspaces(testSpace)); n != 3 {
		t.Fatalf("workspaces = %d, want 3", n)
	}
}

func TestWorkspaceManager_StepWrapsAndSkipsEmpty(t *testing.T) {
	m := newManager(WorkspaceSettings{Count: 4})
	list := m.ListWorkspaces(testSpace)
	m.AssignWindowToWorkspace(testSpace, win(1, 1), list[2].ID)

	tests := []struct {
		name      string
		from      int
		delta     int
		skipEmpty bool
		want      int
	}{
		{"next", 0, 1, false, 1},
		{"next wraps", 3, 1, false, 0},
		{"prev wraps", 0, -1, false, 3},
		{"next skips empty", 0, 1, true, 2},
		{"prev skips empty", 0, -1, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got VirtualWorkspaceID
			var ok bool
			if tt.delta > 0 {
				got, ok = m.NextWorkspace(testSpace, list[tt.from].ID, tt.skipEmpty)
			} else {
				got, ok = m.PrevWorkspace(testSpace, list[tt.from].ID, tt.skipEmpty)
			}
			if !ok || got != list[tt.want].ID {
				t.Fatalf("got %d (%v), want %d", got, ok, list[tt.want].ID)
			}
		})
	}
	if _, ok := m.NextWorkspace(testSpace, list[2].ID, true); ok {
		t.Fatalf("skip-empty from the only populated workspace should not move")
	}
}

func TestWorkspaceManager_AssignmentIsExclusive(t *testing.T) {
	m := newManager(DefaultWorkspaceSettings())
	list := m.ListWorkspaces(testSpace)
	w := win(1, 1)

	if id, err := m.AutoAssignWindow(w, testSpace); err != nil || id != list[0].ID {
		t.Fatalf("AutoAssignWindow = %d, %v", id, err)
	}
	m.SetLastFocusedWindow(testSpace, list[0].ID, w)
	if !m.AssignWindowToWorkspace(testSpace, w, list[1].ID) {
		t.Fatalf("AssignWindowToWorkspace failed")
	}
	if ids := m.WorkspacesForWindow(w); len(ids) != 1 || ids[0] != list[1].ID {
		t.Fatalf("window is a member of %v", ids)
	}
	if _, ok := list[0].LastFocused(); ok {
		t.Fatalf("focus memory should be cleared when the window leaves")
	}
	if m.IsWindowInActiveWorkspace(testSpace, w) {
		t.Fatalf("window should be on an inactive workspace")
	}
	if got := m.WindowsInInactiveWorkspaces(testSpace); len(got) != 1 || got[0] != w {
		t.Fatalf("inactive windows = %v", got)
	}
	if m.AssignWindowToWorkspace(2, w, list[0].ID) {
		t.Fatalf("assignment to a workspace of another space must fail")
	}
}

func TestWorkspaceManager_BackAndForthMemory(t *testing.T) {
	m := newManager(DefaultWorkspaceSettings())
	list := m.ListWorkspaces(testSpace)
	if _, ok := m.LastWorkspace(testSpace); ok {
		t.Fatalf("no previous workspace expected yet")
	}
	m.SetActiveWorkspace(testSpace, list[3].ID)
	m.SetActiveWorkspace(testSpace, list[3].ID)
	if last, ok := m.LastWorkspace(testSpace); !ok || last != list[0].ID {
		t.Fatalf("last = %d, want first workspace", last)
	}
}

func TestWorkspaceManager_RemapDropsEmptyPlaceholders(t *testing.T) {
	m := newManager(DefaultWorkspaceSettings())
	old := m.ListWorkspaces(1)
	m.AssignWindowToWorkspace(1, win(1, 1), old[1].ID)
	m.SetActiveWorkspace(1, old[1].ID)
	m.SetLastRuleDecision(1, win(1, 1), true)

	// the new space was listed before the remap and holds nothing
	m.ListWorkspaces(5)
	m.RemapSpace(1, 5)

	list := m.ListWorkspaces(5)
	if len(list) != 4 {
		t.Fatalf("workspaces on remapped space = %d, want 4", len(list))
	}
	for i := range list {
		if list[i].ID != old[i].ID || list[i].Space != 5 {
			t.Fatalf("workspace %d = %+v, want id %d on space 5", i, list[i], old[i].ID)
		}
	}
	if active, _ := m.ActiveWorkspace(5); active != old[1].ID {
		t.Fatalf("active workspace did not follow the remap")
	}
	if id, ok := m.WorkspaceForWindow(5, win(1, 1)); !ok || id != old[1].ID {
		t.Fatalf("assignment did not follow the remap")
	}
	if got := m.Spaces(); len(got) != 1 || got[0] != 5 {
		t.Fatalf("spaces = %v, want [5]", got)
	}
	if st := m.Stats(); st.TotalWorkspaces != 4 || st.TotalWindows != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestWorkspaceManager_AppRuleOutOfRange(t *testing.T) {
	m := newManager(WorkspaceSettings{Count: 2, AppRules: []AppRule{{AppID: "x", Workspace: wsIndex(7)}}})
	_, managed, err := m.AssignWindow(win(1, 1), testSpace, AppInfo{AppID: "X"})
	if !managed || !errors.Is(err, ErrWorkspaceNotFound) {
		t.Fatalf("managed=%v err=%v, want ErrWorkspaceNotFound", managed, err)
	}
}

func TestWorkspaceSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       WorkspaceSettings
		wantErr bool
	}{
		{"defaults", DefaultWorkspaceSettings(), false},
		{"zero count", WorkspaceSettings{Count: 0}, true},
		{"max below count", WorkspaceSettings{Count: 4, Max: 2}, true},
		{"bad layout mode", WorkspaceSettings{Count: 1, LayoutRules: []LayoutRule{{Workspace: 0, Mode: "spiral"}}}, true},
		{"empty app rule", WorkspaceSettings{Count: 1, AppRules: []AppRule{{Floating: true}}}, true},
		{"negative rule index", WorkspaceSettings{Count: 1, AppRules: []AppRule{{AppID: "a", Workspace: wsIndex(-1)}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHiddenPosition(t *testing.T) {
	left := platform.Rect{X: 0, Y: 0, Width: 1000, Height: 500}
	right := platform.Rect{X: 1000, Y: 0, Width: 1000, Height: 500}
	size := platform.Size{Width: 400, Height: 300}

	parked := CalculateHiddenPosition(right, size, []platform.Rect{left, right})
	if parked.X != 1999 || parked.Y != 499 {
		t.Fatalf("rightmost screen parks at %+v, want bottom-right sliver", parked)
	}
	if !IsHiddenPosition(right, parked) {
		t.Fatalf("parked frame not recognized as hidden")
	}

	// bottom-right of the left screen would land on the right screen
	parked = CalculateHiddenPosition(left, size, []platform.Rect{left, right})
	if parked.X != -399 || parked.Y != 499 {
		t.Fatalf("left screen parks at %+v, want bottom-left sliver", parked)
	}
	if !IsHiddenPosition(left, parked) {
		t.Fatalf("bottom-left parked frame not recognized as hidden")
	}

	if IsHiddenPosition(left, platform.Rect{X: 100, Y: 100, Width: 400, Height: 300}) {
		t.Fatalf("on-screen frame reported as hidden")
	}
}
