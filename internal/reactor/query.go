package reactor

import (
	"context"
	"fmt"
	"sort"

	"github.com/1broseidon/spacetile/internal/metrics"
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

// query runs inside the loop so it sees a consistent state. Queries are
// never quarantined.
type query struct {
	run func(*Reactor)
}

type answer[T any] struct {
	value T
	err   error
}

func ask[T any](ctx context.Context, r *Reactor, fn func(*Reactor) T) (T, error) {
	reply := make(chan answer[T], 1)
	q := query{run: func(r *Reactor) {
		defer func() {
			if p := recover(); p != nil {
				r.metrics.RecordPanic()
				r.log.Error("query panic recovered", "error", p)
				reply <- answer[T]{err: fmt.Errorf("query failed: %v", p)}
			}
		}()
		reply <- answer[T]{value: fn(r)}
	}}

	var zero T
	if err := r.Send(ctx, q); err != nil {
		return zero, err
	}
	select {
	case a := <-reply:
		return a.value, a.err
	case <-r.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// DisplayInfo describes a screen and the space it shows.
type DisplayInfo struct {
	ID            int                       `json:"id"`
	Name          string                    `json:"name"`
	DisplayUUID   string                    `json:"display_uuid"`
	Frame         platform.Rect             `json:"frame"`
	Space         platform.SpaceID          `json:"space"`
	Active        bool                      `json:"active"`
	Workspace     tiling.VirtualWorkspaceID `json:"workspace,omitempty"`
	WorkspaceName string                    `json:"workspace_name,omitempty"`
}

// SpaceWorkspaces lists the virtual workspaces of one space.
type SpaceWorkspaces struct {
	Space       platform.SpaceID          `json:"space"`
	DisplayUUID string                    `json:"display_uuid,omitempty"`
	Workspaces  []tiling.WorkspaceSummary `json:"workspaces"`
}

// WindowSnapshot is the query view of a tracked window.
type WindowSnapshot struct {
	ID         platform.WindowID         `json:"id"`
	SysID      platform.WindowServerID   `json:"sys_id,omitempty"`
	AppID      string                    `json:"app_id"`
	Title      string                    `json:"title"`
	Frame      platform.Rect             `json:"frame"`
	Space      platform.SpaceID          `json:"space"`
	Workspace  tiling.VirtualWorkspaceID `json:"workspace,omitempty"`
	Manageable bool                      `json:"manageable"`
	Floating   bool                      `json:"floating"`
	Visible    bool                      `json:"visible"`
	Focused    bool                      `json:"focused"`
}

// AppSnapshot is the query view of an application.
type AppSnapshot struct {
	AppInfo
	Windows int `json:"windows"`
}

// Status summarises the reactor state.
type Status struct {
	Topology     string             `json:"topology"`
	ChurnEpoch   uint64             `json:"churn_epoch"`
	Screens      int                `json:"screens"`
	ActiveSpaces []platform.SpaceID `json:"active_spaces"`
	Windows      int                `json:"windows"`
	Applications int                `json:"applications"`
	Dragging     bool               `json:"dragging"`
	Overview     bool               `json:"overview"`
	Focused      *platform.WindowID `json:"focused,omitempty"`
}

// MetricsReport combines the reactor counters with engine statistics.
type MetricsReport struct {
	Reactor  metrics.Snapshot   `json:"reactor"`
	Engine   tiling.EngineStats `json:"engine"`
	Topology string             `json:"topology"`
}

func (r *Reactor) Displays(ctx context.Context) ([]DisplayInfo, error) {
	return ask(ctx, r, func(r *Reactor) []DisplayInfo {
		out := make([]DisplayInfo, 0, len(r.screens))
		for _, s := range r.screens {
			d := DisplayInfo{
				ID:          s.ID,
				Name:        s.Name,
				DisplayUUID: s.DisplayUUID,
				Frame:       s.Frame,
				Space:       s.Space,
				Active:      r.isSpaceActive(s.Space),
			}
			if ws, ok := r.engine.ActiveWorkspace(s.Space); ok {
				d.Workspace, d.WorkspaceName = ws.ID, ws.Name
			}
			out = append(out, d)
		}
		return out
	})
}

// Workspaces lists the workspaces of space, or of every active space when
// space is NoSpace.
func (r *Reactor) Workspaces(ctx context.Context, space platform.SpaceID) ([]SpaceWorkspaces, error) {
	return ask(ctx, r, func(r *Reactor) []SpaceWorkspaces {
		var spaces []platform.SpaceID
		if space.Valid() {
			spaces = []platform.SpaceID{space}
		} else {
			spaces, _ = r.visibleSpacesForLayout()
		}
		out := make([]SpaceWorkspaces, 0, len(spaces))
		for _, s := range spaces {
			display, _ := r.engine.DisplayForSpace(s)
			out = append(out, SpaceWorkspaces{
				Space:       s,
				DisplayUUID: display,
				Workspaces:  r.engine.WorkspaceSummaries(s),
			})
		}
		return out
	})
}

// Windows lists tracked windows, restricted to space unless it is NoSpace.
func (r *Reactor) Windows(ctx context.Context, space platform.SpaceID) ([]WindowSnapshot, error) {
	return ask(ctx, r, func(r *Reactor) []WindowSnapshot {
		out := make([]WindowSnapshot, 0, len(r.windows))
		for wid := range r.windows {
			snap := r.windowSnapshot(wid)
			if space.Valid() && snap.Space != space {
				continue
			}
			out = append(out, snap)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
		return out
	})
}

// Window returns one tracked window.
func (r *Reactor) Window(ctx context.Context, wid platform.WindowID) (WindowSnapshot, bool, error) {
	type result struct {
		snap WindowSnapshot
		ok   bool
	}
	res, err := ask(ctx, r, func(r *Reactor) result {
		if _, ok := r.windows[wid]; !ok {
			return result{}
		}
		return result{snap: r.windowSnapshot(wid), ok: true}
	})
	return res.snap, res.ok, err
}

func (r *Reactor) windowSnapshot(wid platform.WindowID) WindowSnapshot {
	w := r.windows[wid]
	snap := WindowSnapshot{
		ID:         wid,
		SysID:      w.info.SysID,
		AppID:      w.info.AppID,
		Title:      w.info.Title,
		Frame:      w.frame,
		Space:      w.space,
		Manageable: w.manageable,
		Floating:   r.engine.IsFloating(wid),
		Visible:    w.info.SysID != 0 && r.visible[w.info.SysID],
	}
	if focused, ok := r.engine.FocusedWindow(); ok && focused == wid {
		snap.Focused = true
	}
	if id, ok := r.engine.Workspaces().WorkspaceForWindow(w.space, wid); ok {
		snap.Workspace = id
	}
	return snap
}

// Layout returns the layout summary of the active workspace of space.
func (r *Reactor) Layout(ctx context.Context, space platform.SpaceID) (tiling.LayoutState, bool, error) {
	type result struct {
		state tiling.LayoutState
		ok    bool
	}
	res, err := ask(ctx, r, func(r *Reactor) result {
		s := space
		if !s.Valid() {
			s = r.commandSpace()
		}
		state, ok := r.engine.LayoutState(s)
		return result{state: state, ok: ok}
	})
	return res.state, res.ok, err
}

func (r *Reactor) Applications(ctx context.Context) ([]AppSnapshot, error) {
	return ask(ctx, r, func(r *Reactor) []AppSnapshot {
		counts := make(map[int32]int)
		for wid := range r.windows {
			counts[wid.PID]++
		}
		out := make([]AppSnapshot, 0, len(r.apps))
		for pid, app := range r.apps {
			out = append(out, AppSnapshot{AppInfo: app.info, Windows: counts[pid]})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
		return out
	})
}

func (r *Reactor) Metrics(ctx context.Context) (MetricsReport, error) {
	return ask(ctx, r, func(r *Reactor) MetricsReport {
		return MetricsReport{
			Reactor:  r.metrics.Snapshot(),
			Engine:   r.engine.Stats(),
			Topology: r.topo.Phase().String(),
		}
	})
}

func (r *Reactor) Status(ctx context.Context) (Status, error) {
	return ask(ctx, r, func(r *Reactor) Status {
		st := Status{
			Topology:     r.topo.Phase().String(),
			ChurnEpoch:   r.topo.Epoch(),
			Screens:      len(r.screens),
			Windows:      len(r.windows),
			Applications: len(r.apps),
			Dragging:     r.drag.InDrag(),
			Overview:     r.missionControl,
		}
		st.ActiveSpaces, _ = r.visibleSpacesForLayout()
		if wid, ok := r.engine.FocusedWindow(); ok {
			st.Focused = &wid
		}
		return st
	})
}

// Dump serializes the layout engine state as YAML.
func (r *Reactor) Dump(ctx context.Context) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	res, err := ask(ctx, r, func(r *Reactor) result {
		data, err := r.engine.MarshalState()
		return result{data: data, err: err}
	})
	if err != nil {
		return nil, err
	}
	return res.data, res.err
}

// Save writes the layout engine state to path from inside the loop.
func (r *Reactor) Save(ctx context.Context, path string) error {
	reply := make(chan error, 1)
	if err := r.Send(ctx, SaveState{Path: path, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
