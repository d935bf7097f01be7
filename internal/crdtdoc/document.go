// Package crdtdoc holds the CRDT Document: the in-memory derived state built
// by folding the operation log in ascending clock order. The document is
// never authoritative by itself — it is rebuildable from the log at any
// time (see internal/bootstrap) — but it is what the sync engine reads and
// patches on every request.
package crdtdoc

import (
	"fmt"
	"sync"

	"github.com/amaydixit11/tabsync/internal/ops"
	"github.com/rs/zerolog"
)

// Tab is the current state of one browser tab.
type Tab struct {
	ID        string
	WindowID  string
	URL       string
	Title     string
	Active    bool
	Index     int
	LastClock uint64 // the server clock of the operation that last touched it
}

// Window is the current state of one browser window. Focused is
// deliberately absent: SetWindowFocus only advances LastClock (spec §9).
type Window struct {
	ID        string
	Tracked   bool
	LastClock uint64
}

// Document is the single default document described by spec.md: a mapping
// tab_id -> Tab and window_id -> Window, guarded by one read/write lock.
// Apply holds it exclusively and reads hold it shared, so a snapshot never
// observes a partially-applied operation.
type Document struct {
	mu      sync.RWMutex
	tabs    map[string]Tab
	windows map[string]Window
	logger  zerolog.Logger
}

// New creates an empty document.
func New(logger zerolog.Logger) *Document {
	return &Document{
		tabs:    make(map[string]Tab),
		windows: make(map[string]Window),
		logger:  logger,
	}
}

// Apply folds one operation into the document at the given server clock.
// Callers (the sync engine during normal operation, bootstrap during
// replay) must call Apply in ascending clock order; the document does not
// itself enforce ordering.
func (d *Document) Apply(op ops.Operation, clock uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch v := op.(type) {
	case ops.UpsertTab:
		d.tabs[v.TabID] = Tab{
			ID:        v.TabID,
			WindowID:  v.WindowID,
			URL:       v.URL,
			Title:     v.Title,
			Active:    v.Active,
			Index:     v.Index,
			LastClock: clock,
		}

	case ops.CloseTab:
		delete(d.tabs, v.TabID)

	case ops.SetActive:
		tab, ok := d.tabs[v.TabID]
		if !ok {
			d.logger.Warn().Str("tab_id", v.TabID).Uint64("clock", clock).Msg("set_active: tab not found, skipping")
			return
		}
		tab.Active = v.Active
		tab.LastClock = clock
		d.tabs[v.TabID] = tab

	case ops.MoveTab:
		tab, ok := d.tabs[v.TabID]
		if !ok {
			d.logger.Warn().Str("tab_id", v.TabID).Uint64("clock", clock).Msg("move_tab: tab not found, skipping")
			return
		}
		tab.WindowID = v.WindowID
		tab.Index = v.Index
		tab.LastClock = clock
		d.tabs[v.TabID] = tab

	case ops.ChangeUrl:
		tab, ok := d.tabs[v.TabID]
		if !ok {
			d.logger.Warn().Str("tab_id", v.TabID).Uint64("clock", clock).Msg("change_url: tab not found, skipping")
			return
		}
		tab.URL = v.URL
		if v.Title != nil {
			tab.Title = *v.Title
		}
		tab.LastClock = clock
		d.tabs[v.TabID] = tab

	case ops.TrackWindow:
		win := d.windows[v.WindowID]
		win.ID = v.WindowID
		win.Tracked = true
		win.LastClock = clock
		d.windows[v.WindowID] = win

	case ops.UntrackWindow:
		win, ok := d.windows[v.WindowID]
		if !ok {
			win = Window{ID: v.WindowID}
		}
		win.Tracked = false
		win.LastClock = clock
		d.windows[v.WindowID] = win

	case ops.SetWindowFocus:
		win, ok := d.windows[v.WindowID]
		if !ok {
			win = Window{ID: v.WindowID}
		}
		win.LastClock = clock
		d.windows[v.WindowID] = win

	default:
		panic(fmt.Sprintf("crdtdoc: unhandled operation type %T", op))
	}
}

// GetTab returns a tab by id.
func (d *Document) GetTab(id string) (Tab, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tabs[id]
	return t, ok
}

// GetTabs returns a snapshot of every current tab, in no particular order.
func (d *Document) GetTabs() []Tab {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Tab, 0, len(d.tabs))
	for _, t := range d.tabs {
		out = append(out, t)
	}
	return out
}

// GetWindows returns a snapshot of every current window, in no particular
// order.
func (d *Document) GetWindows() []Window {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Window, 0, len(d.windows))
	for _, w := range d.windows {
		out = append(out, w)
	}
	return out
}

// Size reports the number of tabs and windows currently held, for
// diagnostics.
func (d *Document) Size() (tabs int, windows int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tabs), len(d.windows)
}
