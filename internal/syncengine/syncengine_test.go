package syncengine

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaydixit11/tabsync/internal/apperr"
	"github.com/amaydixit11/tabsync/internal/core"
	"github.com/amaydixit11/tabsync/internal/crdtdoc"
	"github.com/amaydixit11/tabsync/internal/ops"
	"github.com/amaydixit11/tabsync/internal/store"
	"github.com/amaydixit11/tabsync/internal/validate"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	limits := validate.Limits{MaxURLLength: 2048, MaxTitleLength: 512}
	return New(core.NewClock(), crdtdoc.New(zerolog.Nop()), s, limits, zerolog.Nop())
}

func uptr(v uint64) *uint64 { return &v }

func TestSyncStoresAndAppliesOperations(t *testing.T) {
	e := newTestEngine(t)

	resp, err := e.Sync(Request{
		Clock:    0,
		DeviceID: "device-a",
		Operations: ops.List{
			ops.UpsertTab{TabID: "t1", WindowID: "w1", URL: "https://example.com", UpdatedAt: 1},
		},
	})
	require.NoError(t, err)
	// Update(0) moves the fresh clock to 1, then the operation's Tick stamps 2.
	assert.Equal(t, uint64(2), resp.Clock, "expected server clock 2 after first operation")

	tab, ok := e.doc.GetTab("t1")
	require.True(t, ok, "expected document to reflect applied upsert")
	assert.Equal(t, "https://example.com", tab.URL)
}

func TestSyncEchoSuppression(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Sync(Request{DeviceID: "device-a", Operations: ops.List{
		ops.UpsertTab{TabID: "t1", WindowID: "w1", URL: "https://a.example"},
	}})
	require.NoError(t, err)

	resp, err := e.Sync(Request{DeviceID: "device-a", SinceClock: uptr(0)})
	require.NoError(t, err)
	assert.Empty(t, resp.Operations, "device-a must never see its own operations")
}

func TestSyncInitialSyncIsUntruncated(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 150; i++ {
		_, err := e.Sync(Request{DeviceID: "device-a", Operations: ops.List{
			ops.SetWindowFocus{WindowID: "w1", Focused: true},
		}})
		require.NoError(t, err)
	}

	resp, err := e.Sync(Request{DeviceID: "device-b"}) // no since_clock: initial sync
	require.NoError(t, err)
	assert.Len(t, resp.Operations, 150, "expected all prior operations on initial sync")
}

func TestSyncRejectsInvalidDeviceID(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Sync(Request{DeviceID: ""})
	require.Error(t, err)

	appErr, ok := err.(*apperr.Error)
	require.True(t, ok, "expected an *apperr.Error")
	assert.Equal(t, apperr.CodeValidation, appErr.Code())
}

func TestSyncRejectsSentinelDeviceID(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Sync(Request{DeviceID: "auth-validated"})
	assert.Error(t, err, "expected rejection of the reserved sentinel device id")
}

func TestSyncIncrementalSinceClock(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Sync(Request{DeviceID: "device-a", Operations: ops.List{
		ops.UpsertTab{TabID: "t1", WindowID: "w1", URL: "https://a.example"},
	}})
	require.NoError(t, err)

	first, err := e.Sync(Request{DeviceID: "device-b", SinceClock: uptr(0)})
	require.NoError(t, err)
	require.Len(t, first.Operations, 1, "expected device-b to see device-a's one operation")

	_, err = e.Sync(Request{DeviceID: "device-a", Clock: first.Clock, Operations: ops.List{
		ops.SetActive{TabID: "t1", Active: true},
	}})
	require.NoError(t, err)

	second, err := e.Sync(Request{DeviceID: "device-b", Clock: first.Clock, SinceClock: uptr(first.Clock)})
	require.NoError(t, err)
	assert.Len(t, second.Operations, 1, "expected exactly the one newly-observed operation")
}
