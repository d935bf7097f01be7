package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaydixit11/tabsync/internal/ops"
)

func TestSchemaRegistryValidRaw(t *testing.T) {
	reg, err := NewSchemaRegistry()
	require.NoError(t, err)

	raw := []byte(`{"type":"upsert_tab","tab_id":"t1","window_id":"w1","url":"https://example.com","title":"E","active":true,"index":0,"updated_at":1}`)
	assert.NoError(t, reg.ValidateRaw(ops.TypeUpsertTab, raw), "expected well-formed upsert_tab to pass schema validation")
}

func TestSchemaRegistryRejectsWrongShape(t *testing.T) {
	reg, err := NewSchemaRegistry()
	require.NoError(t, err)

	raw := []byte(`{"type":"upsert_tab","tab_id":"t1","window_id":"w1","url":"https://example.com","title":"E","active":"not-a-bool","index":0,"updated_at":1}`)
	assert.Error(t, reg.ValidateRaw(ops.TypeUpsertTab, raw), "expected schema validation to reject non-boolean active field")
}

func TestSchemaRegistryUnknownTypePasses(t *testing.T) {
	reg, err := NewSchemaRegistry()
	require.NoError(t, err)
	assert.NoError(t, reg.ValidateRaw(ops.Type("made_up"), []byte(`{}`)), "expected unregistered type to pass trivially")
}
