package validate

import (
	"fmt"
	"sync"

	"github.com/amaydixit11/tabsync/internal/ops"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaRegistry holds a compiled JSON Schema per operation type and runs it
// against the raw wire bytes before the operation is even decoded into its
// concrete Go type. This catches malformed shapes (wrong JSON types, extra
// nesting) with a single schema-validation error instead of a generic JSON
// unmarshal failure, the same role the teacher's entry-content schema
// registry plays for opaque entry payloads.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[ops.Type]*gojsonschema.Schema
}

// NewSchemaRegistry builds a registry with a schema registered for every
// operation variant.
func NewSchemaRegistry() (*SchemaRegistry, error) {
	r := &SchemaRegistry{schemas: make(map[ops.Type]*gojsonschema.Schema)}
	for typ, def := range operationSchemas {
		if err := r.register(typ, def); err != nil {
			return nil, fmt.Errorf("validate: registering schema for %s: %w", typ, err)
		}
	}
	return r, nil
}

func (r *SchemaRegistry) register(typ ops.Type, definition []byte) error {
	loader := gojsonschema.NewBytesLoader(definition)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[typ] = compiled
	return nil
}

// ValidateRaw runs the schema registered for typ against raw wire bytes. A
// type with no registered schema passes trivially.
func (r *SchemaRegistry) ValidateRaw(typ ops.Type, raw []byte) error {
	r.mu.RLock()
	schema, ok := r.schemas[typ]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate: schema check failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	return fmt.Errorf("validate: %s: %s", first.Field(), first.Description())
}

var operationSchemas = map[ops.Type][]byte{
	ops.TypeUpsertTab: []byte(`{
		"type": "object",
		"required": ["type", "tab_id", "window_id", "url", "title", "active", "index", "updated_at"],
		"properties": {
			"tab_id": {"type": "string"},
			"window_id": {"type": "string"},
			"url": {"type": "string"},
			"title": {"type": "string"},
			"active": {"type": "boolean"},
			"index": {"type": "integer"},
			"updated_at": {"type": "integer", "minimum": 0}
		}
	}`),
	ops.TypeCloseTab: []byte(`{
		"type": "object",
		"required": ["type", "tab_id", "closed_at"],
		"properties": {
			"tab_id": {"type": "string"},
			"closed_at": {"type": "integer", "minimum": 0}
		}
	}`),
	ops.TypeSetActive: []byte(`{
		"type": "object",
		"required": ["type", "tab_id", "active", "updated_at"],
		"properties": {
			"tab_id": {"type": "string"},
			"active": {"type": "boolean"},
			"updated_at": {"type": "integer", "minimum": 0}
		}
	}`),
	ops.TypeMoveTab: []byte(`{
		"type": "object",
		"required": ["type", "tab_id", "window_id", "index", "updated_at"],
		"properties": {
			"tab_id": {"type": "string"},
			"window_id": {"type": "string"},
			"index": {"type": "integer"},
			"updated_at": {"type": "integer", "minimum": 0}
		}
	}`),
	ops.TypeChangeUrl: []byte(`{
		"type": "object",
		"required": ["type", "tab_id", "url", "updated_at"],
		"properties": {
			"tab_id": {"type": "string"},
			"url": {"type": "string"},
			"title": {"type": ["string", "null"]},
			"updated_at": {"type": "integer", "minimum": 0}
		}
	}`),
	ops.TypeTrackWindow: []byte(`{
		"type": "object",
		"required": ["type", "window_id", "tracked", "updated_at"],
		"properties": {
			"window_id": {"type": "string"},
			"tracked": {"type": "boolean"},
			"updated_at": {"type": "integer", "minimum": 0}
		}
	}`),
	ops.TypeUntrackWindow: []byte(`{
		"type": "object",
		"required": ["type", "window_id", "updated_at"],
		"properties": {
			"window_id": {"type": "string"},
			"updated_at": {"type": "integer", "minimum": 0}
		}
	}`),
	ops.TypeSetWindowFocus: []byte(`{
		"type": "object",
		"required": ["type", "window_id", "focused", "updated_at"],
		"properties": {
			"window_id": {"type": "string"},
			"focused": {"type": "boolean"},
			"updated_at": {"type": "integer", "minimum": 0}
		}
	}`),
}
