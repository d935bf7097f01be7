// Package ops defines the closed set of operations a device may submit to
// mutate the synchronized tab/window document.
//
// The set is fixed by design (see Type): every new variant requires an
// update here, in validation, and in the CRDT document's apply switch. The
// compiler does not check those switches for exhaustiveness; instead each
// ends in a default case that fails loudly (a panic in the document's apply,
// a validation error in validate) rather than silently matching a catch-all.
package ops

import (
	"encoding/json"
	"fmt"
)

// Type is the wire discriminator tag, snake_case per the protocol.
type Type string

const (
	TypeUpsertTab      Type = "upsert_tab"
	TypeCloseTab       Type = "close_tab"
	TypeSetActive      Type = "set_active"
	TypeMoveTab        Type = "move_tab"
	TypeChangeUrl      Type = "change_url"
	TypeTrackWindow    Type = "track_window"
	TypeUntrackWindow  Type = "untrack_window"
	TypeSetWindowFocus Type = "set_window_focus"
)

// Operation is the sum type every variant below implements. TargetID,
// OperationType, and Timestamp let the log store and sync engine handle any
// operation uniformly without knowing its concrete shape; apply and
// validation still switch exhaustively on the concrete type.
type Operation interface {
	TargetID() string
	OperationType() Type
	Timestamp() uint64

	isOperation()
}

// UpsertTab creates or overwrites a tab.
type UpsertTab struct {
	TabID     string `json:"tab_id"`
	WindowID  string `json:"window_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Active    bool   `json:"active"`
	Index     int    `json:"index"`
	UpdatedAt uint64 `json:"updated_at"`
}

func (o UpsertTab) TargetID() string      { return o.TabID }
func (o UpsertTab) OperationType() Type   { return TypeUpsertTab }
func (o UpsertTab) Timestamp() uint64     { return o.UpdatedAt }
func (o UpsertTab) isOperation()          {}
func (o UpsertTab) MarshalJSON() ([]byte, error) {
	type alias UpsertTab
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeUpsertTab, alias(o)})
}

// CloseTab removes a tab.
type CloseTab struct {
	TabID    string `json:"tab_id"`
	ClosedAt uint64 `json:"closed_at"`
}

func (o CloseTab) TargetID() string    { return o.TabID }
func (o CloseTab) OperationType() Type { return TypeCloseTab }
func (o CloseTab) Timestamp() uint64   { return o.ClosedAt }
func (o CloseTab) isOperation()        {}
func (o CloseTab) MarshalJSON() ([]byte, error) {
	type alias CloseTab
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeCloseTab, alias(o)})
}

// SetActive flips a tab's active flag.
type SetActive struct {
	TabID     string `json:"tab_id"`
	Active    bool   `json:"active"`
	UpdatedAt uint64 `json:"updated_at"`
}

func (o SetActive) TargetID() string    { return o.TabID }
func (o SetActive) OperationType() Type { return TypeSetActive }
func (o SetActive) Timestamp() uint64   { return o.UpdatedAt }
func (o SetActive) isOperation()        {}
func (o SetActive) MarshalJSON() ([]byte, error) {
	type alias SetActive
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeSetActive, alias(o)})
}

// MoveTab reassigns a tab's window and/or position.
type MoveTab struct {
	TabID     string `json:"tab_id"`
	WindowID  string `json:"window_id"`
	Index     int    `json:"index"`
	UpdatedAt uint64 `json:"updated_at"`
}

func (o MoveTab) TargetID() string    { return o.TabID }
func (o MoveTab) OperationType() Type { return TypeMoveTab }
func (o MoveTab) Timestamp() uint64   { return o.UpdatedAt }
func (o MoveTab) isOperation()        {}
func (o MoveTab) MarshalJSON() ([]byte, error) {
	type alias MoveTab
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeMoveTab, alias(o)})
}

// ChangeUrl navigates a tab. Title is optional: a nil Title leaves the
// document's stored title untouched.
type ChangeUrl struct {
	TabID     string  `json:"tab_id"`
	URL       string  `json:"url"`
	Title     *string `json:"title,omitempty"`
	UpdatedAt uint64  `json:"updated_at"`
}

func (o ChangeUrl) TargetID() string    { return o.TabID }
func (o ChangeUrl) OperationType() Type { return TypeChangeUrl }
func (o ChangeUrl) Timestamp() uint64   { return o.UpdatedAt }
func (o ChangeUrl) isOperation()        {}
func (o ChangeUrl) MarshalJSON() ([]byte, error) {
	type alias ChangeUrl
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeChangeUrl, alias(o)})
}

// TrackWindow begins or continues tracking a window.
type TrackWindow struct {
	WindowID  string `json:"window_id"`
	Tracked   bool   `json:"tracked"`
	UpdatedAt uint64 `json:"updated_at"`
}

func (o TrackWindow) TargetID() string    { return o.WindowID }
func (o TrackWindow) OperationType() Type { return TypeTrackWindow }
func (o TrackWindow) Timestamp() uint64   { return o.UpdatedAt }
func (o TrackWindow) isOperation()        {}
func (o TrackWindow) MarshalJSON() ([]byte, error) {
	type alias TrackWindow
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeTrackWindow, alias(o)})
}

// UntrackWindow stops tracking a window.
type UntrackWindow struct {
	WindowID  string `json:"window_id"`
	UpdatedAt uint64 `json:"updated_at"`
}

func (o UntrackWindow) TargetID() string    { return o.WindowID }
func (o UntrackWindow) OperationType() Type { return TypeUntrackWindow }
func (o UntrackWindow) Timestamp() uint64   { return o.UpdatedAt }
func (o UntrackWindow) isOperation()        {}
func (o UntrackWindow) MarshalJSON() ([]byte, error) {
	type alias UntrackWindow
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeUntrackWindow, alias(o)})
}

// SetWindowFocus signals a focus change. Per spec §9 this only touches the
// window's clock; the focused boolean is not persisted in the document.
type SetWindowFocus struct {
	WindowID  string `json:"window_id"`
	Focused   bool   `json:"focused"`
	UpdatedAt uint64 `json:"updated_at"`
}

func (o SetWindowFocus) TargetID() string    { return o.WindowID }
func (o SetWindowFocus) OperationType() Type { return TypeSetWindowFocus }
func (o SetWindowFocus) Timestamp() uint64   { return o.UpdatedAt }
func (o SetWindowFocus) isOperation()        {}
func (o SetWindowFocus) MarshalJSON() ([]byte, error) {
	type alias SetWindowFocus
	return json.Marshal(struct {
		Type Type `json:"type"`
		alias
	}{TypeSetWindowFocus, alias(o)})
}

// Decode parses a single tagged JSON operation into its concrete type.
func Decode(data []byte) (Operation, error) {
	var tag struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("ops: reading type tag: %w", err)
	}

	switch tag.Type {
	case TypeUpsertTab:
		var v UpsertTab
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeCloseTab:
		var v CloseTab
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeSetActive:
		var v SetActive
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeMoveTab:
		var v MoveTab
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeChangeUrl:
		var v ChangeUrl
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeTrackWindow:
		var v TrackWindow
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeUntrackWindow:
		var v UntrackWindow
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeSetWindowFocus:
		var v SetWindowFocus
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("ops: unknown operation type %q", tag.Type)
	}
}

// Encode marshals an operation back to its tagged wire form.
func Encode(op Operation) ([]byte, error) {
	return json.Marshal(op)
}

// List is a sequence of operations that (de)serializes as a plain JSON
// array of tagged objects.
type List []Operation

func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(List, 0, len(raw))
	for _, r := range raw {
		op, err := Decode(r)
		if err != nil {
			return err
		}
		out = append(out, op)
	}
	*l = out
	return nil
}

func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	encoded := make([]json.RawMessage, len(l))
	for i, op := range l {
		raw, err := Encode(op)
		if err != nil {
			return nil, err
		}
		encoded[i] = raw
	}
	return json.Marshal(encoded)
}
