package ops

import (
	"encoding/json"
	"testing"
)

func TestOperationTargetIDAndType(t *testing.T) {
	tests := []struct {
		name   string
		op     Operation
		target string
		typ    Type
		ts     uint64
	}{
		{"upsert", UpsertTab{TabID: "t1", WindowID: "w1", URL: "https://example.com", Title: "E", Active: true, Index: 0, UpdatedAt: 1}, "t1", TypeUpsertTab, 1},
		{"close", CloseTab{TabID: "t1", ClosedAt: 2}, "t1", TypeCloseTab, 2},
		{"active", SetActive{TabID: "t1", Active: false, UpdatedAt: 3}, "t1", TypeSetActive, 3},
		{"move", MoveTab{TabID: "t1", WindowID: "w2", Index: 1, UpdatedAt: 4}, "t1", TypeMoveTab, 4},
		{"change", ChangeUrl{TabID: "t1", URL: "https://x", UpdatedAt: 5}, "t1", TypeChangeUrl, 5},
		{"track", TrackWindow{WindowID: "w1", Tracked: true, UpdatedAt: 6}, "w1", TypeTrackWindow, 6},
		{"untrack", UntrackWindow{WindowID: "w1", UpdatedAt: 7}, "w1", TypeUntrackWindow, 7},
		{"focus", SetWindowFocus{WindowID: "w1", Focused: true, UpdatedAt: 8}, "w1", TypeSetWindowFocus, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.TargetID(); got != tt.target {
				t.Errorf("TargetID() = %q, want %q", got, tt.target)
			}
			if got := tt.op.OperationType(); got != tt.typ {
				t.Errorf("OperationType() = %q, want %q", got, tt.typ)
			}
			if got := tt.op.Timestamp(); got != tt.ts {
				t.Errorf("Timestamp() = %d, want %d", got, tt.ts)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	title := "Example"
	original := ChangeUrl{TabID: "t1", URL: "https://example.com", Title: &title, UpdatedAt: 9}

	raw, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, ok := decoded.(ChangeUrl)
	if !ok {
		t.Fatalf("decoded to %T, want ChangeUrl", decoded)
	}
	if got.TabID != original.TabID || got.URL != original.URL || got.UpdatedAt != original.UpdatedAt {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, original)
	}
	if got.Title == nil || *got.Title != title {
		t.Errorf("expected title %q to survive round trip, got %v", title, got.Title)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"delete_everything"}`))
	if err == nil {
		t.Fatal("expected error for unknown operation type")
	}
}

func TestListRoundTrip(t *testing.T) {
	list := List{
		UpsertTab{TabID: "t1", WindowID: "w1", URL: "https://example.com", Title: "E", Active: true, Index: 0, UpdatedAt: 1},
		CloseTab{TabID: "t2", ClosedAt: 2},
	}

	raw, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded List
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(decoded))
	}
	if decoded[0].OperationType() != TypeUpsertTab {
		t.Errorf("expected first op to be upsert_tab, got %s", decoded[0].OperationType())
	}
	if decoded[1].OperationType() != TypeCloseTab {
		t.Errorf("expected second op to be close_tab, got %s", decoded[1].OperationType())
	}
}

func TestListMarshalNil(t *testing.T) {
	var list List
	raw, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("expected empty array for nil list, got %s", raw)
	}
}

func TestWireTagSnakeCase(t *testing.T) {
	raw, err := Encode(TrackWindow{WindowID: "w1", Tracked: true, UpdatedAt: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "track_window" {
		t.Errorf("expected type tag track_window, got %v", m["type"])
	}
}
