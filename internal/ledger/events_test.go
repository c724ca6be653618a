package ledger

import "testing"

func TestEventTypesTag(t *testing.T) {
	types := EventTypes{PackageID: "0xpkg", Module: "savings_circle"}

	got := types.Tag(EventMemberJoined)
	want := "0xpkg::savings_circle::MemberJoined"
	if got != want {
		t.Errorf("Tag = %q, want %q", got, want)
	}

	filter := types.Filter(EventCircleCreated)
	if filter.EventType != "0xpkg::savings_circle::CircleCreated" {
		t.Errorf("Filter.EventType = %q", filter.EventType)
	}
}

func TestEventStringField(t *testing.T) {
	e := Event{ParsedJSON: map[string]interface{}{
		"circle_id": "0xc1",
		"count":     3.0,
	}}

	if got := e.StringField("circle_id"); got != "0xc1" {
		t.Errorf("StringField = %q, want 0xc1", got)
	}
	if got := e.StringField("count"); got != "" {
		t.Errorf("Non-string field should yield empty, got %q", got)
	}
	if got := e.StringField("missing"); got != "" {
		t.Errorf("Missing field should yield empty, got %q", got)
	}

	var nilPayload Event
	if got := nilPayload.StringField("circle_id"); got != "" {
		t.Errorf("Nil payload should yield empty, got %q", got)
	}
}

func TestEventNumberField(t *testing.T) {
	e := Event{ParsedJSON: map[string]interface{}{
		"as_float":  42.5,
		"as_string": "80000000000",
		"as_int":    7,
		"garbage":   "abc",
	}}

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"as_float", 42.5, true},
		{"as_string", 80000000000, true},
		{"as_int", 7, true},
		{"garbage", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		got, ok := e.NumberField(tt.key)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("NumberField(%q) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}
