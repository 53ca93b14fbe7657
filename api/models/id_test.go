package models

import (
	"encoding/json"
	"testing"
)

func TestIDRoundTrip(t *testing.T) {
	if err := ConfigureIDs("test-salt"); err != nil {
		t.Fatalf("configure: %v", err)
	}

	raw, err := json.Marshal(ID(42))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("encoded id is not a string: %s", raw)
	}
	if len(s) < idMinLength {
		t.Fatalf("expected at least %d chars got=%q", idMinLength, s)
	}

	var back ID
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != 42 {
		t.Fatalf("expected 42 got=%d", back)
	}
}

func TestZeroIDIsNull(t *testing.T) {
	raw, err := json.Marshal(ID(0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("expected null got=%s", raw)
	}
}

func TestSaltChangesEncoding(t *testing.T) {
	if err := ConfigureIDs("one"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	a := ID(7).String()
	if err := ConfigureIDs("two"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	b := ID(7).String()
	if a == b {
		t.Fatalf("expected different encodings got=%q", a)
	}
}
