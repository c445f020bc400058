package store

import "testing"

func TestNewModelSourceBindsDriver(t *testing.T) {
	s := NewModelSource(&fakeDriver{})
	if s.driver == nil {
		t.Fatal("expected driver to be set")
	}
}

func TestStrPropMissingKeyReturnsEmpty(t *testing.T) {
	if got := strProp(map[string]any{"handle": "x"}, "nanoid"); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestStrPropWrongTypeReturnsEmpty(t *testing.T) {
	if got := strProp(map[string]any{"handle": 42}, "handle"); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestStrPropReturnsValue(t *testing.T) {
	if got := strProp(map[string]any{"handle": "diagnosis"}, "handle"); got != "diagnosis" {
		t.Fatalf("got %q, want diagnosis", got)
	}
}
