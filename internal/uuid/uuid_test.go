package uuid

import (
	"bytes"
	"testing"
)

func TestNewFromZeroReader(t *testing.T) {
	id, err := New(bytes.NewReader(make([]byte, 16)))
	if err != nil {
		t.Fatal(err)
	}
	expect := "00000000-0000-4000-8000-000000000000"
	if id != expect {
		t.Errorf("expected %q, got %q", expect, id)
	}
}

func TestNewDeterministicInInputBytes(t *testing.T) {
	src := bytes.NewReader(append(append([]byte{}, make([]byte, 16)...), make([]byte, 16)...))
	first, err := New(src)
	if err != nil {
		t.Fatal(err)
	}
	// Same all-zero entropy on both halves, but version/variant bits are
	// fixed regardless of input, so a second read of identical bytes
	// reproduces the same id: New is a pure function of its reader's bytes.
	second, err := New(bytes.NewReader(make([]byte, 16)))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("New should be deterministic in its input bytes: %q != %q", first, second)
	}
}

func TestNewShortReadErrors(t *testing.T) {
	if _, err := New(bytes.NewReader(make([]byte, 4))); err == nil {
		t.Error("expected an error reading fewer than 16 bytes")
	}
}
