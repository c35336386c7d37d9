package repository

import (
	"errors"
	"testing"
	"time"

	medichat_errors "medichat/pkg/errors"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC), ID: "m-123"}

	encoded := in.Encode()
	if encoded == "" {
		t.Fatalf("non-zero cursor must encode to a non-empty token")
	}

	out, err := DecodeCursor(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestCursorZeroValue(t *testing.T) {
	var zero Cursor
	if !zero.IsZero() {
		t.Fatalf("zero cursor should report IsZero")
	}
	if zero.Encode() != "" {
		t.Fatalf("zero cursor must encode to empty string")
	}

	decoded, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("empty token should decode cleanly: %v", err)
	}
	if !decoded.IsZero() {
		t.Fatalf("empty token should decode to the zero cursor")
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"not-base64!!", "YWJjZA", "%%%"} {
		if _, err := DecodeCursor(token); !errors.Is(err, medichat_errors.ErrInvalidInput) {
			t.Errorf("DecodeCursor(%q) = %v, want ErrInvalidInput", token, err)
		}
	}
}
