package repository

import (
	"encoding/base64"
	"encoding/json"
	"time"

	medichat_errors "medichat/pkg/errors"
)

// Cursor is an opaque, stable pagination position over the message log.
// It pins (created_at, id) of the last row seen, so concurrent inserts
// cannot skew subsequent pages the way a mutable offset would.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

func (c Cursor) IsZero() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// Encode renders the cursor for transport. The zero cursor encodes to "".
func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an encoded cursor. "" yields the zero cursor.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, medichat_errors.ErrInvalidInput
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, medichat_errors.ErrInvalidInput
	}
	return c, nil
}
