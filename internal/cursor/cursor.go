// Package cursor encodes opaque keyset-pagination cursors for the event log.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor marks the last event a page returned. Pages walk the log from
// newest to oldest, so the next page holds events with smaller IDs.
type Cursor struct {
	BoardID string `json:"board_id"`
	LastID  int64  `json:"last_id"`
}

// Encode serializes the cursor to an opaque base64 string
func (c Cursor) Encode() (string, error) {
	if c.LastID <= 0 {
		return "", fmt.Errorf("cursor last ID must be positive")
	}
	jsonData, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(jsonData), nil
}

// Decode deserializes a cursor and checks it was issued for boardID.
func Decode(encoded, boardID string) (Cursor, error) {
	if encoded == "" {
		return Cursor{}, fmt.Errorf("empty cursor string")
	}
	jsonData, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(jsonData, &c); err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor format: %w", err)
	}
	if c.LastID <= 0 {
		return Cursor{}, fmt.Errorf("cursor missing last ID")
	}
	if c.BoardID != boardID {
		return Cursor{}, fmt.Errorf("cursor belongs to board %s, not %s", c.BoardID, boardID)
	}
	return c, nil
}

// Where returns the SQL condition selecting rows after the cursor.
func (c Cursor) Where() (string, []any) {
	return "id < ?", []any{c.LastID}
}
