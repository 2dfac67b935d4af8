package game

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// PlayerID is a 16-byte identifier ordered lexicographically.
type PlayerID [16]byte

// MatchID identifies a match. Same layout as PlayerID.
type MatchID [16]byte

func NewPlayerID() PlayerID {
	return PlayerID(uuid.New())
}

func NewMatchID() MatchID {
	return MatchID(uuid.New())
}

// ParsePlayerID accepts any UUID text form.
func ParsePlayerID(s string) (PlayerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PlayerID{}, fmt.Errorf("invalid player id %q: %w", s, err)
	}
	return PlayerID(u), nil
}

func ParseMatchID(s string) (MatchID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MatchID{}, fmt.Errorf("invalid match id %q: %w", s, err)
	}
	return MatchID(u), nil
}

func (id PlayerID) String() string {
	return uuid.UUID(id).String()
}

func (id MatchID) String() string {
	return uuid.UUID(id).String()
}

func (id PlayerID) Compare(o PlayerID) int {
	return bytes.Compare(id[:], o[:])
}

func (id PlayerID) Less(o PlayerID) bool {
	return id.Compare(o) < 0
}

func (id PlayerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *PlayerID) UnmarshalText(b []byte) error {
	parsed, err := ParsePlayerID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id MatchID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *MatchID) UnmarshalText(b []byte) error {
	parsed, err := ParseMatchID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// comparePlayerPtr orders nil before any id.
func comparePlayerPtr(a, b *PlayerID) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

// RawIDs converts to the byte form used by hashing and seed derivation.
func RawIDs(ids []PlayerID) [][16]byte {
	out := make([][16]byte, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
