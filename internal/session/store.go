// Package session keeps the dialogue state of each chat session and
// serializes turns that target the same session.
//
// A Store maps a session key to its dialogue.State. Get on an unknown key
// yields dialogue.Initial(); Put replaces the stored value wholesale and
// rejects states that do not validate. Stores never share slices or maps
// with their callers.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
)

// Store persists dialogue state per session key.
type Store interface {
	Get(ctx context.Context, key string) (dialogue.State, error)
	Put(ctx context.Context, key string, st dialogue.State) error
}

// ErrCorruptState is returned by Get when the stored snapshot no longer
// decodes into a valid state.
var ErrCorruptState = errors.New("corrupt dialogue state")

func encodeState(st dialogue.State) ([]byte, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(st)
}

// decodeState parses a stored snapshot. A bad snapshot is reported rather
// than silently reset, so the caller can log it.
func decodeState(raw []byte) (dialogue.State, error) {
	if len(raw) == 0 {
		return dialogue.Initial(), nil
	}
	var st dialogue.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return dialogue.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := st.Validate(); err != nil {
		return dialogue.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return st, nil
}
