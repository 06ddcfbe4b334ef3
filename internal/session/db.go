package session

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
)

// DBStore keeps state in the dialogue_state column of chat_sessions, so it
// survives restarts. Put requires the session row to exist; the service
// resolves the session before the first Put.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore { return &DBStore{db: db} }

func (s *DBStore) Get(ctx context.Context, key string) (dialogue.State, error) {
	raw, err := repo.LoadDialogueState(ctx, s.db, key)
	if err != nil {
		return dialogue.State{}, err
	}
	return decodeState(raw)
}

func (s *DBStore) Put(ctx context.Context, key string, st dialogue.State) error {
	raw, err := encodeState(st)
	if err != nil {
		return err
	}
	return repo.SaveDialogueState(ctx, s.db, key, raw)
}
