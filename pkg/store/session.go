package store

import (
	"context"
	"fmt"
)

// Session scopes a Store to one chat.
type Session struct {
	store  Store
	chatID int64
}

func NewSession(s Store, chatID int64) *Session {
	return &Session{store: s, chatID: chatID}
}

func (s *Session) ChatID() int64 {
	return s.chatID
}

func (s *Session) Key(name string) string {
	return fmt.Sprintf("session:%d:%s", s.chatID, name)
}

// Get returns def when name is not set.
func (s *Session) Get(ctx context.Context, name, def string) (string, error) {
	if name == "" {
		return "", ErrInvalidKey
	}

	value, ok, err := s.store.Get(ctx, s.Key(name))
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	return value, nil
}

func (s *Session) Set(ctx context.Context, name, value string) error {
	if name == "" {
		return ErrInvalidKey
	}
	return s.store.Set(ctx, s.Key(name), value)
}

func (s *Session) Has(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, ErrInvalidKey
	}
	return s.store.Has(ctx, s.Key(name))
}

func (s *Session) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrInvalidKey
	}
	return s.store.Delete(ctx, s.Key(name))
}
