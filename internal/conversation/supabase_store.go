package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"
)

// SupabaseStore persists sessions through the Supabase REST API.
type SupabaseStore struct {
	client *supabase.Client
	table  string
	now    func() time.Time
}

func NewSupabaseStore(url, key, table string) (*SupabaseStore, error) {
	if url == "" {
		return nil, errors.New("conversation: supabase URL is required")
	}
	if key == "" {
		return nil, errors.New("conversation: supabase API key is required")
	}
	if table == "" {
		table = "user_sessions"
	}
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("conversation: create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, table: table, now: time.Now}, nil
}

// The REST client does not take a context; calls are bounded by its HTTP timeout.
func (s *SupabaseStore) Find(_ context.Context, userID string) (UserSession, error) {
	sess, found, err := s.get(userID)
	if err != nil {
		return UserSession{}, storeErr("get", userID, err)
	}
	if !found {
		return UserSession{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *SupabaseStore) GetOrCreate(_ context.Context, userID string) (UserSession, error) {
	sess, found, err := s.get(userID)
	if err != nil {
		return UserSession{}, storeErr("get", userID, err)
	}
	if found {
		return sess, nil
	}

	sess = NewSession(userID)
	sess.UpdatedAt = s.now().UTC()
	_, _, insertErr := s.client.From(s.table).
		Insert(sess, false, "", "minimal", "").
		Execute()
	if insertErr == nil {
		return sess, nil
	}

	// A concurrent insert wins on the primary key; read back its row.
	existing, found, err := s.get(userID)
	if err != nil {
		return UserSession{}, storeErr("get", userID, err)
	}
	if !found {
		return UserSession{}, storeErr("create", userID, insertErr)
	}
	return existing, nil
}

func (s *SupabaseStore) Update(_ context.Context, session UserSession) error {
	session.UpdatedAt = s.now().UTC()
	_, _, err := s.client.From(s.table).
		Upsert(session, "user_id", "minimal", "").
		Execute()
	return storeErr("update", session.UserID, err)
}

func (s *SupabaseStore) get(userID string) (UserSession, bool, error) {
	var rows []UserSession
	_, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return UserSession{}, false, err
	}
	if len(rows) == 0 {
		return UserSession{}, false, nil
	}
	return rows[0], true, nil
}
