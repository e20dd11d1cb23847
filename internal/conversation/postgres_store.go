package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists sessions in the user_sessions table.
type PostgresStore struct {
	db  rowQuerier
	now func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return newPostgresStoreWithExec(pool)
}

func newPostgresStoreWithExec(db rowQuerier) *PostgresStore {
	if db == nil {
		panic("conversation: exec required")
	}
	return &PostgresStore{db: db, now: time.Now}
}

const selectSessionSQL = `SELECT user_id, state, captured_name, updated_at FROM user_sessions WHERE user_id = $1`

func (s *PostgresStore) Find(ctx context.Context, userID string) (UserSession, error) {
	sess, err := s.scan(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserSession{}, ErrSessionNotFound
	}
	if err != nil {
		return UserSession{}, storeErr("get", userID, err)
	}
	return sess, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string) (UserSession, error) {
	insert := `
		INSERT INTO user_sessions (user_id, state, captured_name, updated_at)
		VALUES ($1, $2, '', $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, insert, userID, string(StateInit), s.now().UTC()); err != nil {
		return UserSession{}, storeErr("create", userID, err)
	}

	sess, err := s.scan(ctx, userID)
	if err != nil {
		return UserSession{}, storeErr("get", userID, err)
	}
	return sess, nil
}

func (s *PostgresStore) scan(ctx context.Context, userID string) (UserSession, error) {
	var (
		sess  UserSession
		state string
	)
	if err := s.db.QueryRow(ctx, selectSessionSQL, userID).Scan(&sess.UserID, &state, &sess.CapturedName, &sess.UpdatedAt); err != nil {
		return UserSession{}, err
	}
	sess.State = State(state)
	return sess, nil
}

func (s *PostgresStore) Update(ctx context.Context, session UserSession) error {
	query := `
		INSERT INTO user_sessions (user_id, state, captured_name, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET state = EXCLUDED.state,
		    captured_name = EXCLUDED.captured_name,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.Exec(ctx, query, session.UserID, string(session.State), session.CapturedName, s.now().UTC())
	return storeErr("update", session.UserID, err)
}
