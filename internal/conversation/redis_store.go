package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps one JSON document per user under session:{id}.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store. A zero ttl keeps sessions forever.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("whatsapp.internal.conversation.sessions")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer, now: time.Now}
}

func (s *RedisStore) Find(ctx context.Context, userID string) (UserSession, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.find",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	sess, found, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return UserSession{}, storeErr("get", userID, err)
	}
	if !found {
		return UserSession{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, userID string) (UserSession, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.get_or_create",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	sess, found, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return UserSession{}, storeErr("get", userID, err)
	}
	if found {
		return sess, nil
	}

	sess = NewSession(userID)
	sess.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(sess)
	if err != nil {
		return UserSession{}, storeErr("create", userID, fmt.Errorf("marshal: %w", err))
	}
	created, err := s.redis.SetNX(ctx, sessionKey(userID), data, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return UserSession{}, storeErr("create", userID, err)
	}
	if created {
		return sess, nil
	}

	// Another request created it between the read and SETNX.
	sess, found, err = s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return UserSession{}, storeErr("get", userID, err)
	}
	if !found {
		return UserSession{}, storeErr("get", userID, errors.New("session vanished after create"))
	}
	return sess, nil
}

func (s *RedisStore) Update(ctx context.Context, session UserSession) error {
	ctx, span := s.tracer.Start(ctx, "conversation.session.update",
		trace.WithAttributes(attribute.String("user_id", session.UserID), attribute.String("state", string(session.State))))
	defer span.End()

	session.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return storeErr("update", session.UserID, fmt.Errorf("marshal: %w", err))
	}
	if err := s.redis.Set(ctx, sessionKey(session.UserID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return storeErr("update", session.UserID, err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, userID string) (UserSession, bool, error) {
	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return UserSession{}, false, nil
	}
	if err != nil {
		return UserSession{}, false, err
	}
	var sess UserSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return UserSession{}, false, fmt.Errorf("decode: %w", err)
	}
	return sess, true, nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}
