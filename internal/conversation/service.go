package conversation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/whatsapp-concierge/internal/identity"
	"github.com/wolfman30/whatsapp-concierge/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// Deduper remembers message ids so webhook redeliveries are handled once.
type Deduper interface {
	// MarkProcessed reports true the first time an id is seen.
	MarkProcessed(ctx context.Context, messageID string) (bool, error)
}

// ServiceConfig wires a Service. Engine, Store and Responder are required.
type ServiceConfig struct {
	Engine     *Engine
	Store      SessionStore
	Responder  *Responder
	Locker     *KeyedLocker
	Dedupe     Deduper
	Normalizer identity.Normalizer
	Logger     *logging.Logger
	Metrics    *metrics.MessagingMetrics
	Tracer     trace.Tracer
}

// Service runs one inbound event through the session cycle and responds.
type Service struct {
	engine     *Engine
	store      SessionStore
	responder  *Responder
	locker     *KeyedLocker
	dedupe     Deduper
	normalizer identity.Normalizer
	logger     *logging.Logger
	metrics    *metrics.MessagingMetrics
	tracer     trace.Tracer
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Engine == nil || cfg.Store == nil || cfg.Responder == nil {
		panic("conversation: engine, store and responder are required")
	}
	if cfg.Locker == nil {
		cfg.Locker = NewKeyedLocker()
	}
	if cfg.Normalizer == (identity.Normalizer{}) {
		cfg.Normalizer = identity.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("whatsapp.internal.conversation")
	}
	return &Service{
		engine:     cfg.Engine,
		store:      cfg.Store,
		responder:  cfg.Responder,
		locker:     cfg.Locker,
		dedupe:     cfg.Dedupe,
		normalizer: cfg.Normalizer,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
	}
}

// HandleEvent processes one inbound event and returns the actions it
// executed. Store and send failures are absorbed; only a cancelled context
// stops processing early.
func (s *Service) HandleEvent(ctx context.Context, ev InboundEvent) ([]Action, error) {
	ev.SenderID = s.normalizer.Normalize(ev.SenderID)
	if ev.SenderID == "" {
		s.metrics.ObserveInbound(string(ev.Kind), "ignored")
		return nil, nil
	}

	ctx, span := s.tracer.Start(ctx, "conversation.handle_event", trace.WithAttributes(
		attribute.String("user_id", ev.SenderID),
		attribute.String("kind", string(ev.Kind)),
		attribute.String("message_id", ev.MessageID),
	))
	defer span.End()

	actions, duplicate, err := s.transition(ctx, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition aborted")
		s.metrics.ObserveInbound(string(ev.Kind), "aborted")
		return nil, err
	}
	if duplicate {
		s.metrics.ObserveInbound(string(ev.Kind), "duplicate")
		span.SetAttributes(attribute.Bool("duplicate", true))
		return nil, nil
	}

	s.responder.Execute(ctx, actions)
	s.metrics.ObserveInbound(string(ev.Kind), "processed")
	return actions, nil
}

// transition holds the per-user lock only for the read-modify-write cycle.
// The message id is marked inside the lock so an aborted wait leaves the
// redelivery free to be handled.
func (s *Service) transition(ctx context.Context, ev InboundEvent) ([]Action, bool, error) {
	unlock, err := s.locker.Lock(ctx, ev.SenderID)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	if s.duplicate(ctx, ev) {
		return nil, true, nil
	}

	sess, err := s.store.GetOrCreate(ctx, ev.SenderID)
	if err != nil {
		s.storeFailure("get", ev.SenderID, err)
		sess = NewSession(ev.SenderID)
	}

	next, actions := s.engine.Dispatch(sess, ev)
	if !sameState(sess, next) {
		if err := s.store.Update(ctx, next); err != nil {
			s.storeFailure("update", ev.SenderID, err)
		}
	}
	s.logger.Debug("session transition",
		"user_id", ev.SenderID,
		"from", string(sess.State),
		"to", string(next.State),
		"actions", len(actions),
	)
	return actions, false, nil
}

func (s *Service) duplicate(ctx context.Context, ev InboundEvent) bool {
	if s.dedupe == nil || ev.MessageID == "" {
		return false
	}
	first, err := s.dedupe.MarkProcessed(ctx, ev.MessageID)
	if err != nil {
		s.logger.Warn("dedupe check failed", "message_id", ev.MessageID, "error", err)
		return false
	}
	return !first
}

func (s *Service) storeFailure(op, userID string, err error) {
	var se *StoreError
	if errors.As(err, &se) && se.Op != "" {
		op = se.Op
	}
	s.metrics.ObserveStoreError(op)
	s.logger.Error("session store failed", "op", op, "user_id", userID, "error", err)
}

// Session returns the stored session for a canonical or raw user id, or
// ErrSessionNotFound. It never creates one.
func (s *Service) Session(ctx context.Context, userID string) (UserSession, error) {
	id := s.normalizer.Normalize(userID)
	if id == "" {
		return UserSession{}, errors.New("conversation: user id is required")
	}
	return s.store.Find(ctx, id)
}

// Reset puts a user back at INIT, dropping any half-finished booking.
func (s *Service) Reset(ctx context.Context, userID string) (UserSession, error) {
	id := s.normalizer.Normalize(userID)
	if id == "" {
		return UserSession{}, errors.New("conversation: user id is required")
	}
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return UserSession{}, err
	}
	defer unlock()
	sess := NewSession(id)
	if err := s.store.Update(ctx, sess); err != nil {
		return UserSession{}, err
	}
	s.logger.Info("session reset", "user_id", id)
	return sess, nil
}
