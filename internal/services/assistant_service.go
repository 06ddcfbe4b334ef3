package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
	"github.com/tbourn/go-printshop-assistant/internal/session"
)

const maxSessionIDLen = 128

// TurnRequest is one user message addressed to a session.
type TurnRequest struct {
	SessionID string
	UserID    *string
	Input     string
	// IdempotencyKey, when set, makes a repeated request with the same key
	// and message return the first result instead of running again.
	IdempotencyKey string
}

// TurnResult is what the bot answered and where the dialogue now stands.
// It is also the record stored for idempotent replays.
type TurnResult struct {
	SessionID string         `json:"session_id"`
	Reply     dialogue.Reply `json:"reply"`
	Step      dialogue.Step  `json:"step"`
	TicketID  string         `json:"ticket_id,omitempty"`
	// Replayed is set when the result comes from an earlier turn.
	Replayed bool `json:"-"`
}

// AssistantService runs dialogue turns. Turns of the same session are
// serialized by Locker; the new state is stored only after the engine and
// its database work succeeded, so a failed turn can be retried as is.
type AssistantService struct {
	DB     *gorm.DB
	Engine *dialogue.Engine
	Store  session.Store
	Locker session.Locker

	MaxInputRunes  int
	LockTimeout    time.Duration
	IdempotencyTTL time.Duration
}

// NewAssistantService wires an AssistantService with default limits.
func NewAssistantService(db *gorm.DB, engine *dialogue.Engine, store session.Store, locker session.Locker) *AssistantService {
	return &AssistantService{
		DB:             db,
		Engine:         engine,
		Store:          store,
		Locker:         locker,
		MaxInputRunes:  2000,
		LockTimeout:    10 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Turn processes one user message.
func (s *AssistantService) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	tr := otel.Tracer("services/AssistantService")
	ctx, span := tr.Start(ctx, "Turn", trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	res, startStep, err := s.turn(ctx, req)
	if err != nil {
		turnsTotal.WithLabelValues(string(startStep), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		return nil, err
	}
	if res.Replayed {
		turnsTotal.WithLabelValues(string(startStep), "replayed").Inc()
		span.SetAttributes(attribute.Bool("idempotency.replayed", true))
		return res, nil
	}
	turnsTotal.WithLabelValues(string(startStep), "ok").Inc()
	span.SetAttributes(
		attribute.String("dialogue.from", string(startStep)),
		attribute.String("dialogue.to", string(res.Step)),
	)
	return res, nil
}

func (s *AssistantService) turn(ctx context.Context, req TurnRequest) (*TurnResult, dialogue.Step, error) {
	key := strings.TrimSpace(req.SessionID)
	if key == "" || len(key) > maxSessionIDLen {
		return nil, "", ErrInvalidSessionID
	}
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return nil, "", ErrEmptyInput
	}
	if s.MaxInputRunes > 0 && utf8.RuneCountInString(input) > s.MaxInputRunes {
		return nil, "", ErrInputTooLong
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	// Checked under the session lock, so a concurrent request with the same
	// key waits for the first one and then replays it.
	if req.IdempotencyKey != "" {
		res, found, err := s.replay(ctx, key, req.IdempotencyKey, input)
		if err != nil || found {
			return res, "", err
		}
	}

	sess, err := repo.ResolveSession(ctx, s.DB, key, req.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve session: %w", err)
	}

	st, err := s.Store.Get(ctx, key)
	switch {
	case errors.Is(err, session.ErrCorruptState):
		// The engine answers an invalid state with the menu and resets it.
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", key).Msg("discarding dialogue state")
		st = dialogue.State{}
	case err != nil:
		return nil, "", fmt.Errorf("load dialogue state: %w", err)
	}

	var out dialogue.Outcome
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		env := dialogue.Env{Catalog: repo.NewCatalog(tx), Tickets: repo.NewTicketWriter(tx)}
		var perr error
		out, perr = s.Engine.Process(ctx, env, st, input)
		return perr
	})
	if err != nil {
		return nil, st.Step, fmt.Errorf("process turn: %w", err)
	}
	s.observeOutcome(ctx, key, out)

	if err := s.Store.Put(ctx, key, out.State); err != nil {
		return nil, st.Step, fmt.Errorf("store dialogue state: %w", err)
	}

	s.appendTranscript(ctx, sess.ID, input, out.Reply.Message)

	res := &TurnResult{SessionID: key, Reply: out.Reply, Step: out.State.Step}
	if out.Ticket != nil {
		res.TicketID = out.Ticket.ID
	}
	if req.IdempotencyKey != "" {
		s.remember(ctx, key, req.IdempotencyKey, input, res)
	}
	return res, st.Step, nil
}

// inputHash fingerprints a message for idempotency conflict detection.
func inputHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// replay returns the stored result for (sessionKey, idemKey), if any.
func (s *AssistantService) replay(ctx context.Context, sessionKey, idemKey, input string) (*TurnResult, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, sessionKey, idemKey, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if rec.InputHash != inputHash(input) {
		return nil, false, ErrIdempotencyConflict
	}
	var res TurnResult
	if err := json.Unmarshal(rec.Response, &res); err != nil {
		return nil, false, fmt.Errorf("decode stored turn: %w", err)
	}
	res.Replayed = true
	return &res, true, nil
}

// remember stores a successful result for later replays. The turn has
// already committed, so a failure here is only logged.
func (s *AssistantService) remember(ctx context.Context, sessionKey, idemKey, input string, res *TurnResult) {
	body, err := json.Marshal(res)
	if err == nil {
		_, err = repo.CreateIdempotency(ctx, s.DB, sessionKey, idemKey, inputHash(input), http.StatusOK, body, s.IdempotencyTTL)
	}
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionKey).Msg("idempotency store failed")
	}
}

func (s *AssistantService) lock(ctx context.Context, key string) (func(), error) {
	lctx := ctx
	if s.LockTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, s.LockTimeout)
		defer cancel()
	}
	unlock, err := s.Locker.Lock(lctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, session.ErrLockTimeout) {
			return nil, ErrSessionBusy
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return unlock, nil
}

func (s *AssistantService) observeOutcome(ctx context.Context, key string, out dialogue.Outcome) {
	switch out.Fallback {
	case dialogue.FallbackOK:
		fallbackTotal.WithLabelValues("ok").Inc()
	case dialogue.FallbackFailed:
		fallbackTotal.WithLabelValues("error").Inc()
		zerolog.Ctx(ctx).Warn().Err(out.FallbackErr).Str("session_id", key).Msg("fallback responder failed")
	}
	if out.Ticket != nil {
		ticketsCreated.Inc()
		zerolog.Ctx(ctx).Info().Str("session_id", key).Str("ticket_id", out.Ticket.ID).Msg("support ticket created")
	}
}

// appendTranscript logs the user message and the bot reply. It runs after
// the turn is committed and never fails the turn.
func (s *AssistantService) appendTranscript(ctx context.Context, sessionID, userText, botText string) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.AppendMessage(ctx, tx, sessionID, domain.SenderUser, userText); err != nil {
			return err
		}
		_, err := repo.AppendMessage(ctx, tx, sessionID, domain.SenderBot, botText)
		return err
	})
	if err != nil {
		transcriptFailures.Inc()
		zerolog.Ctx(ctx).Error().Err(err).Str("chat_session_id", sessionID).Msg("transcript write failed")
	}
}
