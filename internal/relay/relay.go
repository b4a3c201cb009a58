// Package relay orchestrates one conversational turn: it resolves the user's
// session, keeps a typing signal alive while the model thinks, and delivers
// the formatted reply in platform-sized chunks.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zrlgs/gembot/internal/log"
	"github.com/zrlgs/gembot/internal/markdown"
	"github.com/zrlgs/gembot/internal/session"
)

// DefaultTypingInterval is how often the typing signal is refreshed while a
// model call is in flight.
const DefaultTypingInterval = 4 * time.Second

const errorNoticePrefix = "⚠️ Error: "

// ErrUnsupportedFormatting marks a delivery rejection caused by the formatted
// payload itself. Platform implementations classify their provider's parse
// errors with this sentinel; the relay then retries the offending chunk as
// plain text.
var ErrUnsupportedFormatting = errors.New("unsupported formatting")

// Input is one inbound user message. Image bytes, when present, ride along
// as a separate content part and are never merged into the text.
type Input struct {
	Text      string
	ImageMIME string
	ImageData []byte
}

// Generator produces a model reply for an explicit history plus new input.
// Implementations hold no conversational state between calls.
type Generator interface {
	Generate(ctx context.Context, model string, history []session.Turn, input session.Turn) (string, error)
}

// Platform delivers messages to the chat surface.
type Platform interface {
	// SendFormatted delivers text with rich formatting enabled. A rejection
	// caused by the markup itself must be classified as
	// ErrUnsupportedFormatting.
	SendFormatted(ctx context.Context, chatID int64, text string) error

	// SendPlain delivers text with no formatting.
	SendPlain(ctx context.Context, chatID int64, text string) error

	// SendTyping signals that a reply is being prepared.
	SendTyping(ctx context.Context, chatID int64) error
}

// Options tune a relay. Zero values select defaults.
type Options struct {
	DefaultModel   string
	ChunkLimit     int
	TypingInterval time.Duration
}

// Relay handles conversational turns end to end.
type Relay struct {
	store          *session.Store
	generator      Generator
	platform       Platform
	logger         log.Logger
	defaultModel   string
	chunkLimit     int
	typingInterval time.Duration
}

func New(store *session.Store, generator Generator, platform Platform, opts Options, logger log.Logger) *Relay {
	if opts.ChunkLimit <= 0 {
		opts.ChunkLimit = markdown.DefaultChunkLimit
	}
	if opts.TypingInterval <= 0 {
		opts.TypingInterval = DefaultTypingInterval
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Relay{
		store:          store,
		generator:      generator,
		platform:       platform,
		logger:         logger,
		defaultModel:   opts.DefaultModel,
		chunkLimit:     opts.ChunkLimit,
		typingInterval: opts.TypingInterval,
	}
}

// HandleTurn runs one exchange for the user. The typing task is always
// joined before any delivery starts. Session turns are appended only after
// the reply has been fully delivered, so a failed turn leaves the stored
// context exactly as it was.
func (r *Relay) HandleTurn(ctx context.Context, userID, chatID int64, in Input) error {
	sess := r.store.GetOrCreate(userID, r.defaultModel)
	logger := r.logger.With(
		"turn_id", uuid.New(),
		"user_id", userID,
		"chat_id", chatID,
		"model", sess.ModelName,
	)

	userTurn := session.Turn{
		Role:      session.RoleUser,
		Text:      in.Text,
		ImageMIME: in.ImageMIME,
		ImageData: in.ImageData,
	}

	stopTyping := r.startTyping(ctx, chatID, logger)
	reply, err := r.generator.Generate(ctx, sess.ModelName, sess.History(), userTurn)
	stopTyping()
	if err != nil {
		logger.Error("model call failed", "error", err)
		r.sendNotice(ctx, chatID, err, logger)
		return fmt.Errorf("generating reply: %w", err)
	}

	if err := r.deliver(ctx, chatID, reply, logger); err != nil {
		logger.Error("reply delivery failed", "error", err)
		r.sendNotice(ctx, chatID, err, logger)
		return fmt.Errorf("delivering reply: %w", err)
	}

	sess.Append(userTurn, session.Turn{Role: session.RoleModel, Text: reply})
	logger.Debug("turn completed", "reply_bytes", len(reply))
	return nil
}

// startTyping refreshes the typing signal on a fixed interval until the
// returned stop function is called. Stop blocks until the goroutine exits.
// Signal errors are logged at debug and otherwise ignored.
func (r *Relay) startTyping(ctx context.Context, chatID int64, logger log.Logger) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.typingInterval)
		defer ticker.Stop()
		for {
			if err := r.platform.SendTyping(ctx, chatID); err != nil {
				logger.Debug("typing signal failed", "error", err)
			}
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}

// deliver formats the reply, chunks each segment, and sends the chunks in
// order. A chunk rejected for its markup is re-sent as plain text with
// escapes stripped; the fallback is local to that chunk. Any other delivery
// error aborts the turn.
func (r *Relay) deliver(ctx context.Context, chatID int64, reply string, logger log.Logger) error {
	for _, seg := range markdown.Format(reply) {
		for _, chunk := range markdown.Split(seg.Content, r.chunkLimit) {
			err := r.platform.SendFormatted(ctx, chatID, chunk)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrUnsupportedFormatting) {
				return fmt.Errorf("sending chunk: %w", err)
			}
			logger.Warn("chunk rejected for formatting, resending as plain text", "error", err)
			if err := r.platform.SendPlain(ctx, chatID, markdown.StripEscapes(chunk)); err != nil {
				return fmt.Errorf("sending plain fallback: %w", err)
			}
		}
	}
	return nil
}

// sendNotice tells the user the turn failed and why.
func (r *Relay) sendNotice(ctx context.Context, chatID int64, cause error, logger log.Logger) {
	notice := fmt.Sprintf("%s%v", errorNoticePrefix, cause)
	if err := r.platform.SendPlain(ctx, chatID, notice); err != nil {
		logger.Error("error notice delivery failed", "error", err)
	}
}
