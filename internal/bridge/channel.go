package bridge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/logging"
	"github.com/xiaot623/pagesmith/internal/observability"
)

var (
	// ErrHubSaturated is returned by Publish when the broadcast queue is full.
	ErrHubSaturated = errors.New("bridge hub saturated")
	// ErrHubStopped is returned once the hub loop has exited.
	ErrHubStopped = errors.New("bridge hub stopped")
)

// Drop reasons.
const (
	DropOrigin  = "origin"
	DropStale   = "stale"
	DropToken   = "token"
	DropInvalid = "invalid"
)

// DropError reports why an inbound message was ignored.
type DropError struct {
	Reason string
}

func (e *DropError) Error() string {
	return "bridge message dropped: " + e.Reason
}

// IsDropped reports whether err is a DropError.
func IsDropped(err error) bool {
	var de *DropError
	return errors.As(err, &de)
}

// Channel tracks the live preview frame of every session and validates what
// frames send back. Opening a frame tears down the session's previous one,
// so messages still in flight from it are dropped as stale.
type Channel struct {
	mu      sync.Mutex
	frames  map[string]*domain.Frame
	current map[string]string

	allowedOrigin string
	instrumenter  *Instrumenter
	hub           *Hub
	metrics       *observability.Collector
	logger        *zap.Logger
	now           func() time.Time
}

// NewChannel creates a Channel. Messages must carry allowedOrigin; "*"
// accepts any origin. hub and metrics may be nil.
func NewChannel(allowedOrigin string, instrumenter *Instrumenter, hub *Hub, metrics *observability.Collector, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if instrumenter == nil {
		instrumenter = &Instrumenter{}
	}
	return &Channel{
		frames:        make(map[string]*domain.Frame),
		current:       make(map[string]string),
		allowedOrigin: allowedOrigin,
		instrumenter:  instrumenter,
		hub:           hub,
		metrics:       metrics,
		logger:        logger.Named("bridge"),
		now:           time.Now,
	}
}

// Open renders doc into a new frame for sessionID and makes it the
// session's current frame.
func (c *Channel) Open(sessionID string, doc domain.Document, highlightPrompt string) (*domain.Frame, error) {
	frame := &domain.Frame{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Token:     uuid.New().String(),
		Origin:    c.allowedOrigin,
		OpenedAt:  c.now(),
	}
	rendered, marked, err := c.instrumenter.Instrument(doc, frame, highlightPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument document: %w", err)
	}
	frame.Document = domain.Document(rendered)

	c.mu.Lock()
	if prev, ok := c.current[sessionID]; ok {
		delete(c.frames, prev)
	}
	c.frames[frame.ID] = frame
	c.current[sessionID] = frame.ID
	c.mu.Unlock()

	c.logger.Debug("preview frame opened",
		logging.Session(sessionID),
		zap.String("frame_id", frame.ID),
		zap.Int("highlighted", marked))
	return frame, nil
}

// Frame returns a live frame by id.
func (c *Channel) Frame(frameID string) (*domain.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame, ok := c.frames[frameID]
	if !ok {
		return nil, domain.ErrFrameNotFound
	}
	return frame, nil
}

// Teardown discards the session's current frame.
func (c *Channel) Teardown(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.current[sessionID]; ok {
		delete(c.frames, id)
		delete(c.current, sessionID)
	}
}

// Accept validates an inbound message against the frame it claims to come
// from and publishes it. Anything that does not match a live frame is
// dropped with a DropError.
func (c *Channel) Accept(origin string, msg domain.BridgeMessage) (*domain.BridgeEvent, error) {
	if c.allowedOrigin != "*" && origin != c.allowedOrigin {
		return nil, c.drop(DropOrigin, msg)
	}

	c.mu.Lock()
	frame, ok := c.frames[msg.FrameID]
	c.mu.Unlock()
	if !ok {
		return nil, c.drop(DropStale, msg)
	}
	if msg.Token != frame.Token {
		return nil, c.drop(DropToken, msg)
	}
	if !msg.Type.Valid() {
		return nil, c.drop(DropInvalid, msg)
	}
	level := msg.Data.Level
	if !level.Valid() {
		level = domain.LogLevelLog
	}

	event := &domain.BridgeEvent{
		SessionID: frame.SessionID,
		FrameID:   frame.ID,
		Type:      msg.Type,
		Level:     level,
		Content:   msg.Data.Content,
		Ts:        c.now().UnixMilli(),
	}
	if c.metrics != nil {
		c.metrics.BridgeEvents.WithLabelValues(string(event.Type), string(event.Level)).Inc()
	}
	if c.hub != nil {
		if err := c.hub.Publish(*event); err != nil {
			c.logger.Warn("failed to publish bridge event", logging.Session(frame.SessionID), zap.Error(err))
		}
	}
	return event, nil
}

func (c *Channel) drop(reason string, msg domain.BridgeMessage) error {
	if c.metrics != nil {
		c.metrics.BridgeDropped.WithLabelValues(reason).Inc()
	}
	c.logger.Debug("bridge message dropped",
		zap.String("reason", reason),
		zap.String("frame_id", msg.FrameID))
	return &DropError{Reason: reason}
}
