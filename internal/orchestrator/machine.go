// Package orchestrator sequences enhancement, generation and modification
// turns for one client session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/htmldoc"
	"github.com/xiaot623/pagesmith/internal/logging"
)

// Machine is the client-side session state machine. Calls that reach the
// backend block until it answers; while one is outstanding every other
// call that would start a turn fails with domain.ErrBusy.
type Machine struct {
	mu         sync.Mutex
	backend    Backend
	normalizer *htmldoc.Normalizer
	logger     *zap.Logger
	observer   func(from, to State)

	sessionID  string
	state      State
	artifact   domain.Document
	transcript []Entry
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithObserver registers fn to run on every state change. fn runs with the
// machine locked and must not call back into it.
func WithObserver(fn func(from, to State)) Option {
	return func(m *Machine) { m.observer = fn }
}

// New creates a Machine for sessionID, or for a fresh id when it is empty.
func New(backend Backend, sessionID string, opts ...Option) *Machine {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	m := &Machine{
		backend:    backend,
		normalizer: htmldoc.New(),
		logger:     zap.NewNop(),
		sessionID:  sessionID,
		state:      Idle{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("orchestrator")
	return m
}

// SessionID returns the current session id.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Artifact returns the current page, empty before the first generation.
func (m *Machine) Artifact() domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.artifact
}

// Transcript returns a copy of the visible transcript.
func (m *Machine) Transcript() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.transcript...)
}

// Submit starts a turn. Without a page the prompt is enhanced first and the
// machine stops in ReviewingEnhanced; with a page the prompt is applied as a
// modification. Submitting from Error retries with the new prompt.
func (m *Machine) Submit(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return domain.NewValidationError("prompt")
	}

	m.mu.Lock()
	if err := m.ready("submit"); err != nil {
		m.mu.Unlock()
		return err
	}
	sessionID := m.sessionID
	if m.artifact.Empty() {
		m.setState(Enhancing{Prompt: prompt})
		m.mu.Unlock()
		return m.enhance(ctx, sessionID, prompt)
	}
	snapshot, current := m.beginModify(prompt)
	m.mu.Unlock()
	return m.modify(ctx, sessionID, prompt, current, snapshot)
}

// EditEnhanced replaces the enhanced text under review.
func (m *Machine) EditEnhanced(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.state.(ReviewingEnhanced)
	if !ok {
		return m.invalid("edit")
	}
	review.Enhanced = text
	m.state = review
	return nil
}

// Confirm generates from the (possibly edited) enhanced text.
func (m *Machine) Confirm(ctx context.Context) error {
	m.mu.Lock()
	review, ok := m.state.(ReviewingEnhanced)
	if !ok {
		defer m.mu.Unlock()
		return m.invalid("confirm")
	}
	prompt, usedEnhanced := review.Enhanced, true
	if strings.TrimSpace(prompt) == "" {
		// An emptied review falls back to the original request.
		prompt, usedEnhanced = review.Original, false
	}
	sessionID := m.sessionID
	m.setState(Generating{Prompt: prompt, UsedEnhanced: usedEnhanced})
	m.mu.Unlock()
	return m.generate(ctx, sessionID, prompt, usedEnhanced)
}

// Cancel discards the enhanced text and generates from the original prompt.
func (m *Machine) Cancel(ctx context.Context) error {
	m.mu.Lock()
	review, ok := m.state.(ReviewingEnhanced)
	if !ok {
		defer m.mu.Unlock()
		return m.invalid("cancel")
	}
	sessionID := m.sessionID
	m.setState(Generating{Prompt: review.Original})
	m.mu.Unlock()
	return m.generate(ctx, sessionID, review.Original, false)
}

// Retry repeats the call that put the machine in Error.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	failed, ok := m.state.(Failed)
	if !ok {
		defer m.mu.Unlock()
		return m.invalid("retry")
	}
	sessionID := m.sessionID
	switch p := failed.Pending.(type) {
	case Generating:
		m.setState(p)
		m.mu.Unlock()
		return m.generate(ctx, sessionID, p.Prompt, p.UsedEnhanced)
	case Modifying:
		snapshot, current := m.beginModify(p.Prompt)
		m.mu.Unlock()
		return m.modify(ctx, sessionID, p.Prompt, current, snapshot)
	default:
		defer m.mu.Unlock()
		return m.invalid("retry")
	}
}

// Import adopts html as the current page. Text that is not a complete
// document is repaired or wrapped so the page is always renderable. The
// server conversation is not touched; the next modification restates the
// imported page.
func (m *Machine) Import(html string) (htmldoc.Outcome, error) {
	if strings.TrimSpace(html) == "" {
		return "", domain.NewValidationError("htmlContent")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready("import"); err != nil {
		return "", err
	}
	result := m.normalizer.Keep(html, "")
	m.artifact = result.Document
	m.setState(Idle{})
	return result.Outcome, nil
}

// Deploy publishes the current page (simulated) and announces the URL in
// the transcript.
func (m *Machine) Deploy(ctx context.Context, siteName string) (*domain.DeployResponse, error) {
	m.mu.Lock()
	if err := m.ready("deploy"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	doc := m.artifact
	m.mu.Unlock()
	if doc.Empty() {
		return nil, &domain.ValidationError{Field: "htmlContent", Reason: "no page to deploy, generate one first"}
	}

	resp, err := m.backend.Deploy(ctx, domain.DeployRequest{HTMLContent: doc.String(), SiteName: siteName})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.transcript = append(m.transcript, Entry{Role: domain.RoleSystem, Content: deployStatus + " " + resp.URL, Local: true})
	m.mu.Unlock()
	return resp, nil
}

// Reset starts a new session. The old one is left on the server.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.busy() {
		return domain.ErrBusy
	}
	m.sessionID = uuid.New().String()
	m.artifact = ""
	m.transcript = nil
	m.setState(Idle{})
	return nil
}

// Resume loads the session's conversation and adopts its last page. An
// unknown session is not an error; it has simply not been used yet.
func (m *Machine) Resume(ctx context.Context) error {
	m.mu.Lock()
	if m.state.busy() {
		m.mu.Unlock()
		return domain.ErrBusy
	}
	sessionID := m.sessionID
	m.mu.Unlock()

	history, err := m.backend.History(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionID != sessionID {
		return nil
	}
	m.transcript = fromHistory(history)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant && htmldoc.IsValid(history[i].Content) {
			m.artifact = domain.Document(history[i].Content)
			break
		}
	}
	return nil
}

func (m *Machine) enhance(ctx context.Context, sessionID, prompt string) error {
	resp, err := m.backend.EnhancePrompt(ctx, domain.EnhanceRequest{Prompt: prompt, SessionID: sessionID})

	m.mu.Lock()
	if err != nil {
		m.logger.Warn("enhancement failed, generating from the original prompt",
			logging.Session(sessionID), zap.Error(err))
		m.setState(Generating{Prompt: prompt})
		m.mu.Unlock()
		return m.generate(ctx, sessionID, prompt, false)
	}
	m.setState(ReviewingEnhanced{Original: prompt, Enhanced: resp.EnhancedPrompt})
	m.mu.Unlock()
	return nil
}

func (m *Machine) generate(ctx context.Context, sessionID, prompt string, usedEnhanced bool) error {
	resp, err := m.backend.Generate(ctx, domain.GenerateRequest{
		Prompt:       prompt,
		SessionID:    sessionID,
		UsedEnhanced: usedEnhanced,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.setState(Failed{Err: err, Pending: Generating{Prompt: prompt, UsedEnhanced: usedEnhanced}})
		return err
	}
	m.artifact = m.adopt(resp.Code, "")
	m.transcript = fromHistory(resp.ChatHistory)
	m.setState(Idle{})
	return nil
}

// beginModify shows the prompt and a status line before the call goes out.
// It returns the transcript to restore if the call fails.
func (m *Machine) beginModify(prompt string) ([]Entry, domain.Document) {
	snapshot := append([]Entry(nil), m.transcript...)
	m.transcript = append(append([]Entry(nil), snapshot...),
		Entry{Role: domain.RoleUser, Content: prompt, Local: true},
		Entry{Role: domain.RoleSystem, Content: modifyingStatus, Local: true},
	)
	m.setState(Modifying{Prompt: prompt})
	return snapshot, m.artifact
}

func (m *Machine) modify(ctx context.Context, sessionID, prompt string, current domain.Document, snapshot []Entry) error {
	resp, err := m.backend.Modify(ctx, domain.ModifyRequest{
		Prompt:      prompt,
		CurrentCode: current.String(),
		SessionID:   sessionID,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.transcript = snapshot
		m.setState(Failed{Err: err, Pending: Modifying{Prompt: prompt}})
		return err
	}
	m.artifact = m.adopt(resp.Code, current)
	m.transcript = fromHistory(resp.ChatHistory)
	m.setState(Idle{})
	return nil
}

// adopt takes a page returned by the backend, which has normalized it
// already.
func (m *Machine) adopt(code string, fallback domain.Document) domain.Document {
	return m.normalizer.Keep(code, fallback).Document
}

// ready reports whether a new turn may start. Callers hold m.mu.
func (m *Machine) ready(action string) error {
	switch m.state.(type) {
	case Idle, Failed:
		return nil
	case ReviewingEnhanced:
		return m.invalid(action)
	default:
		return domain.ErrBusy
	}
}

func (m *Machine) invalid(action string) error {
	if m.state.busy() {
		return domain.ErrBusy
	}
	return fmt.Errorf("%w: cannot %s in state %s", domain.ErrInvalidTransition, action, m.state.Name())
}

func (m *Machine) setState(to State) {
	from := m.state
	m.state = to
	m.logger.Debug("state changed",
		logging.Session(m.sessionID),
		zap.String("from", from.Name()),
		zap.String("to", to.Name()))
	if m.observer != nil {
		m.observer(from, to)
	}
}
