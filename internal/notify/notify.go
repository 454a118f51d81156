// Package notify shows transient, stackable user notifications that expire on
// their own after a fixed lifetime.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/clock"
)

// Lifetime is how long a notification stays up unless dismissed first.
const Lifetime = 3000 * time.Millisecond

// Kind selects the notification styling.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Title is the default heading for a kind.
func (k Kind) Title() string {
	if k == KindError {
		return "Error"
	}
	return "Success"
}

// Notification is one displayed message.
type Notification struct {
	ID        string
	Kind      Kind
	Title     string
	Message   string
	CreatedAt time.Time
}

// Sink renders notifications. Remove is called exactly once per shown notification.
type Sink interface {
	Show(n Notification)
	Remove(id string)
}

// Notifier is what other components depend on.
type Notifier interface {
	Notify(kind Kind, message string) string
	Post(n Notification) string
}

// Emitter tracks live notifications and their expiry timers.
type Emitter struct {
	sink     Sink
	schedule clock.AfterFunc
	logger   *zap.Logger

	mu     sync.Mutex
	order  []string
	active map[string]entry
}

type entry struct {
	n     Notification
	timer clock.Timer
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithScheduler replaces the real timer source.
func WithScheduler(s clock.AfterFunc) Option {
	return func(e *Emitter) { e.schedule = s }
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *zap.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEmitter creates an Emitter writing to sink.
func NewEmitter(sink Sink, opts ...Option) *Emitter {
	e := &Emitter{
		sink:     sink,
		schedule: clock.Real,
		logger:   zap.NewNop(),
		active:   make(map[string]entry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Notify shows a message with the kind's default title and returns its id.
func (e *Emitter) Notify(kind Kind, message string) string {
	return e.Post(Notification{Kind: kind, Message: message})
}

// Post shows n, filling in ID, Title and CreatedAt when empty.
func (e *Emitter) Post(n Notification) string {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Title == "" {
		n.Title = n.Kind.Title()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	e.mu.Lock()
	e.active[n.ID] = entry{n: n}
	e.order = append(e.order, n.ID)
	e.mu.Unlock()

	e.sink.Show(n)
	e.logger.Debug("notification shown", zap.String("id", n.ID), zap.String("kind", string(n.Kind)), zap.String("message", n.Message))

	id := n.ID
	timer := e.schedule(Lifetime, func() { e.remove(id, "expired") })

	e.mu.Lock()
	if ent, ok := e.active[id]; ok {
		ent.timer = timer
		e.active[id] = ent
	}
	e.mu.Unlock()
	return id
}

// Dismiss removes a notification before it expires. Returns false if it is
// already gone.
func (e *Emitter) Dismiss(id string) bool {
	return e.remove(id, "dismissed")
}

func (e *Emitter) remove(id, reason string) bool {
	e.mu.Lock()
	ent, ok := e.active[id]
	if !ok {
		e.mu.Unlock()
		return false
	}
	delete(e.active, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if ent.timer != nil {
		ent.timer.Stop()
	}
	e.sink.Remove(id)
	e.logger.Debug("notification removed", zap.String("id", id), zap.String("reason", reason))
	return true
}

// Active returns the displayed notifications, oldest first.
func (e *Emitter) Active() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Notification, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.active[id].n)
	}
	return out
}
