package console

import (
	"sync"

	"github.com/kjstillabower/sunrise-lookup/internal/notify"
)

// NotificationSink implements notify.Sink by printing notifications as they
// appear and disappear.
type NotificationSink struct {
	out *Output

	mu    sync.Mutex
	shown map[string]notify.Notification
}

// NewNotificationSink returns a sink writing to out.
func NewNotificationSink(out *Output) *NotificationSink {
	return &NotificationSink{out: out, shown: make(map[string]notify.Notification)}
}

func (s *NotificationSink) Show(n notify.Notification) {
	s.mu.Lock()
	s.shown[n.ID] = n
	stacked := len(s.shown)
	s.mu.Unlock()
	s.out.Printf("[%s] %s: %s (%d shown)", n.Kind, n.Title, n.Message, stacked)
}

func (s *NotificationSink) Remove(id string) {
	s.mu.Lock()
	n, ok := s.shown[id]
	delete(s.shown, id)
	s.mu.Unlock()
	if ok {
		s.out.Printf("[%s] %s dismissed", n.Kind, n.Title)
	}
}

// Shown returns how many notifications are currently displayed.
func (s *NotificationSink) Shown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shown)
}
