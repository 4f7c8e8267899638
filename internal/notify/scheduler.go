package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yupnope/app/internal/models"
)

const (
	// DefaultDebounce is how long an actor's changes must stay quiet before
	// their latest response is reported to the host.
	DefaultDebounce = 3 * time.Second
	// DefaultHostInterval is the minimum gap between two sends to the same
	// host, across all actors and events.
	DefaultHostInterval = 30 * time.Second
)

type pendingSend struct {
	timer   *time.Timer
	hostID  int64
	payload Payload
}

// Scheduler debounces response-change notifications per (event, actor) and
// enforces the per-host send interval. State lives entirely in the scheduler
// instance so tests can construct and discard it freely; pending timers are
// not durable and a process restart drops them.
type Scheduler struct {
	sender   Sender
	contacts ContactLookup
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSend
	hosts   *hostLimiter
	stopped bool
}

// NewScheduler returns a Scheduler with the default debounce and host windows.
func NewScheduler(sender Sender, contacts ContactLookup) *Scheduler {
	return NewSchedulerWithWindows(sender, contacts, DefaultDebounce, DefaultHostInterval)
}

// NewSchedulerWithWindows is NewScheduler with explicit windows, for tests.
func NewSchedulerWithWindows(sender Sender, contacts ContactLookup, debounce, hostInterval time.Duration) *Scheduler {
	return &Scheduler{
		sender:   sender,
		contacts: contacts,
		debounce: debounce,
		pending:  make(map[string]*pendingSend),
		hosts:    newHostLimiter(hostInterval),
	}
}

// ResponseChanged implements rsvp.Notifier. It records the actor's latest
// state and (re)starts their debounce timer; only the state at the moment the
// timer fires is sent. The call never blocks on delivery.
func (s *Scheduler) ResponseChanged(event *models.Event, actorKey, responderName, responseType string, guestCount int) {
	key := fmt.Sprintf("%d|%s", event.ID, actorKey)
	payload := Payload{
		ResponderName: responderName,
		EventTitle:    event.Title,
		ResponseType:  responseType,
		GuestCount:    guestCount,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if p, ok := s.pending[key]; ok {
		p.payload = payload
		p.timer.Reset(s.debounce)
		return
	}

	p := &pendingSend{hostID: event.HostID, payload: payload}
	p.timer = time.AfterFunc(s.debounce, func() { s.fire(key) })
	s.pending[key] = p
}

// Stop cancels all pending timers. Further ResponseChanged calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

func (s *Scheduler) fire(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)

	if !s.hosts.allow(p.hostID) {
		s.mu.Unlock()
		logrus.WithField("host_id", p.hostID).Debug("notification dropped by host rate limit")
		return
	}
	s.mu.Unlock()

	contact, err := s.contacts(p.hostID)
	if err != nil {
		logrus.WithError(err).WithField("host_id", p.hostID).Error("failed to resolve host contact")
		return
	}

	if err := s.sender.Send(contact, p.payload); err != nil {
		logrus.WithError(err).WithField("host_id", p.hostID).Error("failed to send host notification")
	}
}
