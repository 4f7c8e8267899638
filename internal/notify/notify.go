// Package notify delivers best-effort host notifications about changed RSVP
// responses. Sends are debounced per (event, actor) and rate-limited per host;
// anything that cannot be sent inside those constraints is dropped, never
// queued or retried.
package notify

import (
	"github.com/sirupsen/logrus"
)

// Payload is what the host receives about a changed response.
type Payload struct {
	ResponderName string
	EventTitle    string
	ResponseType  string
	GuestCount    int
}

// Sender delivers a single notification to a host contact address. The return
// value is only ever logged.
type Sender interface {
	Send(hostContact string, payload Payload) error
}

// ContactLookup resolves a host's contact address from their user ID.
type ContactLookup func(hostID int64) (string, error)

// LogSender writes notifications to the log instead of an external channel.
// It stands in for a real mail or push transport, which the surrounding
// application injects.
type LogSender struct{}

func (LogSender) Send(hostContact string, payload Payload) error {
	logrus.WithFields(logrus.Fields{
		"host":         hostContact,
		"responder":    payload.ResponderName,
		"event":        payload.EventTitle,
		"responseType": payload.ResponseType,
		"guestCount":   payload.GuestCount,
	}).Info("host notification")
	return nil
}
