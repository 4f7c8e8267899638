package models

import (
	"fmt"
	"strings"
)

// ActorKind discriminates the two shapes an RSVP submitter can take.
type ActorKind int

const (
	ActorUser ActorKind = iota + 1
	ActorGuest
)

// Actor identifies who is responding to an event: either an authenticated
// user (UserID set) or an anonymous guest (GuestName/GuestEmail set). The Kind
// field is the discriminant; every branch point must switch on it rather than
// probing for non-zero fields.
type Actor struct {
	Kind ActorKind

	// Set when Kind == ActorUser.
	UserID int64

	// Set when Kind == ActorGuest. GuestEmail is the guest's identity.
	GuestName  string
	GuestEmail string
	GuestPhone string
}

// NewUserActor returns an Actor for an authenticated user.
func NewUserActor(userID int64) Actor {
	return Actor{Kind: ActorUser, UserID: userID}
}

// NewGuestActor returns an Actor for an anonymous guest.
func NewGuestActor(name, email, phone string) Actor {
	return Actor{Kind: ActorGuest, GuestName: name, GuestEmail: email, GuestPhone: phone}
}

// Key returns the deduplication key for the actor within one event. Users are
// keyed by their stable ID. Guests have no stable ID, so their key is the
// e-mail address trimmed and case-folded; no further normalization ("+"
// aliasing, trailing dots) is applied.
func (a Actor) Key() string {
	switch a.Kind {
	case ActorUser:
		return fmt.Sprintf("user:%d", a.UserID)
	case ActorGuest:
		return "guest:" + NormalizeGuestEmail(a.GuestEmail)
	}
	return ""
}

// IsGuest reports whether the actor is an anonymous guest.
func (a Actor) IsGuest() bool {
	return a.Kind == ActorGuest
}

// NormalizeGuestEmail trims surrounding whitespace and lower-cases the address.
func NormalizeGuestEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
