package models

import "time"

// Roster visibility modes for an event.
const (
	VisibilityPublic    = "public"
	VisibilityInvitees  = "invitees"
	VisibilityThreshold = "threshold"
)

// Event is the per-event configuration the RSVP flow reads. It is created by
// the host and treated as read-only everywhere else.
type Event struct {
	ID                  int64     `json:"id"`
	HostID              int64     `json:"hostId"`
	Slug                string    `json:"slug"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	AllowGuestRSVP      bool      `json:"allowGuestRsvp"`
	AllowPlusOne        bool      `json:"allowPlusOne"`
	MaxGuestsPerRSVP    int       `json:"maxGuestsPerRsvp"`
	RSVPVisibility      string    `json:"rsvpVisibility"`
	VisibilityThreshold int       `json:"rsvpVisibilityThreshold"`
	CreatedAt           time.Time `json:"createdAt"`
}

// AggregateCounts is derived per event by counting distinct actors per
// response type. It is never persisted.
type AggregateCounts struct {
	YupCount   int `json:"yupCount"`
	NopeCount  int `json:"nopeCount"`
	MaybeCount int `json:"maybeCount"`
}
