package models

import "time"

// Valid response types.
const (
	ResponseYup   = "yup"
	ResponseNope  = "nope"
	ResponseMaybe = "maybe"
)

// ValidResponseType reports whether s is one of yup/nope/maybe.
func ValidResponseType(s string) bool {
	switch s {
	case ResponseYup, ResponseNope, ResponseMaybe:
		return true
	}
	return false
}

// Response is one actor's latest answer for one event. There is at most one
// row per (EventID, ActorKey); a later submission from the same actor
// overwrites the earlier one instead of appending.
type Response struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"eventId"`
	ActorKey     string    `json:"-"`
	UserID       int64     `json:"userId,omitempty"`
	IsGuest      bool      `json:"isGuest"`
	GuestName    string    `json:"guestName,omitempty"`
	GuestEmail   string    `json:"guestEmail,omitempty"`
	GuestPhone   string    `json:"guestPhone,omitempty"`
	ResponseType string    `json:"responseType"`
	GuestCount   int       `json:"guestCount"`
	Comments     string    `json:"comments,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UserEmail    string    `json:"userEmail,omitempty"` // joined from users for display
}

// DisplayName is the name shown in notifications and the roster: the guest's
// name for guest responses, otherwise the responding user's e-mail.
func (r *Response) DisplayName() string {
	if r.IsGuest {
		return r.GuestName
	}
	return r.UserEmail
}
