package rsvp

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/yupnope/app/internal/database"
	"github.com/yupnope/app/internal/models"
)

// Notifier schedules a best-effort notification to an event's host about a
// changed response. Implementations must not block and must swallow their own
// failures.
type Notifier interface {
	ResponseChanged(event *models.Event, actorKey, responderName, responseType string, guestCount int)
}

// Submission carries the caller-controlled fields of a response.
type Submission struct {
	ResponseType string
	GuestCount   int
	Comments     string
}

// Reconciler applies event policy to response submissions and persists them
// with at-most-one-record-per-actor semantics.
type Reconciler struct {
	db       *sql.DB
	notifier Notifier
}

// New returns a Reconciler backed by db. notifier may be nil, in which case
// no notifications are scheduled.
func New(db *sql.DB, notifier Notifier) *Reconciler {
	return &Reconciler{db: db, notifier: notifier}
}

// SubmitResponse validates sub against event policy, inserts or overwrites the
// actor's response record and returns it together with fresh aggregate counts.
// Validation and policy failures happen before any write; a storage failure
// aborts with no partial state. The host notification is scheduled after the
// write and can never fail the submission.
func (rc *Reconciler) SubmitResponse(event *models.Event, actor models.Actor, sub Submission) (*models.Response, models.AggregateCounts, error) {
	var counts models.AggregateCounts

	if err := validateActor(actor); err != nil {
		return nil, counts, err
	}
	if !models.ValidResponseType(sub.ResponseType) {
		return nil, counts, &ValidationError{Reason: fmt.Sprintf("invalid response type %q", sub.ResponseType)}
	}

	guestCount := sub.GuestCount
	if guestCount < 0 {
		return nil, counts, &ValidationError{Reason: "guest count must be at least 1"}
	}
	if guestCount == 0 {
		guestCount = 1
	}
	// The head count only means anything for a "yup"; anything else is one actor declining or undecided.
	if sub.ResponseType != models.ResponseYup {
		guestCount = 1
	}

	// Policy checks, in order. The first failure wins and nothing is written.
	if actor.IsGuest() && !event.AllowGuestRSVP {
		return nil, counts, &PolicyError{Reason: "guest RSVP is not allowed for this event"}
	}
	if guestCount > 1 && !event.AllowPlusOne {
		return nil, counts, &PolicyError{Reason: "bringing a plus-one is not allowed for this event"}
	}
	if guestCount > event.MaxGuestsPerRSVP {
		return nil, counts, &PolicyError{Reason: fmt.Sprintf("guest count exceeds the limit of %d", event.MaxGuestsPerRSVP)}
	}

	response := &models.Response{
		EventID:      event.ID,
		ActorKey:     actor.Key(),
		ResponseType: sub.ResponseType,
		GuestCount:   guestCount,
		Comments:     sub.Comments,
	}
	switch actor.Kind {
	case models.ActorUser:
		response.UserID = actor.UserID
	case models.ActorGuest:
		response.IsGuest = true
		response.GuestName = strings.TrimSpace(actor.GuestName)
		response.GuestEmail = strings.TrimSpace(actor.GuestEmail)
		response.GuestPhone = strings.TrimSpace(actor.GuestPhone)
	}

	persisted, err := database.UpsertResponse(rc.db, response)
	if err != nil {
		return nil, counts, &StorageError{Op: "upsert response", Err: err}
	}

	counts, err = database.CountResponsesByType(rc.db, event.ID)
	if err != nil {
		return nil, counts, &StorageError{Op: "count responses", Err: err}
	}

	rc.scheduleNotification(event, actor, persisted)

	return persisted, counts, nil
}

// AggregateCounts recomputes the per-type distinct-actor counts for an event.
func (rc *Reconciler) AggregateCounts(eventID int64) (models.AggregateCounts, error) {
	counts, err := database.CountResponsesByType(rc.db, eventID)
	if err != nil {
		return counts, &StorageError{Op: "count responses", Err: err}
	}
	return counts, nil
}

// IsRosterVisibleTo reports whether viewerID may see the event's roster.
// viewerID is zero for anonymous viewers.
func (rc *Reconciler) IsRosterVisibleTo(event *models.Event, viewerID int64) (bool, error) {
	// The host and public rosters need no counts; skip the query for them.
	if viewerID == event.HostID && viewerID != 0 {
		return true, nil
	}
	if event.RSVPVisibility == models.VisibilityPublic {
		return true, nil
	}

	counts, err := rc.AggregateCounts(event.ID)
	if err != nil {
		return false, err
	}
	return RosterVisible(event, viewerID, counts), nil
}

// RosterVisible is the pure form of the visibility predicate, given
// already-computed counts. Rules in order: the host always sees the roster;
// public events expose it to everyone; threshold events expose it once enough
// distinct actors have said yup. Invitee-only events stay host-only.
func RosterVisible(event *models.Event, viewerID int64, counts models.AggregateCounts) bool {
	if viewerID == event.HostID && viewerID != 0 {
		return true
	}
	if event.RSVPVisibility == models.VisibilityPublic {
		return true
	}
	if event.RSVPVisibility == models.VisibilityThreshold && counts.YupCount >= event.VisibilityThreshold {
		return true
	}
	return false
}

func (rc *Reconciler) scheduleNotification(event *models.Event, actor models.Actor, persisted *models.Response) {
	if rc.notifier == nil {
		return
	}
	switch actor.Kind {
	case models.ActorUser:
		if actor.UserID == event.HostID {
			return // hosts don't get notified about their own RSVP
		}
	case models.ActorGuest:
		// guests always notify; they can never be the host
	}
	rc.notifier.ResponseChanged(event, persisted.ActorKey, persisted.DisplayName(),
		persisted.ResponseType, persisted.GuestCount)
}

func validateActor(actor models.Actor) error {
	switch actor.Kind {
	case models.ActorUser:
		if actor.UserID <= 0 {
			return &ValidationError{Reason: "user actor requires a user ID"}
		}
		return nil
	case models.ActorGuest:
		if strings.TrimSpace(actor.GuestName) == "" {
			return &ValidationError{Reason: "guest name is required"}
		}
		if strings.TrimSpace(actor.GuestEmail) == "" {
			return &ValidationError{Reason: "guest email is required"}
		}
		return nil
	}
	return &ValidationError{Reason: "unknown actor kind"}
}
