package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yupnope/app/internal/database"
	"github.com/yupnope/app/internal/models"
	"github.com/yupnope/app/internal/rsvp"
)

type createEventRequest struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	AllowGuestRSVP      *bool  `json:"allowGuestRsvp"`
	AllowPlusOne        *bool  `json:"allowPlusOne"`
	MaxGuestsPerRSVP    int    `json:"maxGuestsPerRsvp"`
	RSVPVisibility      string `json:"rsvpVisibility"`
	VisibilityThreshold int    `json:"rsvpVisibilityThreshold"`
}

// CreateEvent handles event creation by an authenticated host.
// This handler should be wrapped by AuthMiddleware.
func CreateEvent(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser, err := GetCurrentUser(r, db)
		if err != nil {
			RespondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var req createEventRequest
		if err := DecodeJSON(r, &req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			RespondError(w, http.StatusBadRequest, "title is required")
			return
		}

		visibility := req.RSVPVisibility
		if visibility == "" {
			visibility = models.VisibilityPublic
		}
		switch visibility {
		case models.VisibilityPublic, models.VisibilityInvitees, models.VisibilityThreshold:
			// valid
		default:
			RespondError(w, http.StatusBadRequest, "invalid rsvpVisibility value")
			return
		}

		maxGuests := req.MaxGuestsPerRSVP
		if maxGuests <= 0 {
			maxGuests = 1
		}

		event := &models.Event{
			HostID:              currentUser.ID,
			Slug:                makeSlug(req.Title),
			Title:               req.Title,
			Description:         req.Description,
			AllowGuestRSVP:      boolOrDefault(req.AllowGuestRSVP, true),
			AllowPlusOne:        boolOrDefault(req.AllowPlusOne, true),
			MaxGuestsPerRSVP:    maxGuests,
			RSVPVisibility:      visibility,
			VisibilityThreshold: req.VisibilityThreshold,
		}

		created, err := database.CreateEvent(db, event)
		if err != nil {
			logrus.WithError(err).Error("failed to create event")
			RespondError(w, http.StatusInternalServerError, "failed to create event")
			return
		}

		RespondJSON(w, http.StatusCreated, created)
	}
}

// ListMyEvents returns the events hosted by the current user.
// This handler should be wrapped by AuthMiddleware.
func ListMyEvents(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser, err := GetCurrentUser(r, db)
		if err != nil {
			RespondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		events, err := database.GetEventsByHost(db, currentUser.ID)
		if err != nil {
			logrus.WithError(err).Error("failed to list events")
			RespondError(w, http.StatusInternalServerError, "failed to list events")
			return
		}
		if events == nil {
			events = make([]*models.Event, 0)
		}

		RespondJSON(w, http.StatusOK, events)
	}
}

// GetEvent returns an event together with its aggregate counts.
func GetEvent(db *sql.DB, reconciler *rsvp.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, ok := eventFromPath(w, r, db)
		if !ok {
			return
		}

		counts, err := reconciler.AggregateCounts(event.ID)
		if err != nil {
			logrus.WithError(err).Error("failed to count responses")
			RespondError(w, http.StatusInternalServerError, "failed to load event")
			return
		}

		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"event":  event,
			"counts": counts,
		})
	}
}

// eventFromPath resolves the event referenced by a /events/{idOrSlug}[/...]
// path, writing the error response itself when the event cannot be found.
func eventFromPath(w http.ResponseWriter, r *http.Request, db *sql.DB) (*models.Event, bool) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/events/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		RespondError(w, http.StatusBadRequest, "event ID missing in URL path")
		return nil, false
	}

	ref := parts[0]
	var event *models.Event
	var err error
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		event, err = database.GetEventByID(db, id)
	} else {
		event, err = database.GetEventBySlug(db, ref)
	}

	if err != nil {
		if err == sql.ErrNoRows {
			RespondError(w, http.StatusNotFound, "event not found")
		} else {
			logrus.WithError(err).Error("failed to load event")
			RespondError(w, http.StatusInternalServerError, "failed to load event")
		}
		return nil, false
	}
	return event, true
}

// makeSlug builds a URL slug from the event title plus a short random suffix
// so that equal titles never collide.
func makeSlug(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "event"
	}
	return slug + "-" + uuid.NewString()[:8]
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
