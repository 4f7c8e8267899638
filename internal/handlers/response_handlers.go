package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yupnope/app/internal/database"
	"github.com/yupnope/app/internal/models"
	"github.com/yupnope/app/internal/rsvp"
)

type submitResponseRequest struct {
	ResponseType string `json:"responseType"`
	GuestCount   int    `json:"guestCount"`
	Comments     string `json:"comments"`
	GuestName    string `json:"guestName"`
	GuestEmail   string `json:"guestEmail"`
	GuestPhone   string `json:"guestPhone"`
}

// SubmitResponse handles an RSVP submission for an event. Authenticated
// requests respond as the session user; anonymous requests must carry the
// guest fields in the body.
func SubmitResponse(db *sql.DB, reconciler *rsvp.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, ok := eventFromPath(w, r, db)
		if !ok {
			return
		}

		var req submitResponseRequest
		if err := DecodeJSON(r, &req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var actor models.Actor
		if currentUser, err := GetCurrentUser(r, db); err == nil {
			actor = models.NewUserActor(currentUser.ID)
		} else {
			actor = models.NewGuestActor(req.GuestName, req.GuestEmail, req.GuestPhone)
		}

		submission := rsvp.Submission{
			ResponseType: req.ResponseType,
			GuestCount:   req.GuestCount,
			Comments:     req.Comments,
		}

		response, counts, err := reconciler.SubmitResponse(event, actor, submission)
		if err != nil {
			respondReconcilerError(w, err)
			return
		}

		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"response": response,
			"counts":   counts,
		})
	}
}

// GetRoster returns the event's responses, subject to the roster visibility
// rules, together with the aggregate counts.
func GetRoster(db *sql.DB, reconciler *rsvp.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, ok := eventFromPath(w, r, db)
		if !ok {
			return
		}

		var viewerID int64
		if currentUser, err := GetCurrentUser(r, db); err == nil {
			viewerID = currentUser.ID
		}

		visible, err := reconciler.IsRosterVisibleTo(event, viewerID)
		if err != nil {
			respondReconcilerError(w, err)
			return
		}
		if !visible {
			RespondError(w, http.StatusForbidden, "the roster is not visible for this event")
			return
		}

		responses, err := database.GetResponsesForEvent(db, event.ID)
		if err != nil {
			logrus.WithError(err).Error("failed to list responses")
			RespondError(w, http.StatusInternalServerError, "failed to load roster")
			return
		}
		if responses == nil {
			responses = make([]*models.Response, 0)
		}

		counts, err := reconciler.AggregateCounts(event.ID)
		if err != nil {
			respondReconcilerError(w, err)
			return
		}

		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"responses": responses,
			"counts":    counts,
		})
	}
}

// GetCounts returns just the aggregate counts for an event.
func GetCounts(db *sql.DB, reconciler *rsvp.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, ok := eventFromPath(w, r, db)
		if !ok {
			return
		}

		counts, err := reconciler.AggregateCounts(event.ID)
		if err != nil {
			respondReconcilerError(w, err)
			return
		}

		RespondJSON(w, http.StatusOK, counts)
	}
}

// respondReconcilerError maps the reconciler error taxonomy onto HTTP status
// codes: validation and policy failures are the caller's fault, storage
// failures are ours.
func respondReconcilerError(w http.ResponseWriter, err error) {
	var validationErr *rsvp.ValidationError
	var policyErr *rsvp.PolicyError
	var storageErr *rsvp.StorageError

	switch {
	case errors.As(err, &validationErr):
		RespondError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.As(err, &policyErr):
		RespondError(w, http.StatusBadRequest, policyErr.Reason)
	case errors.As(err, &storageErr):
		logrus.WithError(err).Error("storage failure")
		RespondError(w, http.StatusInternalServerError, "temporary storage failure, please retry")
	default:
		logrus.WithError(err).Error("unexpected failure")
		RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
