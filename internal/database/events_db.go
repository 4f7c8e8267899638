package database

import (
	"database/sql"

	"github.com/yupnope/app/internal/models"
)

// CreateEvent inserts a new event and returns it with DB-populated fields.
func CreateEvent(db *sql.DB, event *models.Event) (*models.Event, error) {
	stmt, err := db.Prepare(`
		INSERT INTO events (host_id, slug, title, description, allow_guest_rsvp, allow_plus_one,
			max_guests_per_rsvp, rsvp_visibility, rsvp_visibility_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(event.HostID, event.Slug, event.Title, event.Description,
		event.AllowGuestRSVP, event.AllowPlusOne, event.MaxGuestsPerRSVP,
		event.RSVPVisibility, event.VisibilityThreshold)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	// Retrieve the event to get all fields populated, including DB defaults like created_at.
	return GetEventByID(db, id)
}

const eventColumns = `id, host_id, slug, title, description, allow_guest_rsvp, allow_plus_one,
	max_guests_per_rsvp, rsvp_visibility, rsvp_visibility_threshold, created_at`

// GetEventByID retrieves an event by its ID.
func GetEventByID(db *sql.DB, id int64) (*models.Event, error) {
	row := db.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	return scanEvent(row)
}

// GetEventBySlug retrieves an event by its slug.
func GetEventBySlug(db *sql.DB, slug string) (*models.Event, error) {
	row := db.QueryRow("SELECT "+eventColumns+" FROM events WHERE slug = ?", slug)
	return scanEvent(row)
}

// GetEventsByHost retrieves all events created by the given host, newest first.
func GetEventsByHost(db *sql.DB, hostID int64) ([]*models.Event, error) {
	rows, err := db.Query("SELECT "+eventColumns+" FROM events WHERE host_id = ? ORDER BY created_at DESC", hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(&event.ID, &event.HostID, &event.Slug, &event.Title, &event.Description,
		&event.AllowGuestRSVP, &event.AllowPlusOne, &event.MaxGuestsPerRSVP,
		&event.RSVPVisibility, &event.VisibilityThreshold, &event.CreatedAt)
	if err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}
	return event, nil
}
