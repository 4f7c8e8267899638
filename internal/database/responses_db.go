package database

import (
	"database/sql"

	"github.com/yupnope/app/internal/models"
)

// UpsertResponse inserts a new response or overwrites the existing one for the
// same (event_id, actor_key). The whole operation is a single statement, so the
// unique index resolves concurrent submissions for the same actor: one inserts,
// the rest update. On update the row keeps its id and created_at.
func UpsertResponse(db *sql.DB, response *models.Response) (*models.Response, error) {
	stmt, err := db.Prepare(`
		INSERT INTO responses (event_id, actor_key, user_id, is_guest, guest_name, guest_email,
			guest_phone, response_type, guest_count, comments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(event_id, actor_key) DO UPDATE SET
			response_type = excluded.response_type,
			guest_count = excluded.guest_count,
			comments = excluded.comments,
			guest_name = excluded.guest_name,
			guest_phone = excluded.guest_phone,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var userID interface{}
	if !response.IsGuest {
		userID = response.UserID
	}

	_, err = stmt.Exec(response.EventID, response.ActorKey, userID, response.IsGuest,
		response.GuestName, response.GuestEmail, response.GuestPhone,
		response.ResponseType, response.GuestCount, response.Comments)
	if err != nil {
		return nil, err
	}

	// LastInsertId is meaningless on the update path, so read the row back by key.
	return GetResponseByActorKey(db, response.EventID, response.ActorKey)
}

const responseColumns = `r.id, r.event_id, r.actor_key, r.user_id, r.is_guest, r.guest_name,
	r.guest_email, r.guest_phone, r.response_type, r.guest_count, r.comments,
	r.created_at, r.updated_at, u.email`

// GetResponseByActorKey retrieves one actor's response for an event.
// Returns sql.ErrNoRows if the actor has not responded.
func GetResponseByActorKey(db *sql.DB, eventID int64, actorKey string) (*models.Response, error) {
	row := db.QueryRow(`
		SELECT `+responseColumns+`
		FROM responses r
		LEFT JOIN users u ON r.user_id = u.id
		WHERE r.event_id = ? AND r.actor_key = ?
	`, eventID, actorKey)
	return scanResponse(row)
}

// GetResponsesForEvent retrieves all responses for an event, most recently
// updated first. The unique index guarantees one row per actor.
func GetResponsesForEvent(db *sql.DB, eventID int64) ([]*models.Response, error) {
	rows, err := db.Query(`
		SELECT `+responseColumns+`
		FROM responses r
		LEFT JOIN users u ON r.user_id = u.id
		WHERE r.event_id = ?
		ORDER BY r.updated_at DESC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []*models.Response
	for rows.Next() {
		response, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// CountResponsesByType groups an event's responses by type and counts them.
// Each row counts a distinct actor because of the (event_id, actor_key) index.
func CountResponsesByType(db *sql.DB, eventID int64) (models.AggregateCounts, error) {
	var counts models.AggregateCounts

	rows, err := db.Query(`
		SELECT response_type, COUNT(*)
		FROM responses
		WHERE event_id = ?
		GROUP BY response_type
	`, eventID)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var responseType string
		var n int
		if err := rows.Scan(&responseType, &n); err != nil {
			return counts, err
		}
		switch responseType {
		case models.ResponseYup:
			counts.YupCount = n
		case models.ResponseNope:
			counts.NopeCount = n
		case models.ResponseMaybe:
			counts.MaybeCount = n
		}
	}

	return counts, rows.Err()
}

func scanResponse(row rowScanner) (*models.Response, error) {
	response := &models.Response{}
	var userID sql.NullInt64
	var userEmail sql.NullString
	err := row.Scan(&response.ID, &response.EventID, &response.ActorKey, &userID,
		&response.IsGuest, &response.GuestName, &response.GuestEmail, &response.GuestPhone,
		&response.ResponseType, &response.GuestCount, &response.Comments,
		&response.CreatedAt, &response.UpdatedAt, &userEmail)
	if err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}
	response.UserID = userID.Int64
	response.UserEmail = userEmail.String
	return response, nil
}
