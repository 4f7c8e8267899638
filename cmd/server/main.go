package main

import (
	"database/sql"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yupnope/app/internal/database"
	"github.com/yupnope/app/internal/handlers"
	"github.com/yupnope/app/internal/notify"
	"github.com/yupnope/app/internal/rsvp"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "yupnope.db"
	}

	db, err := database.InitDB(dbPath)
	if err != nil {
		logrus.WithError(err).Fatal("error initializing database")
	}
	defer db.Close()

	// Host notifications: dropped on restart by design, so no persistence.
	scheduler := notify.NewScheduler(notify.LogSender{}, func(hostID int64) (string, error) {
		user, err := database.GetUserByID(db, hostID)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	})
	defer scheduler.Stop()

	reconciler := rsvp.New(db, scheduler)

	mux := http.NewServeMux()

	// Authentication Routes
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handlers.Register(db)(w, r)
		} else {
			handlers.RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed for /register")
		}
	})

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handlers.Login(db)(w, r)
		} else {
			handlers.RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed for /login")
		}
	})

	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handlers.Logout(w, r)
		} else {
			handlers.RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed for /logout")
		}
	})

	// Event Routes
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.AuthMiddleware(handlers.CreateEvent(db))(w, r)
		case http.MethodGet:
			handlers.AuthMiddleware(handlers.ListMyEvents(db))(w, r)
		default:
			handlers.RespondError(w, http.StatusMethodNotAllowed, "only GET and POST are allowed for /events")
		}
	})

	// Catches /events/{idOrSlug} and /events/{idOrSlug}/action
	mux.HandleFunc("/events/", routeDynamicEventPaths(db, reconciler))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logrus.WithField("port", port).Info("server starting")
	if err := http.ListenAndServe(":"+port, handlers.LoggingMiddleware(mux)); err != nil {
		logrus.WithError(err).Fatal("error starting server")
	}
}

func routeDynamicEventPaths(db *sql.DB, reconciler *rsvp.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		parts := strings.Split(strings.TrimPrefix(path, "/events/"), "/")
		// Expected parts:
		// /events/{idOrSlug} -> ["{idOrSlug}"] -> len 1
		// /events/{idOrSlug}/rsvp -> ["{idOrSlug}", "rsvp"] -> len 2
		// /events/{idOrSlug}/rsvps -> ["{idOrSlug}", "rsvps"] -> len 2
		// /events/{idOrSlug}/counts -> ["{idOrSlug}", "counts"] -> len 2

		if len(parts) == 0 || parts[0] == "" {
			handlers.RespondError(w, http.StatusNotFound, "event ID missing or invalid path")
			return
		}

		if len(parts) == 1 { // Path is /events/{idOrSlug}
			if r.Method == http.MethodGet {
				handlers.GetEvent(db, reconciler)(w, r)
			} else {
				handlers.RespondError(w, http.StatusMethodNotAllowed, "only GET is allowed for event details")
			}
			return
		}

		if len(parts) == 2 { // Path is /events/{idOrSlug}/action
			switch parts[1] {
			case "rsvp":
				if r.Method == http.MethodPost {
					handlers.SubmitResponse(db, reconciler)(w, r)
				} else {
					handlers.RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed for RSVP")
				}
			case "rsvps":
				if r.Method == http.MethodGet {
					handlers.GetRoster(db, reconciler)(w, r)
				} else {
					handlers.RespondError(w, http.StatusMethodNotAllowed, "only GET is allowed for the roster")
				}
			case "counts":
				if r.Method == http.MethodGet {
					handlers.GetCounts(db, reconciler)(w, r)
				} else {
					handlers.RespondError(w, http.StatusMethodNotAllowed, "only GET is allowed for counts")
				}
			default:
				handlers.RespondError(w, http.StatusNotFound, "invalid action for event")
			}
			return
		}

		handlers.RespondError(w, http.StatusNotFound, "invalid event path structure")
	}
}
