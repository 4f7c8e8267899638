package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/yupnope/app/internal/database"
	"github.com/yupnope/app/internal/models"
)

const sessionCookieName = "session_token"

// sessionStore maps session tokens to user IDs. In-memory only; sessions do
// not survive a restart.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]int64
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]int64)}
}

func (s *sessionStore) create(userID int64) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token
}

func (s *sessionStore) get(token string) (int64, bool) {
	s.mu.Lock()
	userID, ok := s.tokens[token]
	s.mu.Unlock()
	return userID, ok
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Sessions holds all active sessions for the process.
var Sessions = newSessionStore()

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Register handles new user registration.
func Register(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := DecodeJSON(r, &creds); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		creds.Email = strings.TrimSpace(creds.Email)
		if creds.Email == "" || creds.Password == "" {
			RespondError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := database.CreateUser(db, creds.Email, creds.Password)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				RespondError(w, http.StatusConflict, "an account with that email already exists")
				return
			}
			logrus.WithError(err).Error("failed to create user")
			RespondError(w, http.StatusInternalServerError, "failed to create account")
			return
		}

		RespondJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
	}
}

// Login verifies credentials and starts a session.
func Login(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := DecodeJSON(r, &creds); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		user, err := database.GetUserByEmail(db, strings.TrimSpace(creds.Email))
		if err != nil {
			if err == sql.ErrNoRows {
				RespondError(w, http.StatusUnauthorized, "invalid email or password")
				return
			}
			logrus.WithError(err).Error("failed to look up user")
			RespondError(w, http.StatusInternalServerError, "login failed")
			return
		}

		if err := database.VerifyPassword(user.PasswordHash, creds.Password); err != nil {
			RespondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		token := Sessions.create(user.ID)
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Expires:  time.Now().Add(24 * time.Hour),
		})

		RespondJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email})
	}
}

// Logout ends the current session, if any.
func Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		Sessions.delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	RespondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// AuthMiddleware rejects requests without a valid session.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r) {
			RespondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// IsAuthenticated checks if the request carries a valid session cookie.
func IsAuthenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	_, ok := Sessions.get(cookie.Value)
	return ok
}

// GetCurrentUser retrieves the authenticated user for the request, or an
// error if there is no valid session.
func GetCurrentUser(r *http.Request, db *sql.DB) (*models.User, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, fmt.Errorf("no session cookie: %w", err)
	}
	userID, ok := Sessions.get(cookie.Value)
	if !ok {
		return nil, fmt.Errorf("invalid session token")
	}
	return database.GetUserByID(db, userID)
}
