package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yupnope/app/internal/database"
	"github.com/yupnope/app/internal/rsvp"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// testServer holds a test server and its dependencies.
type testServer struct {
	server     *httptest.Server
	db         *sql.DB
	reconciler *rsvp.Reconciler
}

// setupTestServer initializes an in-memory SQLite database, builds the
// application router the same way cmd/server does, and starts an
// httptest.Server around it.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.InitDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reconciler := rsvp.New(db, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			Register(db)(w, r)
		} else {
			RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed")
		}
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			Login(db)(w, r)
		} else {
			RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed")
		}
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			Logout(w, r)
		} else {
			RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed")
		}
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			AuthMiddleware(CreateEvent(db))(w, r)
		case http.MethodGet:
			AuthMiddleware(ListMyEvents(db))(w, r)
		default:
			RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/events/"), "/")
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			GetEvent(db, reconciler)(w, r)
		case len(parts) == 2 && parts[1] == "rsvp" && r.Method == http.MethodPost:
			SubmitResponse(db, reconciler)(w, r)
		case len(parts) == 2 && parts[1] == "rsvps" && r.Method == http.MethodGet:
			GetRoster(db, reconciler)(w, r)
		case len(parts) == 2 && parts[1] == "counts" && r.Method == http.MethodGet:
			GetCounts(db, reconciler)(w, r)
		default:
			RespondError(w, http.StatusNotFound, "not found")
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{server: server, db: db, reconciler: reconciler}
}

// newClient returns an HTTP client with its own cookie jar, i.e. its own session.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response from %s: %v", url, err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, client *http.Client, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response from %s: %v", url, err)
	}
	return resp, decoded
}

// registerAndLogin creates a user and returns a logged-in client.
func registerAndLogin(t *testing.T, ts *testServer, email string) *http.Client {
	t.Helper()
	client := newClient(t)
	creds := map[string]string{"email": email, "password": "password123"}

	resp, _ := postJSON(t, client, ts.server.URL+"/register", creds)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp, _ = postJSON(t, client, ts.server.URL+"/login", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	return client
}

// createEventVia posts a new event as the given client and returns its ID and slug.
func createEventVia(t *testing.T, ts *testServer, client *http.Client, body map[string]interface{}) (int64, string) {
	t.Helper()
	resp, decoded := postJSON(t, client, ts.server.URL+"/events", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("CreateEvent status = %d, want %d (body: %v)", resp.StatusCode, http.StatusCreated, decoded)
	}
	id, ok := decoded["id"].(float64)
	if !ok {
		t.Fatalf("CreateEvent response missing numeric id: %v", decoded)
	}
	slug, _ := decoded["slug"].(string)
	return int64(id), slug
}

func TestSubmitResponseAsGuest(t *testing.T) {
	ts := setupTestServer(t)
	host := registerAndLogin(t, ts, "host-guestflow@example.com")
	eventID, _ := createEventVia(t, ts, host, map[string]interface{}{
		"title":            "Garden Party",
		"maxGuestsPerRsvp": 2,
	})

	anon := newClient(t)
	rsvpURL := fmt.Sprintf("%s/events/%d/rsvp", ts.server.URL, eventID)

	t.Run("First Guest Submission", func(t *testing.T) {
		resp, decoded := postJSON(t, anon, rsvpURL, map[string]interface{}{
			"responseType": "yup",
			"guestCount":   2,
			"guestName":    "Ada",
			"guestEmail":   "a@example.com",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("SubmitResponse status = %d, want %d (body: %v)", resp.StatusCode, http.StatusOK, decoded)
		}
		counts := decoded["counts"].(map[string]interface{})
		if counts["yupCount"].(float64) != 1 {
			t.Errorf("yupCount got = %v, want 1", counts["yupCount"])
		}
	})

	t.Run("Resubmission Overwrites", func(t *testing.T) {
		resp, decoded := postJSON(t, anon, rsvpURL, map[string]interface{}{
			"responseType": "nope",
			"guestName":    "Ada",
			"guestEmail":   "A@Example.com ", // same guest, different formatting
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("SubmitResponse status = %d, want %d (body: %v)", resp.StatusCode, http.StatusOK, decoded)
		}
		counts := decoded["counts"].(map[string]interface{})
		if counts["yupCount"].(float64) != 0 || counts["nopeCount"].(float64) != 1 {
			t.Errorf("Counts after overwrite got = %v, want yup 0 nope 1", counts)
		}
	})

	t.Run("Missing Guest Fields", func(t *testing.T) {
		resp, decoded := postJSON(t, anon, rsvpURL, map[string]interface{}{
			"responseType": "yup",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("SubmitResponse without guest fields status = %d, want %d (body: %v)",
				resp.StatusCode, http.StatusBadRequest, decoded)
		}
	})

	t.Run("Over Guest Limit", func(t *testing.T) {
		resp, decoded := postJSON(t, anon, rsvpURL, map[string]interface{}{
			"responseType": "yup",
			"guestCount":   3,
			"guestName":    "Bea",
			"guestEmail":   "b@example.com",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("Over-limit status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		if msg, _ := decoded["error"].(string); !strings.Contains(msg, "2") {
			t.Errorf("Error message %q does not contain the limit 2", msg)
		}
	})
}

func TestSubmitResponseAsUser(t *testing.T) {
	ts := setupTestServer(t)
	host := registerAndLogin(t, ts, "host-userflow@example.com")
	_, slug := createEventVia(t, ts, host, map[string]interface{}{
		"title": "Board Games Night",
	})

	member := registerAndLogin(t, ts, "member@example.com")

	// The slug works in place of the numeric ID.
	resp, decoded := postJSON(t, member, ts.server.URL+"/events/"+slug+"/rsvp", map[string]interface{}{
		"responseType": "maybe",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("SubmitResponse status = %d, want %d (body: %v)", resp.StatusCode, http.StatusOK, decoded)
	}

	response := decoded["response"].(map[string]interface{})
	if response["isGuest"].(bool) {
		t.Errorf("Authenticated submission stored as guest")
	}
	counts := decoded["counts"].(map[string]interface{})
	if counts["maybeCount"].(float64) != 1 {
		t.Errorf("maybeCount got = %v, want 1", counts["maybeCount"])
	}
}

func TestGuestRSVPDisabled(t *testing.T) {
	ts := setupTestServer(t)
	host := registerAndLogin(t, ts, "host-noguests@example.com")
	eventID, _ := createEventVia(t, ts, host, map[string]interface{}{
		"title":          "Members Only",
		"allowGuestRsvp": false,
	})

	anon := newClient(t)
	resp, decoded := postJSON(t, anon, fmt.Sprintf("%s/events/%d/rsvp", ts.server.URL, eventID), map[string]interface{}{
		"responseType": "yup",
		"guestName":    "Ada",
		"guestEmail":   "a@example.com",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Guest submission status = %d, want %d (body: %v)", resp.StatusCode, http.StatusBadRequest, decoded)
	}

	// The logged-in host can still respond.
	resp, _ = postJSON(t, host, fmt.Sprintf("%s/events/%d/rsvp", ts.server.URL, eventID), map[string]interface{}{
		"responseType": "yup",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Authenticated submission status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestRosterVisibilityOverHTTP(t *testing.T) {
	ts := setupTestServer(t)
	host := registerAndLogin(t, ts, "host-roster@example.com")
	eventID, _ := createEventVia(t, ts, host, map[string]interface{}{
		"title":                   "Secret Until Five",
		"rsvpVisibility":          "threshold",
		"rsvpVisibilityThreshold": 5,
	})

	rosterURL := fmt.Sprintf("%s/events/%d/rsvps", ts.server.URL, eventID)
	anon := newClient(t)

	t.Run("Hidden Below Threshold", func(t *testing.T) {
		resp, _ := getJSON(t, anon, rosterURL)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Roster status for anonymous viewer = %d, want %d", resp.StatusCode, http.StatusForbidden)
		}
	})

	t.Run("Visible to Host", func(t *testing.T) {
		resp, decoded := getJSON(t, host, rosterURL)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Roster status for host = %d, want %d (body: %v)", resp.StatusCode, http.StatusOK, decoded)
		}
		if _, ok := decoded["responses"]; !ok {
			t.Errorf("Roster response missing responses list: %v", decoded)
		}
	})

	t.Run("Visible Once Threshold Reached", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			resp, _ := postJSON(t, anon, fmt.Sprintf("%s/events/%d/rsvp", ts.server.URL, eventID), map[string]interface{}{
				"responseType": "yup",
				"guestName":    fmt.Sprintf("Guest %d", i),
				"guestEmail":   fmt.Sprintf("g%d@example.com", i),
			})
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Seed submission %d status = %d, want %d", i, resp.StatusCode, http.StatusOK)
			}
		}

		resp, decoded := getJSON(t, anon, rosterURL)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Roster status after threshold = %d, want %d (body: %v)", resp.StatusCode, http.StatusOK, decoded)
		}
		counts := decoded["counts"].(map[string]interface{})
		if counts["yupCount"].(float64) != 5 {
			t.Errorf("yupCount got = %v, want 5", counts["yupCount"])
		}
	})
}

func TestGetEventAndCounts(t *testing.T) {
	ts := setupTestServer(t)
	host := registerAndLogin(t, ts, "host-details@example.com")
	eventID, slug := createEventVia(t, ts, host, map[string]interface{}{
		"title": "Housewarming",
	})

	anon := newClient(t)

	resp, decoded := getJSON(t, anon, ts.server.URL+"/events/"+slug)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetEvent status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	event := decoded["event"].(map[string]interface{})
	if int64(event["id"].(float64)) != eventID {
		t.Errorf("GetEvent id got = %v, want %d", event["id"], eventID)
	}

	resp, counts := getJSON(t, anon, fmt.Sprintf("%s/events/%d/counts", ts.server.URL, eventID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetCounts status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	for _, key := range []string{"yupCount", "nopeCount", "maybeCount"} {
		if counts[key].(float64) != 0 {
			t.Errorf("%s got = %v, want 0", key, counts[key])
		}
	}

	t.Run("Unknown Event", func(t *testing.T) {
		resp, _ := getJSON(t, anon, ts.server.URL+"/events/999999")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GetEvent for unknown ID status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}

func TestCreateEventRequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	anon := newClient(t)

	resp, _ := postJSON(t, anon, ts.server.URL+"/events", map[string]interface{}{"title": "Nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("CreateEvent without session status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	host := registerAndLogin(t, ts, "host-auth@example.com")
	_, slug := createEventVia(t, ts, host, map[string]interface{}{"title": "Allowed!"})
	if slug == "" {
		t.Errorf("CreateEvent returned empty slug")
	}

	// The host's event list now contains it.
	resp, err := host.Get(ts.server.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events error = %v", err)
	}
	defer resp.Body.Close()
	var events []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("Failed to decode event list: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Host event list length got = %d, want 1", len(events))
	}
}
