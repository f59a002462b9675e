package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"devsecops_api/internal/models"
	"devsecops_api/internal/service"
)

func TestActivityHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	activity := &mockActivity{events: []models.Event{
		{EventID: "e1", UserID: 99, OccurredAt: now, Type: models.EventRegister, Description: "Account created"},
		{EventID: "e2", UserID: 99, OccurredAt: now.Add(time.Second), Type: models.EventLogin, Description: "Login successful"},
	}}
	s := &service.Service{
		Authorization: &mockAuth{parseID: 99},
		Activity:      activity,
	}
	r := newTestRouter(s)

	// invalid 'from' → 400
	w := doJSON(r, http.MethodGet, "/api/activity?from=notatime", "", authHeader("valid"))
	if w.Code != http.StatusBadRequest || decodeBody(t, w)["error"] != errFromInvalid {
		t.Fatalf("expected 400 invalid 'from', got %d %s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodGet, "/api/activity?to=31-12-2025", "", authHeader("valid"))
	if w.Code != http.StatusBadRequest || decodeBody(t, w)["error"] != errToInvalid {
		t.Fatalf("expected 400 invalid 'to', got %d %s", w.Code, w.Body.String())
	}

	// valid range and type
	q := "/api/activity?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=login"
	w = doJSON(r, http.MethodGet, q, "", authHeader("valid"))
	if w.Code != http.StatusOK {
		t.Fatalf("activity status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int `json:"count"`
		Events []struct {
			EventID string `json:"event_id"`
			UserID  *int64 `json:"user_id"`
		} `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 || out.Events[0].EventID != "e1" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if out.Events[0].UserID != nil {
		t.Fatal("user id must not be serialized on events")
	}
	if activity.lastUserID != 99 || activity.lastFilter.Type != "login" || !activity.lastFilter.From.Equal(now) {
		t.Fatalf("unexpected service call: user=%d filter=%+v", activity.lastUserID, activity.lastFilter)
	}
}

func TestActivityHandler_DateOnlyToCoversWholeDay(t *testing.T) {
	activity := &mockActivity{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Activity: activity})

	w := doJSON(r, http.MethodGet, "/api/activity?from=2025-08-01&to=2025-08-31", "", authHeader("valid"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Body.String() != `{"count":0,"events":[]}` {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	wantFrom := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 8, 31, 23, 59, 59, 999999999, time.UTC)
	if !activity.lastFilter.From.Equal(wantFrom) || !activity.lastFilter.To.Equal(wantTo) {
		t.Fatalf("unexpected bounds: from=%v to=%v", activity.lastFilter.From, activity.lastFilter.To)
	}
}

func TestActivityHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"validation", &service.ValidationError{Reason: "'from' must be <= 'to'"}, http.StatusBadRequest, "'from' must be <= 'to'"},
		{"store", errors.New("db down"), http.StatusInternalServerError, "Failed to fetch activity"},
	}
	for _, tt := range tests {
		tt := tt // capture
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{
				Authorization: &mockAuth{parseID: 1},
				Activity:      &mockActivity{listErr: tt.err},
			})
			w := doJSON(r, http.MethodGet, "/api/activity", "", authHeader("valid"))
			if w.Code != tt.wantCode || decodeBody(t, w)["error"] != tt.wantErr {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestActivityRecordedOnAccountChanges(t *testing.T) {
	activity := &mockActivity{}
	s := &service.Service{
		Authorization: &mockAuth{
			registerID: 5,
			parseID:    5,
			loginRes:   service.LoginResult{AccessToken: "t", User: models.PublicUser{ID: 5}},
		},
		Profile:  &mockProfile{user: models.User{ID: 5, Username: "bob"}},
		Activity: activity,
	}
	r := newTestRouter(s)

	hdr := http.Header{"User-Agent": {"curl/8.0"}}
	if w := doJSON(r, http.MethodPost, "/auth/register", `{"email":"a@b.com","password":"Abc12345!"}`, hdr); w.Code != http.StatusCreated {
		t.Fatalf("register status=%d", w.Code)
	}
	if w := doJSON(r, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"Abc12345!"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("login status=%d", w.Code)
	}
	if w := doJSON(r, http.MethodPut, "/api/profile", `{}`, authHeader("t")); w.Code != http.StatusOK {
		t.Fatalf("noop update status=%d", w.Code)
	}
	if w := doJSON(r, http.MethodPut, "/api/profile", `{"username":"bobby"}`, authHeader("t")); w.Code != http.StatusOK {
		t.Fatalf("update status=%d", w.Code)
	}

	want := []string{models.EventRegister, models.EventLogin, models.EventProfileUpdate}
	if len(activity.recorded) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), activity.recorded)
	}
	for i, typ := range want {
		if activity.recorded[i].typ != typ || activity.recorded[i].userID != 5 {
			t.Fatalf("event %d: got %+v, want %s for user 5", i, activity.recorded[i], typ)
		}
	}
	if activity.recorded[0].meta["user_agent"] != "curl/8.0" || activity.recorded[0].meta["ip"] == "" {
		t.Fatalf("unexpected metadata: %v", activity.recorded[0].meta)
	}
}

func TestActivityRecordFailureDoesNotFailRequest(t *testing.T) {
	r := newTestRouter(&service.Service{
		Authorization: &mockAuth{registerID: 1},
		Activity:      &mockActivity{recordErr: errors.New("disk full")},
	})
	w := doJSON(r, http.MethodPost, "/auth/register", `{"email":"a@b.com","password":"Abc12345!"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}
