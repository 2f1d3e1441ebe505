package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/config"
	"github.com/mgallo/pulse-survey/database"
	"github.com/mgallo/pulse-survey/httpx"
	"github.com/mgallo/pulse-survey/model"
)

// newTestApp spins up a fully wired router over a fresh sqlite database.
func newTestApp(t *testing.T) (app.App, http.Handler) {
	t.Helper()

	cfg := config.Config{
		Addr:        "localhost:0",
		DBUrl:       filepath.Join(t.TempDir(), "test.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
	}

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	a := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}
	return a, Wire(a)
}

func createTestUser(t *testing.T, a app.App, username, password string) {
	t.Helper()
	err := database.SeedUser(a.DB, username+":"+password)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

// login obtains a bearer token through the real login endpoint.
func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/login", nil)
	req.SetBasicAuth(username, password)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: status %d: %s", username, rec.Code, rec.Body)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("login as %s: parse response: %v", username, err)
	}
	if body.AccessToken == "" {
		t.Fatalf("login as %s: empty access token", username)
	}
	return body.AccessToken
}

// do runs a request through the router, attaching an optional bearer token
// and JSON body.
func do(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("parse response %q: %v", rec.Body, err)
	}
	return v
}

func newSurveyPayload() model.Survey {
	return model.Survey{
		Title:       "Customer Satisfaction Survey",
		Description: "Help us improve our services",
		Status:      model.StatusActive,
		Questions: []model.Question{
			{
				Type:     model.TypeMultipleChoice,
				Question: "How satisfied are you with our service?",
				Required: true,
				Order:    1,
				Options: []model.QuestionOption{
					{Text: "Very satisfied", Order: 1},
					{Text: "Neutral", Order: 2},
					{Text: "Dissatisfied", Order: 3},
				},
			},
			{
				Type:     model.TypeRating,
				Question: "How likely are you to recommend us?",
				Order:    2,
			},
			{
				Type:     model.TypeText,
				Question: "What should we improve?",
				Order:    3,
			},
		},
	}
}

// createSurvey pushes a survey through the API and returns its id.
func createSurvey(t *testing.T, handler http.Handler, token string, survey model.Survey) int {
	t.Helper()

	rec := do(t, handler, "POST", "/api/surveys", token, survey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create survey: status %d: %s", rec.Code, rec.Body)
	}
	created := decode[struct {
		ID int `json:"id"`
	}](t, rec)
	if created.ID == 0 {
		t.Fatal("create survey: no id returned")
	}
	return created.ID
}

func getSurvey(t *testing.T, handler http.Handler, token string, id int) model.Survey {
	t.Helper()

	rec := do(t, handler, "GET", fmt.Sprintf("/api/surveys/%d", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get survey %d: status %d: %s", id, rec.Code, rec.Body)
	}
	return decode[model.Survey](t, rec)
}
