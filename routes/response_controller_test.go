package routes

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/mgallo/pulse-survey/model"
)

func str(s string) *string { return &s }

func TestSubmitResponseThroughPublicLink(t *testing.T) {
	a, handler := newTestApp(t)
	createTestUser(t, a, "demo@example.com", "demo1234")
	token := login(t, handler, "demo@example.com", "demo1234")

	id := createSurvey(t, handler, token, newSurveyPayload())
	generatePublicLink(t, handler, token, id)
	survey := getSurvey(t, handler, token, id)

	rec := do(t, handler, "POST", "/api/responses", "", model.Response{
		SurveyID:        id,
		RespondentEmail: str("alice@example.com"),
		Answers: []model.Answer{
			{QuestionID: survey.Questions[0].ID, AnswerText: "Very satisfied"},
			{QuestionID: survey.Questions[1].ID, AnswerText: "9"},
			{QuestionID: survey.Questions[2].ID, AnswerText: "nothing"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	responses := decode[struct {
		Responses []model.Response `json:"responses"`
	}](t, do(t, handler, "GET", fmt.Sprintf("/api/surveys/%d/responses", id), token, nil))
	if len(responses.Responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses.Responses))
	}

	got := responses.Responses[0]
	if !got.Completed {
		t.Error("expected the response to be completed")
	}
	if len(got.Answers) != 3 {
		t.Errorf("expected 3 answers, got %d", len(got.Answers))
	}
	if got.RespondentEmail == nil || *got.RespondentEmail != "alice@example.com" {
		t.Errorf("unexpected respondent email: %v", got.RespondentEmail)
	}
}

func TestSubmitResponseAuthenticatedWithoutLink(t *testing.T) {
	a, handler := newTestApp(t)
	createTestUser(t, a, "demo@example.com", "demo1234")
	token := login(t, handler, "demo@example.com", "demo1234")

	id := createSurvey(t, handler, token, newSurveyPayload())
	survey := getSurvey(t, handler, token, id)

	// no public link, but the caller holds a valid token
	rec := do(t, handler, "POST", "/api/responses", token, model.Response{
		SurveyID: id,
		Answers: []model.Answer{
			{QuestionID: survey.Questions[0].ID, AnswerText: "Neutral"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
}

func TestSubmitResponseRejections(t *testing.T) {
	a, handler := newTestApp(t)
	createTestUser(t, a, "demo@example.com", "demo1234")
	token := login(t, handler, "demo@example.com", "demo1234")

	draft := newSurveyPayload()
	draft.Status = model.StatusDraft
	draftId := createSurvey(t, handler, token, draft)
	draftSurvey := getSurvey(t, handler, token, draftId)
	generatePublicLink(t, handler, token, draftId)

	activeId := createSurvey(t, handler, token, newSurveyPayload())
	activeSurvey := getSurvey(t, handler, token, activeId)

	cases := []struct {
		name       string
		body       model.Response
		token      string
		wantStatus int
	}{
		{
			name: "draft survey",
			body: model.Response{
				SurveyID: draftId,
				Answers:  []model.Answer{{QuestionID: draftSurvey.Questions[0].ID, AnswerText: "Neutral"}},
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "anonymous without public link",
			body: model.Response{
				SurveyID: activeId,
				Answers:  []model.Answer{{QuestionID: activeSurvey.Questions[0].ID, AnswerText: "Neutral"}},
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unknown survey",
			body:       model.Response{SurveyID: 999, Answers: []model.Answer{{QuestionID: 1, AnswerText: "x"}}},
			token:      token,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing answers",
			body:       model.Response{SurveyID: activeId},
			token:      token,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, handler, "POST", "/api/responses", c.token, c.body)
			if rec.Code != c.wantStatus {
				t.Fatalf("expected %d, got %d: %s", c.wantStatus, rec.Code, rec.Body)
			}
		})
	}

	// none of the rejected submissions left a row behind
	var n int
	if err := a.QueryRow("SELECT count(*) FROM response").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no responses after rejections, got %d", n)
	}
}

func TestSubmitResponseIsAtomic(t *testing.T) {
	a, handler := newTestApp(t)
	createTestUser(t, a, "demo@example.com", "demo1234")
	token := login(t, handler, "demo@example.com", "demo1234")

	id := createSurvey(t, handler, token, newSurveyPayload())
	generatePublicLink(t, handler, token, id)
	survey := getSurvey(t, handler, token, id)

	// third answer references a question of another survey: the whole
	// submission must be refused with nothing written
	otherId := createSurvey(t, handler, token, newSurveyPayload())
	other := getSurvey(t, handler, token, otherId)

	rec := do(t, handler, "POST", "/api/responses", "", model.Response{
		SurveyID: id,
		Answers: []model.Answer{
			{QuestionID: survey.Questions[0].ID, AnswerText: "Neutral"},
			{QuestionID: survey.Questions[1].ID, AnswerText: "7"},
			{QuestionID: other.Questions[0].ID, AnswerText: "Neutral"},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
	}
	body := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, rec)
	if body.Errors["answers[2].question"] == "" {
		t.Errorf("expected an error on the third answer, got %v", body.Errors)
	}

	for _, table := range []string{"response", "answer"} {
		var n int
		if err := a.QueryRow("SELECT count(*) FROM " + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("expected empty %s table, got %d rows", table, n)
		}
	}
}
