package routes

import (
	"fmt"
	"math"
	"net/http"
	"testing"

	"github.com/mgallo/pulse-survey/model"
)

func submitAnswers(t *testing.T, handler http.Handler, surveyId int, answers []model.Answer) {
	t.Helper()
	rec := do(t, handler, "POST", "/api/responses", "", model.Response{
		SurveyID: surveyId,
		Answers:  answers,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", rec.Code, rec.Body)
	}
}

func TestResultsEmptySurvey(t *testing.T) {
	a, handler := newTestApp(t)
	createTestUser(t, a, "demo@example.com", "demo1234")
	token := login(t, handler, "demo@example.com", "demo1234")

	id := createSurvey(t, handler, token, newSurveyPayload())

	rec := do(t, handler, "GET", fmt.Sprintf("/api/surveys/%d/results", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	results := decode[model.SurveyResults](t, rec)
	if results.TotalResponses != 0 {
		t.Errorf("expected 0 total responses, got %d", results.TotalResponses)
	}
	if len(results.Questions) != 3 {
		t.Fatalf("expected 3 question summaries, got %d", len(results.Questions))
	}
	for _, q := range results.Questions {
		if q.Type == model.TypeRating && q.AverageRating != nil {
			t.Errorf("expected no average for unanswered rating question, got %f", *q.AverageRating)
		}
	}
}

func TestResultsAggregation(t *testing.T) {
	a, handler := newTestApp(t)
	createTestUser(t, a, "demo@example.com", "demo1234")
	token := login(t, handler, "demo@example.com", "demo1234")

	id := createSurvey(t, handler, token, newSurveyPayload())
	generatePublicLink(t, handler, token, id)
	survey := getSurvey(t, handler, token, id)
	choice, rating, text := survey.Questions[0], survey.Questions[1], survey.Questions[2]

	submitAnswers(t, handler, id, []model.Answer{
		{QuestionID: choice.ID, AnswerText: "Very satisfied"},
		{QuestionID: rating.ID, AnswerText: "3"},
		{QuestionID: text.ID, AnswerText: "faster support"},
	})
	submitAnswers(t, handler, id, []model.Answer{
		{QuestionID: choice.ID, AnswerText: "Very satisfied"},
		{QuestionID: rating.ID, AnswerText: "7"},
	})
	submitAnswers(t, handler, id, []model.Answer{
		{QuestionID: choice.ID, AnswerText: "Neutral"},
		{QuestionID: rating.ID, AnswerText: "x"},
	})
	submitAnswers(t, handler, id, []model.Answer{
		{QuestionID: rating.ID, AnswerText: "9"},
	})

	// an incomplete response shell must not count
	if _, err := a.Exec(
		"INSERT INTO response (survey_id, respondent_email) VALUES (?, ?)",
		id, "pending@example.com",
	); err != nil {
		t.Fatal(err)
	}

	rec := do(t, handler, "GET", fmt.Sprintf("/api/surveys/%d/results", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	results := decode[model.SurveyResults](t, rec)

	if results.TotalResponses != 4 {
		t.Errorf("expected 4 completed responses, got %d", results.TotalResponses)
	}

	// summaries come back in question order
	if len(results.Questions) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(results.Questions))
	}
	choiceRes, ratingRes, textRes := results.Questions[0], results.Questions[1], results.Questions[2]

	if len(choiceRes.Choices) != 2 {
		t.Fatalf("expected 2 picked options, got %+v", choiceRes.Choices)
	}
	if choiceRes.Choices[0].Option != "Very satisfied" || choiceRes.Choices[0].Count != 2 {
		t.Errorf("expected (Very satisfied,2), got %+v", choiceRes.Choices[0])
	}
	if choiceRes.Choices[1].Option != "Neutral" || choiceRes.Choices[1].Count != 1 {
		t.Errorf("expected (Neutral,1), got %+v", choiceRes.Choices[1])
	}

	if ratingRes.AverageRating == nil {
		t.Fatal("expected an average rating")
	}
	want := (3.0 + 7.0 + 9.0) / 3.0
	if math.Abs(*ratingRes.AverageRating-want) > 1e-9 {
		t.Errorf("expected average %f, got %f", want, *ratingRes.AverageRating)
	}
	if len(ratingRes.Distribution) != 10 {
		t.Fatalf("expected 10 buckets, got %d", len(ratingRes.Distribution))
	}

	if len(textRes.Texts) != 1 || textRes.Texts[0] != "faster support" {
		t.Errorf("unexpected text answers: %v", textRes.Texts)
	}
}
