package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/model"
	"github.com/mgallo/pulse-survey/routes/middlewares"
)

func urlID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// ownedSurvey reports whether the survey exists and belongs to the caller.
// Foreign surveys are indistinguishable from missing ones.
func ownedSurvey(app app.App, r *http.Request, surveyID int) (bool, error) {
	var found bool
	err := app.QueryRowContext(r.Context(), `
		SELECT 1 FROM survey
		WHERE id = ?
			AND creator_id = ?`,
		surveyID,
		middlewares.UserID(r),
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return found, err
}

// fetchQuestions loads a survey's questions with their options, in display
// order.
func fetchQuestions(ctx context.Context, app app.App, surveyID int) ([]model.Question, error) {
	rows, err := app.QueryContext(ctx, `
		SELECT id, type, question, description, required, ord
		FROM question
		WHERE survey_id = ?
		ORDER BY ord, id`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	index := map[int]int{}
	for rows.Next() {
		q := model.Question{}
		err = rows.Scan(&q.ID, &q.Type, &q.Question, &q.Description, &q.Required, &q.Order)
		if err != nil {
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	opts, err := app.QueryContext(ctx, `
		SELECT o.question_id, o.id, o.text, o.ord
		FROM question_option o
		INNER JOIN question q ON (q.id = o.question_id)
		WHERE q.survey_id = ?
		ORDER BY o.ord, o.id`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer opts.Close()

	for opts.Next() {
		var questionID int
		o := model.QuestionOption{}
		err = opts.Scan(&questionID, &o.ID, &o.Text, &o.Order)
		if err != nil {
			return nil, err
		}
		i := index[questionID]
		questions[i].Options = append(questions[i].Options, o)
	}
	return questions, opts.Err()
}

func validateSurvey(survey model.Survey) map[string]string {
	errs := map[string]string{}
	if survey.Title == "" {
		errs["title"] = "title is required"
	}
	if survey.Status != "" && !model.ValidStatus(survey.Status) {
		errs["status"] = "status must be one of draft, active, closed"
	}
	for i, q := range survey.Questions {
		for field, msg := range validateQuestion(q) {
			errs[fmt.Sprintf("questions[%d].%s", i, field)] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateQuestion(q model.Question) map[string]string {
	errs := map[string]string{}
	if !model.ValidQuestionType(q.Type) {
		errs["type"] = "type must be one of multiple_choice, text, rating, yes_no"
	}
	if q.Question == "" {
		errs["question"] = "question text is required"
	}
	for i, o := range q.Options {
		if o.Text == "" {
			errs[fmt.Sprintf("options[%d].text", i)] = "option text is required"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullArg(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
