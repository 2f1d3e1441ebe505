package routes

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/httpx"
	"github.com/mgallo/pulse-survey/log"
	"github.com/mgallo/pulse-survey/model"
)

func GetSurveyResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_results.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "get_results", surveyId)
			return
		}

		results := model.SurveyResults{}
		err = app.QueryRowContext(r.Context(), `
			SELECT count(*)
			FROM response
			WHERE survey_id = ?
				AND completed = 1`,
			surveyId,
		).Scan(&results.TotalResponses)
		if err != nil {
			httpx.LogInternalError(w, "db.get_results.count", err)
			return
		}

		questions, err := fetchQuestions(r.Context(), app, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_results.questions", err)
			return
		}

		// answers of completed responses only, in storage order
		rows, err := app.QueryContext(r.Context(), `
			SELECT a.question_id, a.answer_text
			FROM answer a
			INNER JOIN response rs ON (rs.id = a.response_id)
			INNER JOIN question q ON (q.id = a.question_id)
			WHERE q.survey_id = ?
				AND rs.completed = 1
			ORDER BY a.id`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_results.answers", err)
			return
		}
		defer rows.Close()

		answers := map[int][]string{}
		for rows.Next() {
			var questionId int
			var text string
			err = rows.Scan(&questionId, &text)
			if err != nil {
				httpx.LogInternalError(w, "db.get_results.answers.scan", err)
				return
			}
			answers[questionId] = append(answers[questionId], text)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.get_results.answers.rows", err)
			return
		}

		results.Questions = make([]model.QuestionResults, 0, len(questions))
		for _, q := range questions {
			results.Questions = append(results.Questions, model.AggregateQuestion(q, answers[q.ID]))
		}

		render.JSON(w, r, results)
	}
}
