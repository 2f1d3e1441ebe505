package routes

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/oauth"
	"github.com/go-chi/render"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/httpx"
	"github.com/mgallo/pulse-survey/log"
	"github.com/mgallo/pulse-survey/model"
)

// bearerAuthenticated probes the request's bearer token against the token
// middleware, without writing anything to the client. Submission is an open
// route, but the gating policy distinguishes authenticated callers.
func bearerAuthenticated(app app.App, r *http.Request) bool {
	if r.Header.Get("authorization") == "" {
		return false
	}

	authenticated := false
	probe := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		authenticated = true
	})
	buf := httpx.NewResponseBuffer()
	oauth.Authorize(app.TokenSecret, nil)(probe).ServeHTTP(buf, r)
	return authenticated
}

func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := model.Response{}
		err := render.DecodeJSON(r.Body, &response)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		errs := map[string]string{}
		if response.SurveyID == 0 {
			errs["survey"] = "survey is required"
		}
		if len(response.Answers) == 0 {
			errs["answers"] = "at least one answer is required"
		}
		if len(errs) > 0 {
			httpx.LogValidation(w, r, "submit_response.validate", errs)
			return
		}

		var status string
		var link sql.NullString
		err = app.QueryRowContext(r.Context(), `
			SELECT status, public_link
			FROM survey
			WHERE id = ?`,
			response.SurveyID,
		).Scan(&status, &link)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "submit_response", response.SurveyID)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}

		// strict gate: active surveys only, and anonymous submissions only
		// through a public link
		if status != model.StatusActive {
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel,
				"submit_response.inactive", "this survey is not active")
			return
		}
		if !link.Valid && !bearerAuthenticated(app, r) {
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel,
				"submit_response.anonymous", "this survey requires authentication")
			return
		}

		// all answers must reference the survey's own questions, checked
		// before the first write
		rows, err := app.QueryContext(r.Context(), `
			SELECT id FROM question
			WHERE survey_id = ?`,
			response.SurveyID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_questions", err)
			return
		}
		defer rows.Close()

		questionIds := map[int]bool{}
		for rows.Next() {
			var id int
			if err = rows.Scan(&id); err != nil {
				httpx.LogInternalError(w, "db.get_questions.scan", err)
				return
			}
			questionIds[id] = true
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.get_questions.rows", err)
			return
		}

		for i, a := range response.Answers {
			if !questionIds[a.QuestionID] {
				errs[fmt.Sprintf("answers[%d].question", i)] = "question does not belong to survey"
			}
		}
		if len(errs) > 0 {
			httpx.LogValidation(w, r, "submit_response.questions", errs)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var responseId int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO response (survey_id, respondent_email, respondent_name, department)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			response.SurveyID,
			nullArg(response.RespondentEmail),
			nullArg(response.RespondentName),
			nullArg(response.Department),
		).Scan(&responseId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO answer (response_id, question_id, answer_text)
			VALUES (?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response.answers.prepare", err)
			return
		}
		defer stmt.Close()

		for _, a := range response.Answers {
			_, err = stmt.ExecContext(r.Context(), responseId, a.QuestionID, a.AnswerText)
			if err != nil {
				httpx.LogInternalError(w, "db.insert_response.answers.insert", err)
				return
			}
		}

		// completed flips only once every answer is in, within the same tx
		_, err = tx.ExecContext(r.Context(), `
			UPDATE response
			SET completed = 1
			WHERE id = ?`,
			responseId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response.complete", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": responseId,
		})
	}
}

func GetSurveyResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "get_responses", surveyId)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT
				rs.id, rs.respondent_email, rs.respondent_name, rs.department,
				rs.completed, rs.created_at,
				a.id, a.question_id, a.answer_text
			FROM response rs
			LEFT OUTER JOIN answer a ON (a.response_id = rs.id)
			WHERE rs.survey_id = ?
			ORDER BY rs.id, a.id`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}
		defer rows.Close()

		responses := []model.Response{}
		for rows.Next() {
			rsp := model.Response{SurveyID: surveyId}
			var email, name, department sql.NullString
			var answerId, questionId sql.NullInt64
			var answerText sql.NullString

			err = rows.Scan(
				&rsp.ID, &email, &name, &department,
				&rsp.Completed, &rsp.CreatedAt,
				&answerId, &questionId, &answerText,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.get_responses.scan", err)
				return
			}
			rsp.RespondentEmail = nullable(email)
			rsp.RespondentName = nullable(name)
			rsp.Department = nullable(department)
			rsp.Answers = []model.Answer{}

			lastIdx := len(responses) - 1
			if lastIdx < 0 || responses[lastIdx].ID != rsp.ID {
				responses = append(responses, rsp)
				lastIdx++
			}
			if answerId.Valid {
				responses[lastIdx].Answers = append(responses[lastIdx].Answers, model.Answer{
					ID:         int(answerId.Int64),
					QuestionID: int(questionId.Int64),
					AnswerText: answerText.String,
				})
			}
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.get_responses.rows", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}
