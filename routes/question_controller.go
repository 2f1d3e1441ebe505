package routes

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/httpx"
	"github.com/mgallo/pulse-survey/log"
	"github.com/mgallo/pulse-survey/model"
	"github.com/mgallo/pulse-survey/routes/middlewares"
)

// ownedQuestion resolves a question id to its survey, provided the survey
// belongs to the caller.
func ownedQuestion(app app.App, r *http.Request, questionID int) (surveyID int, found bool, err error) {
	err = app.QueryRowContext(r.Context(), `
		SELECT q.survey_id
		FROM question q
		INNER JOIN survey s ON (s.id = q.survey_id)
		WHERE q.id = ?
			AND s.creator_id = ?`,
		questionID,
		middlewares.UserID(r),
	).Scan(&surveyID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return surveyID, true, nil
}

func ListQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_questions.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "get_questions", surveyId)
			return
		}

		questions, err := fetchQuestions(r.Context(), app, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_questions", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"questions": questions,
		})
	}
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		question := model.Question{}
		err = render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if errs := validateQuestion(question); errs != nil {
			httpx.LogValidation(w, r, "create_question.validate", errs)
			return
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_question.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "create_question", surveyId)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		questionId, err := insertQuestionTx(r.Context(), tx, surveyId, question)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_question", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_question.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": questionId,
		})
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		question := model.Question{}
		err = render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if errs := validateQuestion(question); errs != nil {
			httpx.LogValidation(w, r, "update_question.validate", errs)
			return
		}

		_, found, err := ownedQuestion(app, r, questionId)
		if err != nil {
			httpx.LogInternalError(w, "db.update_question.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "update_question", questionId)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			UPDATE question
			SET
				type = ?,
				question = ?,
				description = ?,
				required = ?,
				ord = ?
			WHERE id = ?`,
			question.Type,
			question.Question,
			question.Description,
			question.Required,
			question.Order,
			questionId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_question", err)
			return
		}

		// replace options wholesale
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM question_option
			WHERE question_id = ?`,
			questionId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_question.delete_options", err)
			return
		}

		for _, o := range question.Options {
			_, err = tx.ExecContext(r.Context(), `
				INSERT INTO question_option (question_id, text, ord)
				VALUES (?, ?, ?)`,
				questionId,
				o.Text,
				o.Order,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.update_question.options", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_question.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		_, found, err := ownedQuestion(app, r, questionId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_question.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "delete_question", questionId)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		for _, del := range []struct {
			code  string
			query string
		}{
			{"answers", `DELETE FROM answer WHERE question_id = ?`},
			{"options", `DELETE FROM question_option WHERE question_id = ?`},
			{"question", `DELETE FROM question WHERE id = ?`},
		} {
			_, err = tx.ExecContext(r.Context(), del.query, questionId)
			if err != nil {
				httpx.LogInternalError(w, "db.delete_question."+del.code, err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_question.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
