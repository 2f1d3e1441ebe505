package routes

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/httpx"
	"github.com/mgallo/pulse-survey/log"
	"github.com/mgallo/pulse-survey/model"
)

// PublicGetSurvey serves a survey to anonymous respondents. It answers only
// when the id and link token match an active survey; every other case is the
// same 404, so existence is never leaked.
func PublicGetSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		token := chi.URLParam(r, "token")

		survey := model.Survey{}
		err = app.QueryRowContext(r.Context(), `
			SELECT id, title, description
			FROM survey
			WHERE id = ?
				AND public_link = ?
				AND status = ?`,
			surveyId,
			token,
			model.StatusActive,
		).Scan(&survey.ID, &survey.Title, &survey.Description)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "public_get_survey", surveyId)
			} else {
				httpx.LogInternalError(w, "db.public_get_survey", err)
			}
			return
		}

		survey.Questions, err = fetchQuestions(r.Context(), app, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.public_get_survey.questions", err)
			return
		}

		render.JSON(w, r, survey)
	}
}
