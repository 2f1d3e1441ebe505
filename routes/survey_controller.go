package routes

import (
	"context"
	"database/sql"
	"encoding/csv"
	"net/http"

	"github.com/go-chi/render"
	"github.com/gofrs/uuid"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/httpx"
	"github.com/mgallo/pulse-survey/log"
	"github.com/mgallo/pulse-survey/model"
	"github.com/mgallo/pulse-survey/routes/middlewares"
)

// insertQuestionTx writes one question and its options within the caller's
// transaction.
func insertQuestionTx(ctx context.Context, tx *sql.Tx, surveyID int, q model.Question) (questionID int, err error) {
	err = tx.QueryRowContext(ctx, `
		INSERT INTO question (survey_id, type, question, description, required, ord)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		surveyID,
		q.Type,
		q.Question,
		q.Description,
		q.Required,
		q.Order,
	).Scan(&questionID)
	if err != nil {
		return 0, err
	}

	for _, o := range q.Options {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO question_option (question_id, text, ord)
			VALUES (?, ?, ?)`,
			questionID,
			o.Text,
			o.Order,
		)
		if err != nil {
			return 0, err
		}
	}
	return questionID, nil
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if errs := validateSurvey(survey); errs != nil {
			httpx.LogValidation(w, r, "create_survey.validate", errs)
			return
		}
		if survey.Status == "" {
			survey.Status = model.StatusDraft
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var surveyId int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO survey (creator_id, title, description, status)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			middlewares.UserID(r),
			survey.Title,
			survey.Description,
			survey.Status,
		).Scan(&surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey", err)
			return
		}

		for _, q := range survey.Questions {
			_, err = insertQuestionTx(r.Context(), tx, surveyId, q)
			if err != nil {
				httpx.LogInternalError(w, "db.insert_survey.questions", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": surveyId,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT
				s.id, s.title, s.description, s.status, s.public_link,
				s.created_at, s.updated_at,
				(SELECT count(*) FROM response r WHERE r.survey_id = s.id)
			FROM survey s
			WHERE s.creator_id = ?
			ORDER BY s.id`,
			middlewares.UserID(r),
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}
		defer rows.Close()

		surveys := []model.Survey{}
		for rows.Next() {
			s := model.Survey{}
			var link sql.NullString
			var count int
			err = rows.Scan(
				&s.ID, &s.Title, &s.Description, &s.Status, &link,
				&s.CreatedAt, &s.UpdatedAt,
				&count,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.get_surveys.scan", err)
				return
			}
			s.PublicLink = nullable(link)
			s.ResponseCount = &count
			s.Questions = []model.Question{}

			surveys = append(surveys, s)
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey := model.Survey{}
		var link sql.NullString
		var count int
		err = app.QueryRowContext(r.Context(), `
			SELECT
				s.id, s.title, s.description, s.status, s.public_link,
				s.created_at, s.updated_at,
				(SELECT count(*) FROM response r WHERE r.survey_id = s.id)
			FROM survey s
			WHERE s.id = ?
				AND s.creator_id = ?`,
			surveyId,
			middlewares.UserID(r),
		).Scan(
			&survey.ID, &survey.Title, &survey.Description, &survey.Status, &link,
			&survey.CreatedAt, &survey.UpdatedAt,
			&count,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				httpx.LogNotFound(w, "get_survey", surveyId)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}
		survey.PublicLink = nullable(link)
		survey.ResponseCount = &count

		survey.Questions, err = fetchQuestions(r.Context(), app, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey.questions", err)
			return
		}

		render.JSON(w, r, survey)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey := model.Survey{}
		err = render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if errs := validateSurvey(survey); errs != nil {
			httpx.LogValidation(w, r, "update_survey.validate", errs)
			return
		}
		if survey.Status == "" {
			survey.Status = model.StatusDraft
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "update_survey", surveyId)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		// replace the question tree wholesale
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM question_option
			WHERE question_id IN (SELECT id FROM question WHERE survey_id = ?)`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey.delete_options", err)
			return
		}
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM question
			WHERE survey_id = ?`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey.delete_questions", err)
			return
		}

		for _, q := range survey.Questions {
			_, err = insertQuestionTx(r.Context(), tx, surveyId, q)
			if err != nil {
				httpx.LogInternalError(w, "db.update_survey.questions", err)
				return
			}
		}

		_, err = tx.ExecContext(r.Context(), `
			UPDATE survey
			SET
				title = ?,
				description = ?,
				status = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			survey.Title,
			survey.Description,
			survey.Status,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "delete_survey", surveyId)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		// cascade bottom-up: answers, responses, options, questions, survey
		for _, del := range []struct {
			code  string
			query string
		}{
			{"answers", `
				DELETE FROM answer
				WHERE response_id IN (SELECT id FROM response WHERE survey_id = ?)`},
			{"responses", `
				DELETE FROM response
				WHERE survey_id = ?`},
			{"options", `
				DELETE FROM question_option
				WHERE question_id IN (SELECT id FROM question WHERE survey_id = ?)`},
			{"questions", `
				DELETE FROM question
				WHERE survey_id = ?`},
			{"survey", `
				DELETE FROM survey
				WHERE id = ?`},
		} {
			_, err = tx.ExecContext(r.Context(), del.query, surveyId)
			if err != nil {
				httpx.LogInternalError(w, "db.delete_survey."+del.code, err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GeneratePublicLink(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.generate_link.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "generate_link", surveyId)
			return
		}

		token, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, "generate_link.token", err)
			return
		}
		publicLink := token.String()[:8]

		_, err = app.ExecContext(r.Context(), `
			UPDATE survey
			SET public_link = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			publicLink,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.generate_link", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"public_link": publicLink,
		})
	}
}

func UploadRespondents(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		found, err := ownedSurvey(app, r, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.upload_respondents.owner", err)
			return
		}
		if !found {
			httpx.LogNotFound(w, "upload_respondents", surveyId)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			httpx.LogValidation(w, r, "upload_respondents.file", map[string]string{
				"file": "no file provided",
			})
			return
		}
		defer file.Close()

		reader := csv.NewReader(file)
		header, err := reader.Read()
		if err != nil {
			httpx.LogValidation(w, r, "upload_respondents.header", map[string]string{
				"file": "could not read CSV header",
			})
			return
		}
		columns := map[string]int{}
		for i, name := range header {
			columns[name] = i
		}

		records, err := reader.ReadAll()
		if err != nil {
			httpx.LogValidation(w, r, "upload_respondents.rows", map[string]string{
				"file": "malformed CSV content",
			})
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO response (survey_id, respondent_email, respondent_name, department)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, "db.upload_respondents.prepare", err)
			return
		}
		defer stmt.Close()

		cell := func(record []string, name string) any {
			i, ok := columns[name]
			if !ok || i >= len(record) || record[i] == "" {
				return nil
			}
			return record[i]
		}

		for _, record := range records {
			_, err = stmt.ExecContext(r.Context(),
				surveyId,
				cell(record, "email"),
				cell(record, "name"),
				cell(record, "department"),
			)
			if err != nil {
				httpx.LogInternalError(w, "db.upload_respondents.insert", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.upload_respondents.commit", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"message": "respondents uploaded successfully",
			"count":   len(records),
		})
	}
}
