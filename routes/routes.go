package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	// respondent-facing
	api.Get(`/surveys/{id:^\d+$}/public/{token}`, PublicGetSurvey(app))
	api.Post("/responses", SubmitResponse(app))

	// owner-facing
	api.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.Config))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get(`/surveys/{id:^\d+$}`, GetSurveyById(app))
		r.Put(`/surveys/{id:^\d+$}`, UpdateSurvey(app))
		r.Delete(`/surveys/{id:^\d+$}`, DeleteSurvey(app))

		r.Post(`/surveys/{id:^\d+$}/generate_public_link`, GeneratePublicLink(app))
		r.Post(`/surveys/{id:^\d+$}/upload_respondents`, UploadRespondents(app))
		r.Get(`/surveys/{id:^\d+$}/results`, GetSurveyResults(app))
		r.Get(`/surveys/{id:^\d+$}/responses`, GetSurveyResponses(app))

		// CRUD question
		r.Get(`/surveys/{id:^\d+$}/questions`, ListQuestions(app))
		r.Post(`/surveys/{id:^\d+$}/questions`, CreateQuestion(app))
		r.Put(`/questions/{id:^\d+$}`, UpdateQuestion(app))
		r.Delete(`/questions/{id:^\d+$}`, DeleteQuestion(app))
	})

	return api
}
