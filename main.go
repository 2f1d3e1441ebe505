package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/mgallo/pulse-survey/app"
	"github.com/mgallo/pulse-survey/config"
	"github.com/mgallo/pulse-survey/database"
	"github.com/mgallo/pulse-survey/httpx"
	"github.com/mgallo/pulse-survey/log"
	"github.com/mgallo/pulse-survey/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.SeedUser != "" {
		err = database.SeedUser(db, cfg.SeedUser)
		if err != nil {
			log.Fatal("main.db.seed_user:", err)
		}
		log.Info("user created, exiting")
		return
	}

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
