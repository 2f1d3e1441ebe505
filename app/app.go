package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/mgallo/pulse-survey/config"
)

// App bundles the shared dependencies handlers close over.
type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
}
