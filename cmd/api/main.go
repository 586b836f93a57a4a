package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hubsync/issue-ticket-sync/internal/config"
	"github.com/hubsync/issue-ticket-sync/internal/contacts"
	"github.com/hubsync/issue-ticket-sync/internal/githubapi"
	"github.com/hubsync/issue-ticket-sync/internal/httpserver"
	"github.com/hubsync/issue-ticket-sync/internal/store"
	"github.com/hubsync/issue-ticket-sync/internal/sync"
	"github.com/hubsync/issue-ticket-sync/internal/ticket"
)

// main boots the service: config → DB → schema → engine → HTTP server.
func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Local dev convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// Connect to the correlation store (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect store")
	}
	defer db.Close()

	// Ensure required tables exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	crm := ticket.NewHubSpotClient(cfg.CRMBaseURL, cfg.CRMToken, cfg.HTTPTimeout)

	engine := sync.NewEngine(db, crm, log)
	if cfg.LinkContacts {
		gh := githubapi.NewClient(cfg.GitHubBaseURL, cfg.HTTPTimeout)
		engine.WithContactLinker(contacts.NewLinker(db, gh, crm, log))
	}

	router := httpserver.NewRouter(cfg, db, engine)

	log.Info().Str("addr", cfg.ListenAddr).Msg("server started")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
