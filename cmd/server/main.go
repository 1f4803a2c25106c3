package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"sla-attribution-service/internal/adapters/cache"
	"sla-attribution-service/internal/adapters/repositories"
	"sla-attribution-service/internal/adapters/spreadsheet"
	"sla-attribution-service/internal/api"
	"sla-attribution-service/internal/api/handlers"
	"sla-attribution-service/internal/config"
	"sla-attribution-service/internal/platform/db"
	"sla-attribution-service/internal/ports"
	"sla-attribution-service/internal/rules"
	"time"
)

// main is the application composition root.
// It wires concrete adapters (SQLite or Postgres, Redis) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	conn, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	registry, err := loadRules(cfg.RulesPath)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("rules loaded: clients=%d fingerprint=%s", len(registry.Clients()), registry.Fingerprint()[:12])

	handler := &handlers.AnalysisHandler{
		Registry:       registry,
		Runs:           runRepository(cfg, conn),
		Codec:          spreadsheet.Codec{},
		Location:       cfg.Location,
		Workers:        cfg.Workers,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Now:            time.Now,
	}

	// Without redis every request renders its report.
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		reports, err := cache.NewRedisReportCache(client, cfg.ReportCacheTTL)
		if err != nil {
			log.Fatal(err)
		}
		handler.Reports = reports
		log.Printf("report cache enabled: addr=%s ttl=%s", cfg.RedisAddr, cfg.ReportCacheTTL)
	}

	router := api.NewRouter(handler)

	// Large uploads are parsed and analyzed inside the request, so writes get a generous timeout.
	log.Printf("Server listening addr=:%s", cfg.Port)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// openStore opens postgres when a database URL is configured and the local
// sqlite file otherwise, and makes sure the run schema exists.
func openStore(cfg *config.Config) (*sql.DB, error) {
	if cfg.UsePostgres() {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repositories.InitPostgresSchema(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		return conn, nil
	}

	conn, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := repositories.InitSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return conn, nil
}

func runRepository(cfg *config.Config, conn *sql.DB) ports.RunRepository {
	if cfg.UsePostgres() {
		return repositories.NewSQLRunRepository(conn)
	}
	return repositories.NewSqliteRunRepository(conn)
}

func loadRules(path string) (*rules.Registry, error) {
	if path == "" {
		return rules.Default(), nil
	}
	return rules.LoadFile(path)
}
