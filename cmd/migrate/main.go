package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS admin_events CASCADE`,
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS matches CASCADE`,
		`DROP TABLE IF EXISTS entrants CASCADE`,
		`DROP TABLE IF EXISTS seasons CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS seasons (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT false,
			start_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS entrants (
			id UUID PRIMARY KEY,
			season_id UUID NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			color_hex VARCHAR(7) NOT NULL DEFAULT '',
			conference VARCHAR(8) NOT NULL CHECK (conference IN ('left', 'right')),
			eliminated BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id UUID PRIMARY KEY,
			season_id UUID NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
			match_number INTEGER NOT NULL,
			round INTEGER NOT NULL,
			entrant_a_id UUID REFERENCES entrants(id),
			entrant_b_id UUID REFERENCES entrants(id),
			current_score_a INTEGER NOT NULL DEFAULT 0,
			current_score_b INTEGER NOT NULL DEFAULT 0,
			final_score_a INTEGER,
			final_score_b INTEGER,
			started_at TIMESTAMPTZ,
			ends_at TIMESTAMPTZ,
			active BOOLEAN NOT NULL DEFAULT false,
			finished BOOLEAN NOT NULL DEFAULT false,
			winner_id UUID REFERENCES entrants(id),
			tie_break_random BOOLEAN NOT NULL DEFAULT false,
			next_match_id UUID REFERENCES matches(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(season_id, match_number)
		)`,

		// The unique constraint is the vote dedup mechanism; the application
		// relies on error code 23505, never on a pre-check.
		`CREATE TABLE IF NOT EXISTS votes (
			id UUID PRIMARY KEY,
			season_id UUID NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
			match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			entrant_id UUID NOT NULL REFERENCES entrants(id),
			voter_key VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(match_id, voter_key)
		)`,

		`CREATE TABLE IF NOT EXISTS admin_events (
			id UUID PRIMARY KEY,
			season_id UUID NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
			match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			entrant_id UUID NOT NULL REFERENCES entrants(id),
			delta INTEGER NOT NULL,
			reason TEXT NOT NULL,
			actor_email VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_matches_season ON matches(season_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_active ON matches(active) WHERE active = true`,
		`CREATE INDEX IF NOT EXISTS idx_matches_due ON matches(ends_at) WHERE active = true AND finished = false`,
		`CREATE INDEX IF NOT EXISTS idx_votes_match ON votes(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entrants_season ON entrants(season_id)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_events_match ON admin_events(match_id)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	// Development fixture: one season with 8 entrants, 4 per conference.
	var count int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM seasons`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count seasons: %w", err)
	}
	if count > 0 {
		fmt.Println("  Seasons already present, skipping seed")
		return nil
	}

	_, err := conn.Exec(ctx, `
		INSERT INTO seasons (id, name, active, start_date)
		VALUES (gen_random_uuid(), 'Dev Season', false, NOW())
	`)
	if err != nil {
		return fmt.Errorf("failed to seed season: %w", err)
	}

	fmt.Println("  Seeded development season; use the admin API to seed its bracket")
	return nil
}
