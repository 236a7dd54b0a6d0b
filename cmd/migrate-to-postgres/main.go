// migrate-to-postgres copies stored maps from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/maps.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user tilegen \
//	    -pg-password tilegen \
//	    -pg-database tilegen
package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/lawnchairsociety/tilegen/internal/config"
	"github.com/lawnchairsociety/tilegen/internal/store"
)

func main() {
	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/maps.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "tilegen", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "tilegen", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "tilegen", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Map Migration Tool")
	log.Println("=======================================")

	defaults := config.DefaultConfig().Storage

	src := defaults
	src.Driver = "sqlite"
	src.SQLitePath = *sqlitePath

	dst := defaults
	dst.Driver = "postgres"
	dst.Postgres.Host = *pgHost
	dst.Postgres.Port = *pgPort
	dst.Postgres.User = *pgUser
	dst.Postgres.Password = *pgPassword
	dst.Postgres.Database = *pgDatabase
	dst.Postgres.SSLMode = *pgSSLMode

	// Open SQLite database
	log.Printf("Opening SQLite database: %s", *sqlitePath)
	sqliteStore, err := store.Open(src)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer sqliteStore.Close()

	// Open PostgreSQL database; Open creates the schema
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	pgStore, err := store.Open(dst)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer pgStore.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	migrated, skipped, err := migrateMaps(context.Background(), sqliteStore, pgStore, *dryRun)
	if err != nil {
		log.Fatalf("Failed to migrate maps: %v", err)
	}

	log.Println("=======================================")
	log.Printf("Migration complete! Maps migrated: %d, already present: %d", migrated, skipped)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}

// migrateMaps copies every map in src that dst does not hold yet. Map ids are
// preserved, so running it twice is harmless.
func migrateMaps(ctx context.Context, src, dst *store.Store, dryRun bool) (migrated, skipped int, err error) {
	maps, err := src.ListMaps(ctx, 0)
	if err != nil {
		return 0, 0, err
	}
	log.Printf("Found %d maps in SQLite", len(maps))

	for _, ms := range maps {
		_, err := dst.LoadMap(ctx, ms.ID)
		switch {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, store.ErrMapNotFound):
			return migrated, skipped, err
		}

		if dryRun {
			log.Printf("  Would migrate %s (%dx%d, seed %d)", ms.ID, ms.Dim, ms.Dim, ms.Seed)
			migrated++
			continue
		}

		m, err := src.LoadMap(ctx, ms.ID)
		if err != nil {
			return migrated, skipped, err
		}
		if _, err := dst.SaveMap(ctx, m); err != nil {
			if errors.Is(err, store.ErrMapExists) {
				skipped++
				continue
			}
			return migrated, skipped, err
		}
		migrated++
	}
	return migrated, skipped, nil
}
