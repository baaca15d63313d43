package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mc855/authenticator/internal/config"
	"github.com/mc855/authenticator/internal/migrate"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", "", "PostgreSQL DSN (defaults to the DB_* environment)")
	flag.Parse()

	if *dsn == "" {
		if os.Getenv("ACCESS_TOKEN_SECRET_KEY") != "" {
			env, err := config.Load()
			if err != nil {
				log.Fatalf("load configuration: %v", err)
			}
			*dsn = env.DSN()
		} else {
			// migrations do not need token secrets; build the DSN directly
			*dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
				envOr("DB_USER", "postgres"),
				os.Getenv("DB_PASS"),
				envOr("DB_HOST", "localhost"),
				envOr("DB_PORT", "5432"),
				envOr("DB_NAME", "db_authenticator"),
			)
		}
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrate.Files)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
