package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"actionplus.app/internal/kv"
	"actionplus.app/internal/migrate"
	"actionplus.app/internal/obs"
)

func main() {
	log := obs.Logger()
	var (
		dsn   = flag.String("dsn", os.Getenv("GYMADMIN_PG_DSN"), "PostgreSQL DSN")
		table = flag.String("table", "", "Migration history table (default schema_migrations)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or GYMADMIN_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := kv.OpenPG(*dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer store.Close()

	var opts []migrate.Option
	if *table != "" {
		opts = append(opts, migrate.WithMigrationsTable(*table))
	}
	mgr := migrate.NewManager(store.DB(), nil, opts...)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
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
		log.WithError(err).Fatalf("migrate %s", flag.Arg(0))
	}
}
