package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sgarciab/authbridge/internal/config"
	migrations "github.com/sgarciab/authbridge/migrations/postgres"
)

func migrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate [up|down] [steps]",
		Short: "Aplica las migraciones embebidas de Postgres",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(".env")

			action := "up"
			steps := 0
			if len(args) >= 1 && args[0] != "" {
				action = strings.ToLower(args[0])
			}
			if len(args) >= 2 {
				if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
					steps = n
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.DSN == "" {
				return fmt.Errorf("storage.dsn no configurado")
			}

			ctx := context.Background()
			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			switch action {
			case "up":
				files, err := listSQL("_up.sql")
				if err != nil {
					return err
				}
				sort.Strings(files) // apply in ascending order
				if steps > 0 && steps < len(files) {
					files = files[:steps]
				}
				log.Printf("Applying %d up migration(s)...", len(files))
				return execAll(ctx, pool, files)

			case "down":
				files, err := listSQL("_down.sql")
				if err != nil {
					return err
				}
				sort.Sort(sort.Reverse(sort.StringSlice(files))) // run in reverse
				if steps > 0 && steps < len(files) {
					files = files[:steps] // only N most-recent downs
				}
				log.Printf("Applying %d down migration(s)...", len(files))
				return execAll(ctx, pool, files)

			default:
				return fmt.Errorf("unknown action %q. Use: up | down [steps]", action)
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path al YAML de configuración (opcional)")
	return cmd
}

func listSQL(suffix string) ([]string, error) {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func execAll(ctx context.Context, pool *pgxpool.Pool, files []string) error {
	for _, f := range files {
		b, err := migrations.FS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		start := time.Now()
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		log.Printf("OK %s (%s)", f, time.Since(start).Truncate(time.Millisecond))
	}
	return nil
}
