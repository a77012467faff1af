package journal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres is the shared journal for multi-replica deployments.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	j := &Postgres{pool: pool}
	if err := j.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("journal: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return j, nil
}

func (j *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, k int) bool {
		return entries[i].Name() < entries[k].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := j.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (j *Postgres) Start(ctx context.Context, run Run) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO runs (id, url, video_id, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.URL, run.VideoID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: start %s: %w", run.ID, err)
	}
	return nil
}

func (j *Postgres) Finish(ctx context.Context, run Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	tag, err := j.pool.Exec(ctx,
		`UPDATE runs SET status = $1, source = $2, sections = $3, uploaded = $4, error = $5, finished_at = $6 WHERE id = $7`,
		string(run.Status), run.Source, run.Sections, run.Uploaded, run.Error, finished, run.ID,
	)
	if err != nil {
		return fmt.Errorf("journal: finish %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("journal: finish %s: run not found", run.ID)
	}
	return nil
}

func (j *Postgres) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT id, url, video_id, status, COALESCE(source, ''), sections, uploaded, COALESCE(error, ''), started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var r Run
		var status string
		err := row.Scan(&r.ID, &r.URL, &r.VideoID, &status, &r.Source, &r.Sections, &r.Uploaded, &r.Error, &r.StartedAt, &r.FinishedAt)
		r.Status = Status(status)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("journal: scan: %w", err)
	}
	return runs, nil
}

func (j *Postgres) Close() error {
	j.pool.Close()
	return nil
}
