package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"videogen/sink"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type PostgresConfig struct {
	DbHost     string
	Database   string
	DbPort     int
	DbUser     string
	DbPassword string
}

type PostgresSink struct {
	db *sql.DB
}

func dsn(cfg PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(cfg.DbUser, cfg.DbPassword),
		Host:     fmt.Sprintf("%s:%d", cfg.DbHost, cfg.DbPort),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func OpenPostgresSink(cfg PostgresConfig) (*PostgresSink, error) {
	zap.S().Infof("Opening PostgreSQL sink: %s@%s:%d/%s", cfg.DbUser, cfg.DbHost, cfg.DbPort, cfg.Database)
	db, err := sql.Open("postgres", dsn(cfg))
	if err != nil {
		return nil, err
	}
	return &PostgresSink{db}, nil
}

func (p *PostgresSink) Prepare(topics []string) error {
	return nil
}

func (p *PostgresSink) Close() error {
	return p.db.Close()
}

func (p *PostgresSink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	query := record.ToPostgresSql()
	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		err = fmt.Errorf("failed to execute query '%s': %w", query, err)
	}
	return err
}
