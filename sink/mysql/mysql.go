package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"videogen/sink"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

type MysqlConfig struct {
	DbHost     string
	Database   string
	DbPort     int
	DbUser     string
	DbPassword string
}

type MysqlSink struct {
	db *sql.DB
}

func OpenMysqlSink(cfg MysqlConfig) (*MysqlSink, error) {
	zap.S().Infof("Opening MySQL sink: %s@%s:%d/%s", cfg.DbUser, cfg.DbHost, cfg.DbPort, cfg.Database)

	dc := mysql.NewConfig()
	dc.User = cfg.DbUser
	dc.Passwd = cfg.DbPassword
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", cfg.DbHost, cfg.DbPort)
	dc.DBName = cfg.Database
	db, err := sql.Open("mysql", dc.FormatDSN())
	if err != nil {
		return nil, err
	}
	return &MysqlSink{db}, nil
}

func (p *MysqlSink) Prepare(topics []string) error {
	return nil
}

func (p *MysqlSink) Close() error {
	return p.db.Close()
}

// statement renders the INSERT for record. Postgres syntax is used unless
// the record has a MySQL form.
func statement(record sink.SinkRecord) string {
	if r, ok := record.(sink.MysqlRecord); ok {
		return r.ToMySql()
	}
	return record.ToPostgresSql()
}

func (p *MysqlSink) WriteRecord(ctx context.Context, format string, record sink.SinkRecord) error {
	query := statement(record)
	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		err = fmt.Errorf("failed to execute query '%s': %w", query, err)
	}
	return err
}
