package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const AuditTableSchema = `
	CREATE TABLE IF NOT EXISTS audit_records (
		id VARCHAR NOT NULL,
		resource_type VARCHAR NOT NULL,
		resource_id VARCHAR NOT NULL,
		region VARCHAR,
		account VARCHAR,
		rule VARCHAR,
		compliance VARCHAR NOT NULL,
		reason VARCHAR,
		remediation_action VARCHAR,
		remediation_status VARCHAR,
		remediation_attempts INTEGER,
		remediation_reason VARCHAR,
		evaluated_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id)
	);
`

var bootQueries = []string{
	AuditTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		bootQueries := append([]string{}, bootQueries...)

		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
