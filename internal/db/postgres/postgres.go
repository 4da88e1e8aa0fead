// Package postgres is a relational Datastore implementation backed by
// sqlx over pgx. It trades the in-memory package's nested maps for
// four tables keyed the same way the resource names are structured,
// with jsonb columns for the nested value types (ParameterDict,
// Measurements, Metadata).
package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/oss-vizier/core/internal/db"
	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/model"
)

var _ db.Datastore = (*PG)(nil)

// PG is the sqlx-backed handle other methods in this package hang off
// of: a bare *sqlx.DB plus a thin queryRows wrapper for multi-row
// reads. Single-value reads (MaxTrialID, MaxSuggestionOperationNumber)
// and the metadata transaction query the connection directly.
type PG struct {
	sql *sqlx.DB
	log *logrus.Entry
}

// Open connects to dsn using the pgx driver and ensures the schema
// exists.
func Open(ctx context.Context, dsn string, log *logrus.Logger) (*PG, error) {
	conn, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	db := &PG{sql: conn, log: log.WithField("component", "postgres")}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating postgres schema: %w", err)
	}
	return db, nil
}

// queryRows issues a read and scans every row into dest, which must
// be a pointer to a slice.
func (db *PG) queryRows(ctx context.Context, query string, dest interface{}, args ...interface{}) error {
	return sqlxSelectContext(ctx, db.sql, dest, query, args...)
}

// sqlxSelectContext rebinds query's positional placeholders for the
// connected driver before delegating to sqlx.SelectContext.
func sqlxSelectContext(ctx context.Context, conn *sqlx.DB, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, conn, dest, conn.Rebind(query), args...)
}

func parseOwner(name string) (string, error) {
	owner, err := resources.ParseOwner(name)
	if err != nil {
		return "", model.InvalidArgumentf("%s", err)
	}
	return owner.OwnerID, nil
}

func (db *PG) migrate(ctx context.Context) error {
	_, err := db.sql.ExecContext(ctx, schemaSQL)
	return err
}

// Close releases the underlying connection pool.
func (db *PG) Close() error {
	return db.sql.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS studies (
	owner_id      TEXT NOT NULL,
	study_id      TEXT NOT NULL,
	display_name  TEXT NOT NULL,
	spec          JSONB NOT NULL,
	metadata      JSONB NOT NULL DEFAULT '[]',
	create_time   TIMESTAMPTZ NOT NULL,
	next_trial_id BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (owner_id, study_id)
);

CREATE TABLE IF NOT EXISTS trials (
	owner_id          TEXT NOT NULL,
	study_id          TEXT NOT NULL,
	trial_id          BIGINT NOT NULL,
	state             SMALLINT NOT NULL,
	client_id         TEXT NOT NULL DEFAULT '',
	start_time        TIMESTAMPTZ,
	parameters        JSONB NOT NULL DEFAULT '{}',
	measurements      JSONB NOT NULL DEFAULT '[]',
	final_measurement JSONB,
	infeasible_reason TEXT NOT NULL DEFAULT '',
	metadata          JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (owner_id, study_id, trial_id),
	FOREIGN KEY (owner_id, study_id) REFERENCES studies (owner_id, study_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS suggestion_operations (
	owner_id    TEXT NOT NULL,
	study_id    TEXT NOT NULL,
	client_id   TEXT NOT NULL,
	op_number   BIGINT NOT NULL,
	done        BOOLEAN NOT NULL DEFAULT FALSE,
	response    JSONB,
	err         JSONB,
	create_time TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner_id, study_id, client_id, op_number),
	FOREIGN KEY (owner_id, study_id) REFERENCES studies (owner_id, study_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS early_stopping_operations (
	owner_id        TEXT NOT NULL,
	study_id        TEXT NOT NULL,
	trial_id        BIGINT NOT NULL,
	status          SMALLINT NOT NULL,
	should_stop     BOOLEAN NOT NULL DEFAULT FALSE,
	create_time     TIMESTAMPTZ NOT NULL,
	completion_time TIMESTAMPTZ,
	PRIMARY KEY (owner_id, study_id, trial_id),
	FOREIGN KEY (owner_id, study_id) REFERENCES studies (owner_id, study_id) ON DELETE CASCADE
);
`

// jsonColumn adapts any JSON-marshalable T to a jsonb column via
// database/sql's Scanner/Valuer interfaces, so structs can be stored
// and read back without a bespoke wire format per table.
type jsonColumn[T any] struct {
	V T
}

func (j *jsonColumn[T]) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("postgres: cannot scan %T into jsonb column", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &j.V)
}

func (j jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func studyKey(name string) (ownerID, studyID string, err error) {
	s, perr := resources.ParseStudy(name)
	if perr != nil {
		return "", "", model.InvalidArgumentf("%s", perr)
	}
	return s.OwnerID, s.StudyID, nil
}
