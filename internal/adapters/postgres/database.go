package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Database implements the relational collaborator on PostgreSQL.
type Database struct {
	db *sql.DB
}

func NewDatabase(db *sql.DB) *Database {
	return &Database{db: db}
}

// Open connects with the pq driver and verifies the connection.
func Open(connString string) (*Database, *sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewDatabase(db), db, nil
}

func (d *Database) FetchStateProperty(modelID string, stateID int, property string) (string, error) {
	var value sql.NullString
	err := d.db.QueryRow(
		"SELECT value FROM state_properties WHERE mid = $1 AND sid = $2 AND property = $3",
		modelID, stateID, property,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &domain.NotFoundError{Kind: "state property", ID: property}
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

func (d *Database) FetchConfig(keys ...string) (map[string]string, error) {
	rows, err := d.db.Query(
		"SELECT property, value FROM config WHERE property = ANY($1)",
		pq.Array(keys),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var property, value string
		if err := rows.Scan(&property, &value); err != nil {
			return nil, err
		}
		out[property] = value
	}
	return out, rows.Err()
}

func (d *Database) SetConfig(key, value string) error {
	_, err := d.db.Exec(
		"INSERT INTO config (property, value) VALUES ($1, $2) ON CONFLICT (property) DO UPDATE SET value = EXCLUDED.value",
		key, value,
	)
	return err
}

const modelColumns = "mid, name, username, dataset, model_file, is_realtime, is_active, is_public"

func scanModel(row interface{ Scan(...any) error }) (domain.ModelRecord, error) {
	var m domain.ModelRecord
	err := row.Scan(&m.ID, &m.Name, &m.Username, &m.Dataset, &m.File, &m.IsRealtime, &m.IsActive, &m.IsPublic)
	return m, err
}

func (d *Database) FetchActiveModels() ([]domain.ModelRecord, error) {
	rows, err := d.db.Query(
		"SELECT " + modelColumns + " FROM models WHERE is_active = TRUE AND is_realtime = TRUE",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ModelRecord
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *Database) FetchModel(modelID string) (domain.ModelRecord, error) {
	row := d.db.QueryRow(
		"SELECT "+modelColumns+" FROM models WHERE mid = $1",
		modelID,
	)
	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ModelRecord{}, &domain.NotFoundError{Kind: "model", ID: modelID}
	}
	return m, err
}

func (d *Database) SetModelActive(modelID string, active bool) error {
	_, err := d.db.Exec(
		"UPDATE models SET is_active = $2 WHERE mid = $1",
		modelID, active,
	)
	return err
}

func (d *Database) CountActiveModels() (int, error) {
	var n int
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM models WHERE is_active = TRUE AND is_realtime = TRUE",
	).Scan(&n)
	return n, err
}

var _ ports.Database = (*Database)(nil)
