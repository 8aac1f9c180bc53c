package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// EnrichedStore appends field-completed broker events to a fixed table.
type EnrichedStore struct {
	db    *sql.DB
	table string
}

func NewEnrichedStore(db *sql.DB, table string) *EnrichedStore {
	return &EnrichedStore{db: db, table: table}
}

func (s *EnrichedStore) Append(rec domain.EnrichedRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshal enriched fields: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO "+s.table+" (ts, fields) VALUES (to_timestamp($1::double precision / 1000), $2)",
		rec.Timestamp, fields,
	)
	return err
}

var _ ports.EnrichedStore = (*EnrichedStore)(nil)
