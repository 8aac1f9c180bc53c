package ports

import "github.com/JozefStefanInstitute/StreamStory/internal/domain"

// Database is the relational store behind the registry and the prediction
// dispatcher.
type Database interface {
	FetchStateProperty(modelID string, stateID int, property string) (string, error)
	FetchConfig(keys ...string) (map[string]string, error)
	SetConfig(key, value string) error
	FetchActiveModels() ([]domain.ModelRecord, error)
	FetchModel(modelID string) (domain.ModelRecord, error)
	SetModelActive(modelID string, active bool) error
	CountActiveModels() (int, error)
}

// EnrichedStore persists enriched records arriving from the broker.
type EnrichedStore interface {
	Append(rec domain.EnrichedRecord) error
}
