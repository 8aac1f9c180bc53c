package ports

import "github.com/JozefStefanInstitute/StreamStory/internal/domain"

// MessageLog keeps the most recent envelopes routed for a model so a web
// channel reconnecting to that model can catch up on what it missed.
type MessageLog interface {
	Append(modelID string, env domain.Envelope) error
	Latest(modelID string, n int) ([]domain.Envelope, error)
	Count(modelID string) (int, error)
}
