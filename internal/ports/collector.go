package ports

import "github.com/JozefStefanInstitute/StreamStory/internal/domain"

// Collector acquires measurements from an external source and emits them on
// the provided channel until stopped.
type Collector interface {
	Start(out chan<- domain.Measurement) error
	Stop() error
}
