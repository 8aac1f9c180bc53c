package predict

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Database configuration keys holding the per-severity degradation rates.
const (
	KeyMinorLambda       = "deviation_minor_lambda"
	KeySignificantLambda = "deviation_significant_lambda"
	KeyMajorLambda       = "deviation_major_lambda"
	KeyExtremeLambda     = "deviation_extreme_lambda"
)

// Intensities maps deviation severity to an exponential rate parameter. The
// values are loaded from the database at startup and replaced only through
// Reload.
type Intensities struct {
	mu          sync.RWMutex
	minor       float64
	significant float64
	major       float64
	extreme     float64
}

func NewIntensities() *Intensities {
	return &Intensities{}
}

// Reload fetches the four rate parameters from the database and swaps them
// in atomically.
func (c *Intensities) Reload(db ports.Database) error {
	vals, err := db.FetchConfig(KeyMinorLambda, KeySignificantLambda, KeyMajorLambda, KeyExtremeLambda)
	if err != nil {
		return fmt.Errorf("fetch intensities: %w", err)
	}

	parsed := make(map[string]float64, len(vals))
	for key, raw := range vals {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("intensity %s: %w", key, err)
		}
		parsed[key] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := parsed[KeyMinorLambda]; ok {
		c.minor = v
	}
	if v, ok := parsed[KeySignificantLambda]; ok {
		c.significant = v
	}
	if v, ok := parsed[KeyMajorLambda]; ok {
		c.major = v
	}
	if v, ok := parsed[KeyExtremeLambda]; ok {
		c.extreme = v
	}
	return nil
}

// Set overrides all four rates. Intended for tests and static configuration.
func (c *Intensities) Set(minor, significant, major, extreme float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minor = minor
	c.significant = significant
	c.major = major
	c.extreme = extreme
}

// MapDeviation maps the magnitude of a deviation score to an exponential
// time-to-event distribution. Deviations below two standard deviations
// produce no prediction.
func (c *Intensities) MapDeviation(zScore float64) *domain.Exponential {
	z := math.Abs(zScore)
	if z < 2 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var lambda float64
	switch {
	case z >= 5:
		lambda = c.extreme
	case z >= 4:
		lambda = c.major
	case z >= 3:
		lambda = c.significant
	default:
		lambda = c.minor
	}

	pdf := domain.NewExponential(lambda)
	return &pdf
}
