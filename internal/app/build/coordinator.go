package build

import (
	"context"
	"sync"
	"time"

	"github.com/JozefStefanInstitute/StreamStory/internal/domain"
	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Progress is the result shape handed to a polling client.
type Progress struct {
	IsFinished bool   `json:"isFinished"`
	Progress   int    `json:"progress"`
	Message    string `json:"message"`
	ModelID    string `json:"mid,omitempty"`
	Error      string `json:"error,omitempty"`
}

type job struct {
	spec     ports.BuildSpec
	buffered []Progress
	waiter   chan Progress
	finished bool
	modelID  string
}

// Coordinator serializes model builds per user. Each user has at most one
// job in flight, a bounded buffer of unpolled progress reports and at most
// one pending poll, resolved exactly once.
type Coordinator struct {
	mu          sync.Mutex
	jobs        map[string]*job
	builder     ports.ModelBuilder
	timeout     time.Duration
	progressCap int
	obs         ports.Observability
}

func NewCoordinator(builder ports.ModelBuilder, timeout time.Duration, progressCap int, obs ports.Observability) *Coordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if progressCap <= 0 {
		progressCap = 64
	}
	return &Coordinator{
		jobs:        make(map[string]*job),
		builder:     builder,
		timeout:     timeout,
		progressCap: progressCap,
		obs:         obs,
	}
}

// RequestBuild starts an asynchronous build for the user and returns
// immediately. A second request while the user's build is still running
// fails with AlreadyBuildingError.
func (c *Coordinator) RequestBuild(ctx context.Context, spec ports.BuildSpec) error {
	c.mu.Lock()
	if j, ok := c.jobs[spec.Username]; ok && !j.finished {
		c.mu.Unlock()
		return &domain.AlreadyBuildingError{Username: spec.Username}
	}
	c.jobs[spec.Username] = &job{spec: spec}
	c.mu.Unlock()

	c.obs.LogInfo("model build started",
		ports.Field{Key: "user", Value: spec.Username},
		ports.Field{Key: "dataset", Value: spec.Dataset})
	c.obs.IncCounter("streamstory_builds_started_total", 1)

	go c.run(ctx, spec)
	return nil
}

func (c *Coordinator) run(ctx context.Context, spec ports.BuildSpec) {
	start := time.Now()
	modelID, err := c.builder.Build(ctx, spec, func(pct int, status string) {
		c.report(spec.Username, Progress{Progress: pct, Message: status})
	})
	c.obs.ObserveLatency("streamstory_build_duration_seconds", time.Since(start).Seconds())

	if err != nil {
		c.obs.LogError("model build failed", err,
			ports.Field{Key: "user", Value: spec.Username})
		c.report(spec.Username, Progress{
			IsFinished: true,
			Progress:   100,
			Message:    err.Error(),
			Error:      err.Error(),
		})
		return
	}

	c.obs.LogInfo("model build finished",
		ports.Field{Key: "user", Value: spec.Username},
		ports.Field{Key: "model", Value: modelID})
	c.report(spec.Username, Progress{
		IsFinished: true,
		Progress:   100,
		Message:    "Model built!",
		ModelID:    modelID,
	})
}

// report delivers a progress update. A registered poll is resolved exactly
// once and cleared; with no poll pending the report is buffered, dropping
// the oldest unpolled one beyond the cap.
func (c *Coordinator) report(user string, p Progress) {
	c.mu.Lock()
	j, ok := c.jobs[user]
	if !ok {
		c.mu.Unlock()
		return
	}
	if p.IsFinished {
		j.finished = true
		j.modelID = p.ModelID
	}
	if w := j.waiter; w != nil {
		j.waiter = nil
		c.mu.Unlock()
		w <- p
		return
	}
	j.buffered = append(j.buffered, p)
	if len(j.buffered) > c.progressCap {
		j.buffered = j.buffered[len(j.buffered)-c.progressCap:]
	}
	c.mu.Unlock()
}

// IsBuilding reports whether the user has a job that has not been confirmed
// yet.
func (c *Coordinator) IsBuilding(user string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.jobs[user]
	return ok
}

// BuildingModelID returns the model id produced by the user's finished job.
func (c *Coordinator) BuildingModelID(user string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[user]
	if !ok || !j.finished {
		return "", false
	}
	return j.modelID, true
}

// Poll returns buffered progress immediately when present. Otherwise it
// registers the single poll slot and waits; when nothing arrives within the
// timeout it resolves once with no content (second return false) and leaves
// no dangling callback behind.
func (c *Coordinator) Poll(user string) (Progress, bool, error) {
	c.mu.Lock()
	j, ok := c.jobs[user]
	if !ok {
		c.mu.Unlock()
		return Progress{}, false, &domain.NotFoundError{Kind: "build job", ID: user}
	}

	if len(j.buffered) > 0 {
		p := j.buffered[0]
		j.buffered = j.buffered[1:]
		c.mu.Unlock()
		return p, true, nil
	}

	// a newer poll takes over the slot; the superseded one times out
	ch := make(chan Progress, 1)
	j.waiter = ch
	c.mu.Unlock()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case p := <-ch:
		return p, true, nil
	case <-timer.C:
		c.mu.Lock()
		if j.waiter == ch {
			j.waiter = nil
		}
		c.mu.Unlock()
		// a report may have won the race with the timer
		select {
		case p := <-ch:
			return p, true, nil
		default:
			return Progress{}, false, nil
		}
	}
}

// ConfirmBuilt clears the user's residual job state. Safe to call when no
// job is pending.
func (c *Coordinator) ConfirmBuilt(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, user)
}
