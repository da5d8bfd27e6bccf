// Package batch orchestrates concurrent conversion of many uploaded files
// with per-file failure isolation and pollable progress.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/olaria/ddlconv/pkg/dedup"
	"github.com/olaria/ddlconv/pkg/metrics"
)

// Status is the lifecycle state of a job. Transitions are one-way.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
)

// File is one uploaded input queued for conversion.
type File struct {
	Name string
	Data []byte
}

// Result describes a successful single-file conversion.
type Result struct {
	File           string `json:"file"`
	TableName      string `json:"tableName"`
	ColumnCount    int    `json:"columnCount"`
	DictionaryPath string `json:"dictionaryPath"`
	ConfigPath     string `json:"configPath"`
}

// FileError is a per-file failure. One bad file never aborts its batch.
type FileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Job is a point-in-time snapshot of a batch. Slices are copies; callers may
// retain them.
type Job struct {
	ID             string      `json:"id"`
	Status         Status      `json:"status"`
	TotalFiles     int         `json:"totalFiles"`
	CompletedCount int         `json:"completedCount"`
	Skipped        []string    `json:"skipped,omitempty"`
	Results        []Result    `json:"results"`
	Errors         []FileError `json:"errors"`
	CreatedAt      time.Time   `json:"createdAt"`
	FinishedAt     time.Time   `json:"finishedAt,omitzero"`
}

// Processor converts one file. Implementations must be safe for concurrent
// use.
type Processor interface {
	Process(ctx context.Context, name string, data []byte) (Result, error)
}

type job struct {
	mu   sync.Mutex
	snap Job
}

type Config struct {
	Logger         *slog.Logger
	Clock          clockwork.Clock
	Dedup          dedup.Store
	Processor      Processor
	MaxConcurrency int
	Retention      time.Duration
	OnResult       func(Result)
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Processor == nil {
		return fmt.Errorf("processor is required")
	}
	if c.Dedup == nil {
		return fmt.Errorf("dedup store is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
	return nil
}

// Registry tracks batch jobs from submission to eviction.
type Registry struct {
	log       *slog.Logger
	clock     clockwork.Clock
	dedup     dedup.Store
	processor Processor
	limit     int
	retention time.Duration
	onResult  func(Result)

	mu      sync.RWMutex
	jobs    map[string]*job
	baseCtx context.Context
}

func NewRegistry(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate batch config: %w", err)
	}
	return &Registry{
		log:       cfg.Logger,
		clock:     cfg.Clock,
		dedup:     cfg.Dedup,
		processor: cfg.Processor,
		limit:     cfg.MaxConcurrency,
		retention: cfg.Retention,
		onResult:  cfg.OnResult,
		jobs:      make(map[string]*job),
		baseCtx:   context.Background(),
	}, nil
}

// Start binds worker goroutines to ctx and launches the eviction loop. Jobs
// submitted after ctx is canceled fail their files with the context error.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	go r.evictLoop(ctx)
}

func (r *Registry) evictLoop(ctx context.Context) {
	ticker := r.clock.NewTicker(r.retention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.evict()
		}
	}
}

// evict drops completed jobs older than the retention window. Running jobs
// are never evicted.
func (r *Registry) evict() {
	cutoff := r.clock.Now().Add(-r.retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, j := range r.jobs {
		j.mu.Lock()
		expired := j.snap.Status == StatusCompleted && j.snap.FinishedAt.Before(cutoff)
		j.mu.Unlock()
		if expired {
			delete(r.jobs, id)
			r.log.Debug("batch: evicted completed job", "job", id)
		}
	}
}

// Submit registers a new job for the given files and returns its ID
// immediately. Files whose content was already processed are excluded up
// front and reported in the job's Skipped list. Accepted files are recorded
// against the dedup store at submission so a concurrent re-upload of the
// same content is also skipped.
func (r *Registry) Submit(files []File) string {
	var accepted []File
	var skipped []string
	for _, f := range files {
		if r.dedup.ShouldSkip(f.Data) {
			skipped = append(skipped, f.Name)
			metrics.BatchFilesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		r.dedup.Record(f.Data, f.Name)
		accepted = append(accepted, f)
	}

	j := &job{snap: Job{
		ID:         uuid.NewString(),
		Status:     StatusRunning,
		TotalFiles: len(accepted),
		Skipped:    skipped,
		Results:    []Result{},
		Errors:     []FileError{},
		CreatedAt:  r.clock.Now(),
	}}

	r.mu.Lock()
	r.jobs[j.snap.ID] = j
	ctx := r.baseCtx
	r.mu.Unlock()

	metrics.JobsActive.Inc()
	r.log.Info("batch: job submitted",
		"job", j.snap.ID, "files", len(accepted), "skipped", len(skipped))

	go r.run(ctx, j, accepted)
	return j.snap.ID
}

func (r *Registry) run(ctx context.Context, j *job, files []File) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)

	for _, f := range files {
		g.Go(func() error {
			result, err := r.processor.Process(ctx, f.Name, f.Data)

			j.mu.Lock()
			j.snap.CompletedCount++
			if err != nil {
				j.snap.Errors = append(j.snap.Errors, FileError{File: f.Name, Message: err.Error()})
			} else {
				j.snap.Results = append(j.snap.Results, result)
			}
			j.mu.Unlock()

			if err != nil {
				r.dedup.SetOutcome(f.Data, dedup.OutcomeFailed)
				metrics.BatchFilesTotal.WithLabelValues("error").Inc()
				r.log.Warn("batch: file failed", "job", j.snap.ID, "file", f.Name, "error", err)
				return nil
			}
			r.dedup.SetOutcome(f.Data, dedup.OutcomeConverted)
			metrics.BatchFilesTotal.WithLabelValues("ok").Inc()
			if r.onResult != nil {
				r.onResult(result)
			}
			return nil
		})
	}
	_ = g.Wait()

	j.mu.Lock()
	j.snap.Status = StatusCompleted
	j.snap.FinishedAt = r.clock.Now()
	done := j.snap.CompletedCount
	failed := len(j.snap.Errors)
	j.mu.Unlock()

	metrics.JobsActive.Dec()
	r.log.Info("batch: job completed", "job", j.snap.ID, "files", done, "failed", failed)
}

// Status returns a snapshot of the job, or false when the ID is unknown or
// already evicted.
func (r *Registry) Status(jobID string) (Job, bool) {
	r.mu.RLock()
	j, ok := r.jobs[jobID]
	r.mu.RUnlock()
	if !ok {
		return Job{}, false
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	snap := j.snap
	snap.Skipped = slices.Clone(j.snap.Skipped)
	snap.Results = slices.Clone(j.snap.Results)
	snap.Errors = slices.Clone(j.snap.Errors)
	return snap, true
}
