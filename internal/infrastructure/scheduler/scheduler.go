package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("provisioning scheduler is not running")
	ErrJobQueueFull        = errors.New("provisioning queue is full")
	// ErrJobInFlight means the application is already queued, running or waiting to retry
	ErrJobInFlight   = errors.New("application already has a provisioning job in flight")
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
	// ErrNotRetryable marks executor failures that another attempt cannot fix
	ErrNotRetryable = errors.New("not retryable")
)

// Job tracks provisioning attempts for one approved application
type Job struct {
	ApplicationID uuid.UUID
	// Attempts counts finished executions, successful or not
	Attempts   int
	MaxRetries int
	LastError  error
	StudentID  string
}

// NewJob creates a job that may run 1+maxRetries times
func NewJob(applicationID uuid.UUID, maxRetries int) *Job {
	return &Job{ApplicationID: applicationID, MaxRetries: maxRetries}
}

// Retries is the number of attempts after the first
func (j *Job) Retries() int {
	return max(j.Attempts-1, 0)
}

// record stores the outcome of one execution
func (j *Job) record(studentID string, err error) {
	j.Attempts++
	j.StudentID = studentID
	j.LastError = err
}

// retryable reports whether the last failure deserves another attempt
func (j *Job) retryable() bool {
	return j.LastError != nil &&
		!errors.Is(j.LastError, ErrNotRetryable) &&
		j.Attempts <= j.MaxRetries
}

// backoff doubles base for every retry already spent, capped at limit
func (j *Job) backoff(base, limit time.Duration) time.Duration {
	d := base
	for i := 1; i < j.Attempts && d < limit; i++ {
		d *= 2
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// JobExecutor runs one provisioning attempt and returns the student id
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) (string, error)
}

// SchedulerConfig holds worker pool settings
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 2,
		QueueSize:         100,
		JobTimeout:        30 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        10 * time.Second,
		MaxRetryDelay:     5 * time.Minute,
	}
}

// Validate checks the configuration
func (c SchedulerConfig) Validate() error {
	switch {
	case c.MaxConcurrentJobs <= 0:
		return fmt.Errorf("%w: max concurrent jobs must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	case c.JobTimeout <= 0:
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	case c.RetryAttempts < 0, c.RetryDelay < 0, c.MaxRetryDelay < 0:
		return fmt.Errorf("%w: retry settings cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Scheduler runs provisioning jobs on a fixed worker pool. An application
// holds its slot from submission until its last attempt, including the time
// spent waiting for a retry, so the sweeper cannot queue it twice.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	queue chan *Job
	wg    sync.WaitGroup

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	inFlight map[uuid.UUID]struct{}
	waiting  map[uuid.UUID]*time.Timer
}

// NewScheduler validates config and creates a stopped scheduler
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger.Named("provisioning"),
		queue:    make(chan *Job, config.QueueSize),
		inFlight: make(map[uuid.UUID]struct{}),
		waiting:  make(map[uuid.UUID]*time.Timer),
	}, nil
}

// Start launches the workers. Starting twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(s.config.MaxConcurrentJobs)
	for i := range s.config.MaxConcurrentJobs {
		go s.work(ctx, i)
	}
	s.logger.Info("Provisioning scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running attempts and pending retries, then waits for the
// workers. Dropped applications are found again by the next sweep.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	for id, timer := range s.waiting {
		timer.Stop()
		delete(s.waiting, id)
		delete(s.inFlight, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Provisioning scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Provisioning scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler accepts jobs
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SubmitJob claims the application's slot and queues the job
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	if _, ok := s.inFlight[job.ApplicationID]; ok {
		return ErrJobInFlight
	}
	select {
	case s.queue <- job:
		s.inFlight[job.ApplicationID] = struct{}{}
		s.logger.Debug("Provisioning queued", zap.Stringer("application_id", job.ApplicationID))
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleProvisioning queues a provisioning job for one application
func (s *Scheduler) ScheduleProvisioning(applicationID uuid.UUID) error {
	return s.SubmitJob(NewJob(applicationID, s.config.RetryAttempts))
}

// InFlight returns the number of applications holding a slot
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

func (s *Scheduler) release(id uuid.UUID) {
	s.mu.Lock()
	delete(s.inFlight, id)
	delete(s.waiting, id)
	s.mu.Unlock()
}

// retryLater re-queues the job once its backoff elapses. The worker is free
// in the meantime.
func (s *Scheduler) retryLater(job *Job) {
	delay := job.backoff(s.config.RetryDelay, s.config.MaxRetryDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		delete(s.inFlight, job.ApplicationID)
		return
	}
	s.waiting[job.ApplicationID] = time.AfterFunc(delay, func() { s.requeue(job) })
	s.logger.Info("Provisioning retry scheduled",
		zap.Stringer("application_id", job.ApplicationID),
		zap.Int("attempts", job.Attempts),
		zap.Duration("delay", delay),
	)
}

func (s *Scheduler) requeue(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.waiting[job.ApplicationID]; !ok {
		return
	}
	delete(s.waiting, job.ApplicationID)
	select {
	case s.queue <- job:
	default:
		delete(s.inFlight, job.ApplicationID)
		s.logger.Warn("Provisioning retry dropped, queue full",
			zap.Stringer("application_id", job.ApplicationID))
	}
}

func (s *Scheduler) work(ctx context.Context, worker int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			s.run(ctx, worker, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, worker int, job *Job) {
	log := s.logger.With(
		zap.Int("worker_id", worker),
		zap.Stringer("application_id", job.ApplicationID),
		zap.Int("attempt", job.Attempts+1),
	)

	attemptCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	studentID, err := s.executor.Execute(attemptCtx, job)
	cancel()
	job.record(studentID, err)

	switch {
	case err == nil:
		s.release(job.ApplicationID)
		log.Info("Provisioning completed", zap.String("student_id", studentID))
	case ctx.Err() == nil && job.retryable():
		log.Warn("Provisioning attempt failed", zap.Error(err))
		s.retryLater(job)
	default:
		s.release(job.ApplicationID)
		log.Error("Provisioning abandoned", zap.Error(err))
	}
}
