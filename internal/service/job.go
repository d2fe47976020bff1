package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/leadlens/leadlens/internal/events"
	"github.com/leadlens/leadlens/internal/metrics"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/repository"
	"github.com/leadlens/leadlens/internal/scrapeapi"
)

// Job service errors.
var (
	ErrInvalidJobKind     = errors.New("invalid job kind")
	ErrNoTargets          = errors.New("job requires at least one target URL")
	ErrTooManyTargets     = errors.New("too many target URLs")
	ErrSingleTargetKind   = errors.New("job kind takes exactly one target URL")
	ErrInvalidTargetURL   = errors.New("invalid target URL")
	ErrCredentialRequired = errors.New("credential_id is required")
	ErrJobNotFound        = errors.New("job not found")
)

const (
	maxJobTargets = 100
	maxErrorText  = 512

	defaultExecTimeout = 5 * time.Minute
)

// JobStore is the persistence surface the job service depends on.
// *repository.Repository satisfies it.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobByID(ctx context.Context, id string) (*model.Job, error)
	ListJobsByOwner(ctx context.Context, ownerID string, cursor string, limit int) ([]*model.Job, string, error)
	MarkJobRunning(ctx context.Context, id string, startedAt time.Time) error
	CompleteJob(ctx context.Context, id string, resultCount int, completedAt time.Time) error
	FailJob(ctx context.Context, id string, errorText string, completedAt time.Time) error
	GetCredentialByID(ctx context.Context, id string) (*model.Credential, error)
	ListJobEvents(ctx context.Context, jobID string, limit int) ([]*model.JobEvent, error)
}

// CommentExtractor is the provider surface for comment jobs.
type CommentExtractor interface {
	SubmitCommentExtraction(ctx context.Context, apiKey, postURL string) (string, error)
	FetchResults(ctx context.Context, apiKey, handle string) ([]scrapeapi.Result, error)
}

// ProfileFetcher deduplicates profile fetches. Satisfied by ProfileService.
type ProfileFetcher interface {
	FetchProfiles(ctx context.Context, ownerID, providerKey string, urls []string) ([]*model.Profile, error)
}

// ActivityPublisher records job lifecycle events on the activity stream.
type ActivityPublisher interface {
	PublishAsync(event events.JobEventPayload)
}

// WebhookNotifier enqueues webhook deliveries for terminal jobs.
type WebhookNotifier interface {
	PublishJobEvent(ctx context.Context, job *model.Job) error
}

// JobService creates scraping jobs and drives their lifecycle.
type JobService struct {
	store        JobStore
	scraper      CommentExtractor
	profiles     ProfileFetcher
	activity     ActivityPublisher
	webhooks     WebhookNotifier
	metrics      metrics.Recorder
	logger       *slog.Logger
	execTimeout  time.Duration
	pollInterval time.Duration
}

// NewJobService creates a new JobService. activity and webhooks may be
// nil, in which case the corresponding notifications are skipped.
func NewJobService(store JobStore, scraper CommentExtractor, profiles ProfileFetcher, activity ActivityPublisher, webhooks WebhookNotifier, recorder metrics.Recorder, logger *slog.Logger, execTimeout time.Duration) *JobService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if execTimeout <= 0 {
		execTimeout = defaultExecTimeout
	}
	return &JobService{
		store:        store,
		scraper:      scraper,
		profiles:     profiles,
		activity:     activity,
		webhooks:     webhooks,
		metrics:      recorder,
		logger:       logger.With("component", "service.job"),
		execTimeout:  execTimeout,
		pollInterval: defaultPollInterval,
	}
}

// CreateJobInput defines input for creating a job.
type CreateJobInput struct {
	Kind         string
	CredentialID string
	Targets      []string
}

// CreateJob validates the request, persists a pending job and starts
// executing it in the background. The pending job is returned
// immediately; callers observe progress via GetJob and the event trail.
func (s *JobService) CreateJob(ctx context.Context, ownerID string, input CreateJobInput) (*model.Job, error) {
	kind := model.JobKind(input.Kind)
	if !kind.IsValid() {
		return nil, ErrInvalidJobKind
	}

	targets, err := validateTargets(kind, input.Targets)
	if err != nil {
		return nil, err
	}

	if input.CredentialID == "" {
		return nil, ErrCredentialRequired
	}
	cred, err := s.store.GetCredentialByID(ctx, input.CredentialID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	if cred.UserID != ownerID {
		return nil, ErrCredentialNotFound
	}
	if !cred.Active {
		return nil, ErrCredentialInactive
	}

	now := time.Now().UTC()
	credentialID := cred.ID
	job := &model.Job{
		ID:           ulid.Make().String(),
		OwnerID:      ownerID,
		CredentialID: &credentialID,
		Kind:         kind,
		Targets:      targets,
		Status:       model.JobStatusPending,
		CreatedAt:    now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.metrics.IncJobCreated(string(kind))
	s.publishActivity(job, "job accepted")

	// The executor mutates its job as it transitions; hand it a copy so
	// the caller can serialize the accepted job without synchronizing.
	jobCopy := *job
	go s.execute(&jobCopy, cred.Secret)

	return job, nil
}

// GetJob retrieves a job owned by the given user.
func (s *JobService) GetJob(ctx context.Context, ownerID, id string) (*model.Job, error) {
	job, err := s.store.GetJobByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListJobsInput defines input for listing jobs.
type ListJobsInput struct {
	OwnerID string
	Cursor  string
	Limit   int
}

// ListJobsOutput defines output for listing jobs.
type ListJobsOutput struct {
	Jobs       []*model.Job
	NextCursor string
	HasMore    bool
}

// ListJobs retrieves a paginated list of jobs, newest first.
func (s *JobService) ListJobs(ctx context.Context, input ListJobsInput) (*ListJobsOutput, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}
	jobs, nextCursor, err := s.store.ListJobsByOwner(ctx, input.OwnerID, input.Cursor, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListJobsOutput{
		Jobs:       jobs,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// ListJobEvents returns the activity trail of a job the user owns.
func (s *JobService) ListJobEvents(ctx context.Context, ownerID, jobID string, limit int) ([]*model.JobEvent, error) {
	if _, err := s.GetJob(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListJobEvents(ctx, jobID, limit)
}

// execute drives one job from pending to a terminal state. It runs in
// its own goroutine with a bounded context; a process crash here leaves
// the job in running, which the status field makes observable.
func (s *JobService) execute(job *model.Job, providerKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.execTimeout)
	defer cancel()

	start := time.Now()

	startedAt := time.Now().UTC()
	if err := s.store.MarkJobRunning(ctx, job.ID, startedAt); err != nil {
		s.logger.Error("failed to mark job running",
			"job_id", job.ID,
			"error", err,
		)
		return
	}
	job.Status = model.JobStatusRunning
	job.StartedAt = &startedAt
	s.publishActivity(job, "job started")

	count, err := s.run(ctx, job, providerKey)
	if err != nil {
		s.fail(ctx, job, err)
		return
	}
	s.complete(ctx, job, count)
	s.metrics.ObserveJobDuration(string(job.Kind), time.Since(start))
}

// run performs the provider work for one job and returns the result count.
func (s *JobService) run(ctx context.Context, job *model.Job, providerKey string) (int, error) {
	switch job.Kind {
	case model.JobKindPostComments:
		results, err := s.extractComments(ctx, providerKey, job.Targets[0])
		if err != nil {
			return 0, err
		}
		return len(results), nil

	case model.JobKindProfileDetails:
		profiles, err := s.profiles.FetchProfiles(ctx, job.OwnerID, providerKey, job.Targets)
		if err != nil {
			return 0, err
		}
		return len(profiles), nil

	case model.JobKindPostProspect:
		results, err := s.extractComments(ctx, providerKey, job.Targets[0])
		if err != nil {
			return 0, err
		}
		commenters := commenterURLs(results)
		if len(commenters) == 0 {
			return 0, nil
		}
		profiles, err := s.profiles.FetchProfiles(ctx, job.OwnerID, providerKey, commenters)
		if err != nil {
			return 0, err
		}
		return len(profiles), nil

	default:
		return 0, ErrInvalidJobKind
	}
}

// extractComments runs one comment extraction round trip.
func (s *JobService) extractComments(ctx context.Context, providerKey, postURL string) ([]scrapeapi.Result, error) {
	handle, err := s.scraper.SubmitCommentExtraction(ctx, providerKey, postURL)
	if err != nil {
		return nil, fmt.Errorf("failed to submit comment extraction: %w", err)
	}
	results, err := awaitResults(ctx, s.pollInterval, func(ctx context.Context) ([]scrapeapi.Result, error) {
		return s.scraper.FetchResults(ctx, providerKey, handle)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch extraction results: %w", err)
	}
	return results, nil
}

// complete marks a job completed and fans out notifications.
func (s *JobService) complete(ctx context.Context, job *model.Job, count int) {
	completedAt := time.Now().UTC()
	if err := s.store.CompleteJob(ctx, job.ID, count, completedAt); err != nil {
		s.logger.Error("failed to complete job",
			"job_id", job.ID,
			"error", err,
		)
		return
	}
	job.Status = model.JobStatusCompleted
	job.ResultCount = count
	job.CompletedAt = &completedAt

	s.metrics.IncJobCompleted(string(job.Kind))
	s.publishActivity(job, "job completed")
	s.notifyWebhooks(ctx, job)

	s.logger.Info("job completed",
		"job_id", job.ID,
		"kind", job.Kind,
		"result_count", count,
	)
}

// fail marks a job failed and fans out notifications.
func (s *JobService) fail(ctx context.Context, job *model.Job, cause error) {
	errText := truncate(cause.Error(), maxErrorText)
	completedAt := time.Now().UTC()
	if err := s.store.FailJob(ctx, job.ID, errText, completedAt); err != nil {
		s.logger.Error("failed to mark job failed",
			"job_id", job.ID,
			"error", err,
		)
		return
	}
	job.Status = model.JobStatusFailed
	job.ErrorText = errText
	job.CompletedAt = &completedAt

	s.metrics.IncJobFailed(string(job.Kind))
	s.publishActivity(job, errText)
	s.notifyWebhooks(ctx, job)

	s.logger.Warn("job failed",
		"job_id", job.ID,
		"kind", job.Kind,
		"error", errText,
	)
}

func (s *JobService) publishActivity(job *model.Job, detail string) {
	if s.activity == nil {
		return
	}
	s.activity.PublishAsync(events.JobEventPayload{
		JobID:       job.ID,
		OwnerID:     job.OwnerID,
		Status:      string(job.Status),
		ResultCount: job.ResultCount,
		Detail:      detail,
		OccurredAt:  time.Now().UnixMilli(),
	})
}

func (s *JobService) notifyWebhooks(ctx context.Context, job *model.Job) {
	if s.webhooks == nil {
		return
	}
	if err := s.webhooks.PublishJobEvent(ctx, job); err != nil {
		s.logger.Warn("failed to enqueue webhook deliveries",
			"job_id", job.ID,
			"error", err,
		)
	}
}

// validateTargets checks target arity and URL shape for a job kind.
func validateTargets(kind model.JobKind, targets []string) ([]string, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if len(targets) > maxJobTargets {
		return nil, ErrTooManyTargets
	}
	if kind != model.JobKindProfileDetails && len(targets) != 1 {
		return nil, ErrSingleTargetKind
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		parsed, err := url.Parse(t)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, ErrInvalidTargetURL
		}
		out = append(out, t)
	}
	return out, nil
}

// commenterURLs collects the distinct profile URLs behind comment items.
func commenterURLs(results []scrapeapi.Result) []string {
	seen := make(map[string]struct{}, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.ProfileURL == "" {
			continue
		}
		if _, ok := seen[r.ProfileURL]; ok {
			continue
		}
		seen[r.ProfileURL] = struct{}{}
		out = append(out, r.ProfileURL)
	}
	return out
}

// truncate clips s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
