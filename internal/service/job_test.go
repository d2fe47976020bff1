package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/repository"
	"github.com/leadlens/leadlens/internal/scrapeapi"
)

type fakeJobStore struct {
	mu          sync.Mutex
	jobs        map[string]*model.Job
	credentials map[string]*model.Credential
}

func newFakeJobStore(creds ...*model.Credential) *fakeJobStore {
	s := &fakeJobStore{
		jobs:        make(map[string]*model.Job),
		credentials: make(map[string]*model.Credential),
	}
	for _, c := range creds {
		s.credentials[c.ID] = c
	}
	return s
}

func (s *fakeJobStore) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *fakeJobStore) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *fakeJobStore) ListJobsByOwner(ctx context.Context, ownerID string, cursor string, limit int) ([]*model.Job, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Job
	for _, job := range s.jobs {
		if job.OwnerID == ownerID {
			clone := *job
			out = append(out, &clone)
		}
	}
	return out, "", nil
}

func (s *fakeJobStore) MarkJobRunning(ctx context.Context, id string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status != model.JobStatusPending {
		return repository.ErrJobFinalized
	}
	job.Status = model.JobStatusRunning
	job.StartedAt = &startedAt
	return nil
}

func (s *fakeJobStore) CompleteJob(ctx context.Context, id string, resultCount int, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status != model.JobStatusRunning {
		return repository.ErrJobFinalized
	}
	job.Status = model.JobStatusCompleted
	job.ResultCount = resultCount
	job.CompletedAt = &completedAt
	return nil
}

func (s *fakeJobStore) FailJob(ctx context.Context, id string, errorText string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status != model.JobStatusRunning {
		return repository.ErrJobFinalized
	}
	job.Status = model.JobStatusFailed
	job.ErrorText = errorText
	job.CompletedAt = &completedAt
	return nil
}

func (s *fakeJobStore) GetCredentialByID(ctx context.Context, id string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.credentials[id]
	if !ok {
		return nil, repository.ErrCredentialNotFound
	}
	return cred, nil
}

func (s *fakeJobStore) ListJobEvents(ctx context.Context, jobID string, limit int) ([]*model.JobEvent, error) {
	return nil, nil
}

type fakeCommentExtractor struct {
	mu        sync.Mutex
	submitErr error
	results   []scrapeapi.Result
	postURLs  []string
}

func (e *fakeCommentExtractor) SubmitCommentExtraction(ctx context.Context, apiKey, postURL string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitErr != nil {
		return "", e.submitErr
	}
	e.postURLs = append(e.postURLs, postURL)
	return "handle-1", nil
}

func (e *fakeCommentExtractor) FetchResults(ctx context.Context, apiKey, handle string) ([]scrapeapi.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results, nil
}

type fakeProfileFetcher struct {
	mu     sync.Mutex
	calls  [][]string
	err    error
	owners []string
}

func (f *fakeProfileFetcher) FetchProfiles(ctx context.Context, ownerID, providerKey string, urls []string) ([]*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	batch := make([]string, len(urls))
	copy(batch, urls)
	f.calls = append(f.calls, batch)
	f.owners = append(f.owners, ownerID)
	profiles := make([]*model.Profile, 0, len(urls))
	for _, u := range urls {
		profiles = append(profiles, &model.Profile{ProfileURL: u})
	}
	return profiles, nil
}

func testCredential(id, ownerID string, active bool) *model.Credential {
	return &model.Credential{
		ID:     id,
		UserID: ownerID,
		Label:  "default",
		Secret: "provider-secret",
		Active: active,
	}
}

func newTestJobService(store *fakeJobStore, extractor *fakeCommentExtractor, profiles *fakeProfileFetcher) *JobService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewJobService(store, extractor, profiles, nil, nil, nil, logger, time.Second)
	svc.pollInterval = time.Millisecond
	return svc
}

// waitForTerminal polls the store until a job reaches a terminal state.
func waitForTerminal(t *testing.T, store *fakeJobStore, id string) *model.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJobByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJobByID() error = %v", err)
		}
		if job.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestCreateJob_ValidationErrors(t *testing.T) {
	t.Parallel()

	ownerID := "owner-1"
	store := newFakeJobStore(
		testCredential("cred-1", ownerID, true),
		testCredential("cred-inactive", ownerID, false),
		testCredential("cred-foreign", "owner-2", true),
	)
	svc := newTestJobService(store, &fakeCommentExtractor{}, &fakeProfileFetcher{})

	post := "https://www.linkedin.com/posts/activity-123"

	tests := []struct {
		name    string
		input   CreateJobInput
		wantErr error
	}{
		{
			name:    "invalid_kind",
			input:   CreateJobInput{Kind: "crawl_everything", CredentialID: "cred-1", Targets: []string{post}},
			wantErr: ErrInvalidJobKind,
		},
		{
			name:    "no_targets",
			input:   CreateJobInput{Kind: "post_comments", CredentialID: "cred-1"},
			wantErr: ErrNoTargets,
		},
		{
			name:    "multiple_targets_for_post_kind",
			input:   CreateJobInput{Kind: "post_comments", CredentialID: "cred-1", Targets: []string{post, post + "4"}},
			wantErr: ErrSingleTargetKind,
		},
		{
			name:    "invalid_target_url",
			input:   CreateJobInput{Kind: "post_comments", CredentialID: "cred-1", Targets: []string{"not a url"}},
			wantErr: ErrInvalidTargetURL,
		},
		{
			name:    "missing_credential",
			input:   CreateJobInput{Kind: "post_comments", Targets: []string{post}},
			wantErr: ErrCredentialRequired,
		},
		{
			name:    "unknown_credential",
			input:   CreateJobInput{Kind: "post_comments", CredentialID: "cred-nope", Targets: []string{post}},
			wantErr: ErrCredentialNotFound,
		},
		{
			name:    "foreign_credential",
			input:   CreateJobInput{Kind: "post_comments", CredentialID: "cred-foreign", Targets: []string{post}},
			wantErr: ErrCredentialNotFound,
		},
		{
			name:    "inactive_credential",
			input:   CreateJobInput{Kind: "post_comments", CredentialID: "cred-inactive", Targets: []string{post}},
			wantErr: ErrCredentialInactive,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.CreateJob(context.Background(), ownerID, test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestCreateJob_CommentExtractionCompletes(t *testing.T) {
	t.Parallel()

	ownerID := "owner-1"
	store := newFakeJobStore(testCredential("cred-1", ownerID, true))
	extractor := &fakeCommentExtractor{
		results: []scrapeapi.Result{
			{ProfileURL: "https://www.linkedin.com/in/a", Payload: json.RawMessage(`{}`)},
			{ProfileURL: "https://www.linkedin.com/in/b", Payload: json.RawMessage(`{}`)},
		},
	}
	svc := newTestJobService(store, extractor, &fakeProfileFetcher{})

	job, err := svc.CreateJob(context.Background(), ownerID, CreateJobInput{
		Kind:         "post_comments",
		CredentialID: "cred-1",
		Targets:      []string{"https://www.linkedin.com/posts/activity-123"},
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("new job status = %s, want pending", job.Status)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != model.JobStatusCompleted {
		t.Fatalf("final status = %s, want completed (error: %s)", final.Status, final.ErrorText)
	}
	if final.ResultCount != 2 {
		t.Errorf("result count = %d, want 2", final.ResultCount)
	}
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Error("timestamps should be set on a finished job")
	}
}

func TestCreateJob_ReturnedJobNotMutatedByExecutor(t *testing.T) {
	t.Parallel()

	ownerID := "owner-1"
	store := newFakeJobStore(testCredential("cred-1", ownerID, true))
	extractor := &fakeCommentExtractor{
		results: []scrapeapi.Result{
			{ProfileURL: "https://www.linkedin.com/in/a", Payload: json.RawMessage(`{}`)},
		},
	}
	svc := newTestJobService(store, extractor, &fakeProfileFetcher{})

	job, err := svc.CreateJob(context.Background(), ownerID, CreateJobInput{
		Kind:         "post_comments",
		CredentialID: "cred-1",
		Targets:      []string{"https://www.linkedin.com/posts/activity-123"},
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	waitForTerminal(t, store, job.ID)

	// The accepted job is a snapshot; the executor works on its own
	// copy, so callers can serialize it without synchronizing.
	if job.Status != model.JobStatusPending {
		t.Errorf("returned job status = %s, want pending", job.Status)
	}
	if job.StartedAt != nil || job.CompletedAt != nil {
		t.Error("returned job should carry no execution timestamps")
	}
	if job.ResultCount != 0 {
		t.Errorf("returned job result count = %d, want 0", job.ResultCount)
	}
}

func TestCreateJob_ZeroResultsIsCompleted(t *testing.T) {
	t.Parallel()

	ownerID := "owner-1"
	store := newFakeJobStore(testCredential("cred-1", ownerID, true))
	svc := newTestJobService(store, &fakeCommentExtractor{}, &fakeProfileFetcher{})

	job, err := svc.CreateJob(context.Background(), ownerID, CreateJobInput{
		Kind:         "post_comments",
		CredentialID: "cred-1",
		Targets:      []string{"https://www.linkedin.com/posts/activity-123"},
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != model.JobStatusCompleted {
		t.Fatalf("final status = %s, want completed", final.Status)
	}
	if final.ResultCount != 0 {
		t.Errorf("result count = %d, want 0", final.ResultCount)
	}
}

func TestCreateJob_ProviderFailureFailsJob(t *testing.T) {
	t.Parallel()

	ownerID := "owner-1"
	store := newFakeJobStore(testCredential("cred-1", ownerID, true))
	extractor := &fakeCommentExtractor{submitErr: errors.New("provider exploded")}
	svc := newTestJobService(store, extractor, &fakeProfileFetcher{})

	job, err := svc.CreateJob(context.Background(), ownerID, CreateJobInput{
		Kind:         "post_comments",
		CredentialID: "cred-1",
		Targets:      []string{"https://www.linkedin.com/posts/activity-123"},
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != model.JobStatusFailed {
		t.Fatalf("final status = %s, want failed", final.Status)
	}
	if final.ErrorText == "" {
		t.Error("failed job should carry error text")
	}
}

func TestCreateJob_ProspectPipelineFeedsCommenters(t *testing.T) {
	t.Parallel()

	ownerID := "owner-1"
	store := newFakeJobStore(testCredential("cred-1", ownerID, true))
	extractor := &fakeCommentExtractor{
		results: []scrapeapi.Result{
			{ProfileURL: "https://www.linkedin.com/in/a"},
			{ProfileURL: "https://www.linkedin.com/in/b"},
			{ProfileURL: "https://www.linkedin.com/in/a"}, // repeat commenter
			{ProfileURL: ""},                              // unattributed comment
		},
	}
	fetcher := &fakeProfileFetcher{}
	svc := newTestJobService(store, extractor, fetcher)

	job, err := svc.CreateJob(context.Background(), ownerID, CreateJobInput{
		Kind:         "post_prospect",
		CredentialID: "cred-1",
		Targets:      []string{"https://www.linkedin.com/posts/activity-123"},
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != model.JobStatusCompleted {
		t.Fatalf("final status = %s, want completed (error: %s)", final.Status, final.ErrorText)
	}
	if final.ResultCount != 2 {
		t.Errorf("result count = %d, want 2", final.ResultCount)
	}

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected 1 profile fetch, got %d", len(fetcher.calls))
	}
	if got := len(fetcher.calls[0]); got != 2 {
		t.Errorf("profile fetch batch size = %d, want 2 distinct commenters", got)
	}
	if fetcher.owners[0] != ownerID {
		t.Errorf("profiles fetched for owner %s, want %s", fetcher.owners[0], ownerID)
	}
}

func TestCreateJob_ProfileDetailsUsesFetcher(t *testing.T) {
	t.Parallel()

	ownerID := "owner-1"
	store := newFakeJobStore(testCredential("cred-1", ownerID, true))
	fetcher := &fakeProfileFetcher{}
	svc := newTestJobService(store, &fakeCommentExtractor{}, fetcher)

	targets := []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/b",
		"https://www.linkedin.com/in/c",
	}
	job, err := svc.CreateJob(context.Background(), ownerID, CreateJobInput{
		Kind:         "profile_details",
		CredentialID: "cred-1",
		Targets:      targets,
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != model.JobStatusCompleted {
		t.Fatalf("final status = %s, want completed (error: %s)", final.Status, final.ErrorText)
	}
	if final.ResultCount != len(targets) {
		t.Errorf("result count = %d, want %d", final.ResultCount, len(targets))
	}
}

func TestGetJob_OwnerScoped(t *testing.T) {
	t.Parallel()

	store := newFakeJobStore()
	store.jobs["job-1"] = &model.Job{ID: "job-1", OwnerID: "owner-1", Status: model.JobStatusPending}
	svc := newTestJobService(store, &fakeCommentExtractor{}, &fakeProfileFetcher{})

	if _, err := svc.GetJob(context.Background(), "owner-1", "job-1"); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := svc.GetJob(context.Background(), "owner-2", "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("foreign lookup error = %v, want ErrJobNotFound", err)
	}
	if _, err := svc.GetJob(context.Background(), "owner-1", "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("missing lookup error = %v, want ErrJobNotFound", err)
	}
}
