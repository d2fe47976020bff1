package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leadlens/leadlens/internal/cache"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/repository"
	"github.com/leadlens/leadlens/internal/scrapeapi"
)

type fakeProfileStore struct {
	mu        sync.Mutex
	profiles  map[string]*model.Profile
	findCalls int
	upserts   int
	findErr   error
	upsertErr error
}

func newFakeProfileStore(seed ...*model.Profile) *fakeProfileStore {
	s := &fakeProfileStore{profiles: make(map[string]*model.Profile)}
	for _, p := range seed {
		s.profiles[p.ProfileURL] = p
	}
	return s
}

func (s *fakeProfileStore) FindProfilesByURLs(ctx context.Context, urls []string) ([]*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []*model.Profile
	for _, u := range urls {
		if p, ok := s.profiles[u]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeProfileStore) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts++
	s.profiles[profile.ProfileURL] = profile
	return nil
}

func (s *fakeProfileStore) ListProfilesByOwner(ctx context.Context, filter repository.ProfileFilter, cursor string, limit int) ([]*model.Profile, string, error) {
	return nil, "", nil
}

func (s *fakeProfileStore) ListAllProfiles(ctx context.Context, limit int) ([]*model.Profile, error) {
	return nil, nil
}

func (s *fakeProfileStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

type fakeProfileCache struct {
	mu      sync.Mutex
	entries map[string]*model.Profile
}

func newFakeProfileCache(seed ...*model.Profile) *fakeProfileCache {
	c := &fakeProfileCache{entries: make(map[string]*model.Profile)}
	for _, p := range seed {
		c.entries[p.ProfileURL] = p
	}
	return c
}

func (c *fakeProfileCache) GetProfile(ctx context.Context, profileURL string) (*model.CachedProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[profileURL]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p.ToCachedProfile(), nil
}

func (c *fakeProfileCache) SetProfile(ctx context.Context, profile *model.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[profile.ProfileURL] = profile
	return nil
}

type fakeExtractor struct {
	mu          sync.Mutex
	submits     [][]string
	submitErr   error
	fetchErr    error
	notReady    int
	blockSubmit chan struct{}
}

func (e *fakeExtractor) SubmitProfileExtraction(ctx context.Context, apiKey string, urls []string) (string, error) {
	if e.blockSubmit != nil {
		select {
		case <-e.blockSubmit:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitErr != nil {
		return "", e.submitErr
	}
	batch := make([]string, len(urls))
	copy(batch, urls)
	e.submits = append(e.submits, batch)
	return "handle-1", nil
}

func (e *fakeExtractor) FetchResults(ctx context.Context, apiKey, handle string) ([]scrapeapi.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fetchErr != nil {
		return nil, e.fetchErr
	}
	if e.notReady > 0 {
		e.notReady--
		return nil, scrapeapi.ErrJobNotReady
	}
	if len(e.submits) == 0 {
		return nil, nil
	}
	last := e.submits[len(e.submits)-1]
	results := make([]scrapeapi.Result, 0, len(last))
	for _, u := range last {
		results = append(results, scrapeapi.Result{
			ProfileURL: u,
			Payload:    json.RawMessage(`{"name":"someone"}`),
		})
	}
	return results, nil
}

func (e *fakeExtractor) submitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.submits)
}

func newTestProfileService(store *fakeProfileStore, profileCache *fakeProfileCache, extractor ProfileExtractor) *ProfileService {
	svc := NewProfileService(store, profileCache, extractor, nil)
	svc.pollInterval = time.Millisecond
	return svc
}

func seedProfile(url string) *model.Profile {
	now := time.Now().UTC()
	return &model.Profile{
		ID:           "01SEED0000000000000000000" + url[len(url)-1:],
		OwnerID:      "owner-1",
		ProfileURL:   url,
		Payload:      json.RawMessage(`{"name":"cached"}`),
		LastSyncedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestFetchProfiles_OnlyMissingGoRemote(t *testing.T) {
	t.Parallel()

	urlA := "https://www.linkedin.com/in/a"
	urlB := "https://www.linkedin.com/in/b"

	store := newFakeProfileStore(seedProfile(urlA))
	extractor := &fakeExtractor{}
	svc := newTestProfileService(store, newFakeProfileCache(), extractor)

	profiles, err := svc.FetchProfiles(context.Background(), "owner-1", "key", []string{urlA, urlB})
	if err != nil {
		t.Fatalf("FetchProfiles() error = %v", err)
	}

	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if extractor.submitCount() != 1 {
		t.Fatalf("expected 1 remote submit, got %d", extractor.submitCount())
	}
	if got := extractor.submits[0]; len(got) != 1 || got[0] != urlB {
		t.Errorf("remote batch = %v, want [%s]", got, urlB)
	}
	if store.rowCount() != 2 {
		t.Errorf("expected 2 persisted rows, got %d", store.rowCount())
	}
}

func TestFetchProfiles_RemoteBatchSize(t *testing.T) {
	t.Parallel()

	persisted := []string{
		"https://www.linkedin.com/in/p1",
		"https://www.linkedin.com/in/p2",
	}
	missing := []string{
		"https://www.linkedin.com/in/m1",
		"https://www.linkedin.com/in/m2",
		"https://www.linkedin.com/in/m3",
	}

	store := newFakeProfileStore(seedProfile(persisted[0]), seedProfile(persisted[1]))
	extractor := &fakeExtractor{}
	svc := newTestProfileService(store, newFakeProfileCache(), extractor)

	// Duplicates in the input must not inflate the remote batch.
	input := append(append([]string{}, persisted...), missing...)
	input = append(input, missing[0], persisted[0])

	profiles, err := svc.FetchProfiles(context.Background(), "owner-1", "key", input)
	if err != nil {
		t.Fatalf("FetchProfiles() error = %v", err)
	}

	if len(profiles) != 5 {
		t.Fatalf("expected 5 profiles, got %d", len(profiles))
	}
	if extractor.submitCount() != 1 {
		t.Fatalf("expected exactly 1 remote submit, got %d", extractor.submitCount())
	}
	if got := len(extractor.submits[0]); got != len(missing) {
		t.Errorf("remote batch size = %d, want %d", got, len(missing))
	}
}

func TestFetchProfiles_AllResolvedLocally(t *testing.T) {
	t.Parallel()

	urlA := "https://www.linkedin.com/in/a"
	cached := seedProfile(urlA)

	store := newFakeProfileStore()
	extractor := &fakeExtractor{}
	svc := newTestProfileService(store, newFakeProfileCache(cached), extractor)

	profiles, err := svc.FetchProfiles(context.Background(), "owner-1", "key", []string{urlA})
	if err != nil {
		t.Fatalf("FetchProfiles() error = %v", err)
	}

	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if extractor.submitCount() != 0 {
		t.Errorf("cache hit should not reach the provider, got %d submits", extractor.submitCount())
	}
	if store.findCalls != 0 {
		t.Errorf("cache hit should not reach the store, got %d queries", store.findCalls)
	}
}

func TestFetchProfiles_ProviderFailure(t *testing.T) {
	t.Parallel()

	store := newFakeProfileStore()
	extractor := &fakeExtractor{submitErr: errors.New("provider down")}
	svc := newTestProfileService(store, newFakeProfileCache(), extractor)

	_, err := svc.FetchProfiles(context.Background(), "owner-1", "key", []string{"https://www.linkedin.com/in/a"})
	if err == nil {
		t.Fatal("expected error when provider fails")
	}
	if store.rowCount() != 0 {
		t.Errorf("no profiles should be written on failure, got %d", store.rowCount())
	}
}

func TestFetchProfiles_PollsUntilReady(t *testing.T) {
	t.Parallel()

	store := newFakeProfileStore()
	extractor := &fakeExtractor{notReady: 2}
	svc := newTestProfileService(store, newFakeProfileCache(), extractor)

	profiles, err := svc.FetchProfiles(context.Background(), "owner-1", "key", []string{"https://www.linkedin.com/in/a"})
	if err != nil {
		t.Fatalf("FetchProfiles() error = %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
}

func TestFetchProfiles_InputValidation(t *testing.T) {
	t.Parallel()

	svc := newTestProfileService(newFakeProfileStore(), newFakeProfileCache(), &fakeExtractor{})

	tests := []struct {
		name    string
		key     string
		urls    []string
		wantErr error
	}{
		{"no_key", "", []string{"https://example.com/in/a"}, ErrMissingProviderKey},
		{"empty", "key", nil, ErrNoProfileURLs},
		{"bad_scheme", "key", []string{"ftp://example.com/in/a"}, ErrInvalidProfileURL},
		{"not_a_url", "key", []string{"://"}, ErrInvalidProfileURL},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.FetchProfiles(context.Background(), "owner-1", test.key, test.urls)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestFetchProfiles_ConcurrentCallsShareOneFetch(t *testing.T) {
	t.Parallel()

	url := "https://www.linkedin.com/in/shared"
	store := newFakeProfileStore()
	release := make(chan struct{})
	extractor := &fakeExtractor{blockSubmit: release}
	svc := newTestProfileService(store, newFakeProfileCache(), extractor)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.FetchProfiles(context.Background(), "owner-1", "key", []string{url})
			results[i] = err
		}(i)
	}

	// Give both calls time to reach the registry, then let them go.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if got := extractor.submitCount(); got != 1 {
		t.Errorf("expected 1 remote submit across concurrent calls, got %d", got)
	}
}

func TestFetchProfiles_DropsResultsWithoutURL(t *testing.T) {
	t.Parallel()

	store := newFakeProfileStore()
	extractor := &anonymousResultExtractor{}
	svc := newTestProfileService(store, newFakeProfileCache(), extractor)

	profiles, err := svc.FetchProfiles(context.Background(), "owner-1", "key", []string{"https://www.linkedin.com/in/a"})
	if err != nil {
		t.Fatalf("FetchProfiles() error = %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("results without a profile URL should be dropped, got %d", len(profiles))
	}
	if store.rowCount() != 0 {
		t.Errorf("nothing should be persisted, got %d rows", store.rowCount())
	}
}

// anonymousResultExtractor returns items the provider could not attribute.
type anonymousResultExtractor struct{}

func (e *anonymousResultExtractor) SubmitProfileExtraction(ctx context.Context, apiKey string, urls []string) (string, error) {
	return "handle-1", nil
}

func (e *anonymousResultExtractor) FetchResults(ctx context.Context, apiKey, handle string) ([]scrapeapi.Result, error) {
	return []scrapeapi.Result{{Payload: json.RawMessage(`{"comment":"nice"}`)}}, nil
}

func TestNormalizeProfileURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "https://www.linkedin.com/in/jane", "https://www.linkedin.com/in/jane", false},
		{"trailing_slash", "https://www.linkedin.com/in/jane/", "https://www.linkedin.com/in/jane", false},
		{"query_stripped", "https://www.linkedin.com/in/jane?ref=feed", "https://www.linkedin.com/in/jane", false},
		{"fragment_stripped", "https://www.linkedin.com/in/jane#about", "https://www.linkedin.com/in/jane", false},
		{"host_lowercased", "https://WWW.LinkedIn.com/in/Jane", "https://www.linkedin.com/in/Jane", false},
		{"whitespace", "  https://www.linkedin.com/in/jane  ", "https://www.linkedin.com/in/jane", false},
		{"empty", "", "", true},
		{"no_host", "https://", "", true},
		{"bad_scheme", "mailto:jane@example.com", "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeProfileURL(test.in)
			if (err != nil) != test.wantErr {
				t.Fatalf("normalizeProfileURL(%q) error = %v, wantErr %v", test.in, err, test.wantErr)
			}
			if got != test.want {
				t.Errorf("normalizeProfileURL(%q) = %q, want %q", test.in, got, test.want)
			}
		})
	}
}
