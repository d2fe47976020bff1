package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/leadlens/leadlens/internal/cache"
	"github.com/leadlens/leadlens/internal/metrics"
	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/repository"
	"github.com/leadlens/leadlens/internal/scrapeapi"
)

// Profile service errors.
var (
	ErrInvalidProfileURL  = errors.New("invalid profile URL")
	ErrNoProfileURLs      = errors.New("no profile URLs given")
	ErrTooManyProfiles    = errors.New("too many profile URLs in one request")
	ErrMissingProviderKey = errors.New("provider key is required")
)

const maxFetchBatch = 100

// defaultPollInterval spaces out result polls against the provider.
const defaultPollInterval = 2 * time.Second

// ProfileStore is the persistence surface the fetcher depends on.
type ProfileStore interface {
	FindProfilesByURLs(ctx context.Context, urls []string) ([]*model.Profile, error)
	UpsertProfile(ctx context.Context, profile *model.Profile) error
	ListProfilesByOwner(ctx context.Context, filter repository.ProfileFilter, cursor string, limit int) ([]*model.Profile, string, error)
	ListAllProfiles(ctx context.Context, limit int) ([]*model.Profile, error)
}

// ProfileCache is the cache surface the fetcher depends on.
type ProfileCache interface {
	GetProfile(ctx context.Context, profileURL string) (*model.CachedProfile, error)
	SetProfile(ctx context.Context, profile *model.Profile) error
}

// ProfileExtractor is the provider surface the fetcher depends on.
type ProfileExtractor interface {
	SubmitProfileExtraction(ctx context.Context, apiKey string, profileURLs []string) (string, error)
	FetchResults(ctx context.Context, apiKey, handle string) ([]scrapeapi.Result, error)
}

// inflightFetch tracks one in-progress remote fetch for a profile URL.
// Waiters block on done and re-check the store afterwards.
type inflightFetch struct {
	done chan struct{}
	err  error
}

// ProfileService resolves profile URLs with cache, store and the remote
// provider, in that order, so a URL is fetched remotely at most once.
type ProfileService struct {
	store        ProfileStore
	cache        ProfileCache
	scraper      ProfileExtractor
	metrics      metrics.Recorder
	pollInterval time.Duration

	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store ProfileStore, profileCache ProfileCache, scraper ProfileExtractor, recorder metrics.Recorder) *ProfileService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ProfileService{
		store:        store,
		cache:        profileCache,
		scraper:      scraper,
		metrics:      recorder,
		pollInterval: defaultPollInterval,
		inflight:     make(map[string]*inflightFetch),
	}
}

// FetchProfiles resolves the given profile URLs, returning one profile
// per URL the provider knows about. URLs already present in the cache or
// store are served locally; only the remainder goes to the provider, in
// a single batched call. Concurrent calls fetching the same URL wait on
// each other instead of duplicating the remote fetch.
func (s *ProfileService) FetchProfiles(ctx context.Context, ownerID, providerKey string, urls []string) ([]*model.Profile, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveProfileFetchDuration(time.Since(start))
	}()

	if providerKey == "" {
		return nil, ErrMissingProviderKey
	}

	normalized, err := normalizeProfileURLs(urls)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, ErrNoProfileURLs
	}
	if len(normalized) > maxFetchBatch {
		return nil, ErrTooManyProfiles
	}

	resolved := make(map[string]*model.Profile, len(normalized))

	missing := s.resolveFromCache(ctx, normalized, resolved)
	missing, err = s.resolveFromStore(ctx, missing, resolved)
	if err != nil {
		return nil, err
	}

	s.metrics.IncRemoteCallsSaved(len(resolved))

	missing, err = s.waitForInflight(ctx, missing, resolved)
	if err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		if err := s.fetchRemote(ctx, ownerID, providerKey, missing, resolved); err != nil {
			return nil, err
		}
	}

	out := make([]*model.Profile, 0, len(resolved))
	for _, u := range normalized {
		if p, ok := resolved[u]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// resolveFromCache fills resolved from the redis cache and returns the
// URLs it could not serve. Cache errors degrade to misses.
func (s *ProfileService) resolveFromCache(ctx context.Context, urls []string, resolved map[string]*model.Profile) []string {
	missing := make([]string, 0, len(urls))
	for _, u := range urls {
		cached, err := s.cache.GetProfile(ctx, u)
		if err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				s.metrics.IncProfileCacheMiss()
			}
			missing = append(missing, u)
			continue
		}
		s.metrics.IncProfileCacheHit()
		resolved[u] = cached.ToProfile()
	}
	return missing
}

// resolveFromStore fills resolved with one batched store query and
// returns the URLs still unknown. Store hits are backfilled into cache.
func (s *ProfileService) resolveFromStore(ctx context.Context, urls []string, resolved map[string]*model.Profile) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	found, err := s.store.FindProfilesByURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	for _, p := range found {
		s.metrics.IncProfileStoreHit()
		resolved[p.ProfileURL] = p
		// Best effort. A cold cache just means another store hit later.
		_ = s.cache.SetProfile(ctx, p)
	}
	missing := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := resolved[u]; !ok {
			missing = append(missing, u)
		}
	}
	return missing, nil
}

// waitForInflight registers the URLs this call will fetch and waits for
// URLs another call is already fetching. Waited URLs are re-checked in
// the store; whatever is still absent falls to this call to fetch.
func (s *ProfileService) waitForInflight(ctx context.Context, urls []string, resolved map[string]*model.Profile) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	owned := make([]string, 0, len(urls))
	waited := make(map[string]*inflightFetch)

	s.mu.Lock()
	for _, u := range urls {
		if f, ok := s.inflight[u]; ok {
			waited[u] = f
			continue
		}
		s.inflight[u] = &inflightFetch{done: make(chan struct{})}
		owned = append(owned, u)
	}
	s.mu.Unlock()

	if len(waited) == 0 {
		return owned, nil
	}

	recheck := make([]string, 0, len(waited))
	for u, f := range waited {
		select {
		case <-f.done:
			recheck = append(recheck, u)
		case <-ctx.Done():
			s.release(owned, ctx.Err())
			return nil, ctx.Err()
		}
	}

	remaining, err := s.resolveFromStore(ctx, recheck, resolved)
	if err != nil {
		s.release(owned, err)
		return nil, err
	}
	// The concurrent fetch failed for these. Take them over.
	for _, u := range remaining {
		s.mu.Lock()
		if _, ok := s.inflight[u]; !ok {
			s.inflight[u] = &inflightFetch{done: make(chan struct{})}
			owned = append(owned, u)
		}
		s.mu.Unlock()
	}
	return owned, nil
}

// release completes the registry entries for the given URLs.
func (s *ProfileService) release(urls []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		if f, ok := s.inflight[u]; ok {
			f.err = err
			close(f.done)
			delete(s.inflight, u)
		}
	}
}

// fetchRemote performs the single batched provider call for the URLs
// this call owns, then persists and caches every returned profile.
func (s *ProfileService) fetchRemote(ctx context.Context, ownerID, providerKey string, urls []string, resolved map[string]*model.Profile) (err error) {
	defer func() {
		s.release(urls, err)
	}()

	handle, err := s.scraper.SubmitProfileExtraction(ctx, providerKey, urls)
	if err != nil {
		return fmt.Errorf("failed to submit profile extraction: %w", err)
	}

	results, err := awaitResults(ctx, s.pollInterval, func(ctx context.Context) ([]scrapeapi.Result, error) {
		return s.scraper.FetchResults(ctx, providerKey, handle)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch extraction results: %w", err)
	}

	now := time.Now().UTC()
	for _, res := range results {
		if res.ProfileURL == "" {
			// Provider item without an identifying URL. Nothing to key on.
			continue
		}
		u, nerr := normalizeProfileURL(res.ProfileURL)
		if nerr != nil {
			continue
		}
		profile := &model.Profile{
			ID:           ulid.Make().String(),
			OwnerID:      ownerID,
			ProfileURL:   u,
			Payload:      res.Payload,
			LastSyncedAt: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if uerr := s.store.UpsertProfile(ctx, profile); uerr != nil {
			err = fmt.Errorf("failed to persist profile: %w", uerr)
			return err
		}
		_ = s.cache.SetProfile(ctx, profile)
		s.metrics.IncRemoteProfileFetched()
		resolved[u] = profile
	}
	return nil
}

// ListProfilesInput defines input for listing profiles.
type ListProfilesInput struct {
	OwnerID string
	Tag     string
	Cursor  string
	Limit   int
}

// ListProfilesOutput defines output for listing profiles.
type ListProfilesOutput struct {
	Profiles   []*model.Profile
	NextCursor string
	HasMore    bool
}

// ListProfiles returns a paginated owner-scoped profile listing.
func (s *ProfileService) ListProfiles(ctx context.Context, input ListProfilesInput) (*ListProfilesOutput, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}
	filter := repository.ProfileFilter{
		OwnerID: input.OwnerID,
		Tag:     input.Tag,
	}
	profiles, nextCursor, err := s.store.ListProfilesByOwner(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListProfilesOutput{
		Profiles:   profiles,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// ListAllProfiles returns profiles across all owners, newest first.
func (s *ProfileService) ListAllProfiles(ctx context.Context, limit int) ([]*model.Profile, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListAllProfiles(ctx, limit)
}

// awaitResults polls fetch until the provider reports the results ready.
func awaitResults(ctx context.Context, interval time.Duration, fetch func(context.Context) ([]scrapeapi.Result, error)) ([]scrapeapi.Result, error) {
	for {
		results, err := fetch(ctx)
		if err == nil {
			return results, nil
		}
		if !errors.Is(err, scrapeapi.ErrJobNotReady) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// normalizeProfileURLs normalizes each URL and drops duplicates while
// preserving input order.
func normalizeProfileURLs(urls []string) ([]string, error) {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		u, err := normalizeProfileURL(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

// normalizeProfileURL canonicalizes a profile URL: lowercased scheme and
// host, no query, fragment or trailing slash.
func normalizeProfileURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidProfileURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidProfileURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidProfileURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidProfileURL
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return parsed.String(), nil
}
