// Package fetcher loads the connected platforms and the module record a
// settings tab renders. Read failures degrade to an empty state.
package fetcher

import (
	"context"
	"sync"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/backend"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Backend is the part of the backend client the fetcher reads from
type Backend interface {
	ListPlatforms(ctx context.Context, query backend.Query) (*models.PlatformList, error)
	ListModules(ctx context.Context, query backend.Query) (*models.ModuleList, error)
}

// PlatformResults is the outcome of one platform fetch
type PlatformResults struct {
	Results []models.Platform `json:"results"`
	// Stale is set when a newer fetch started before this one completed; stale results are not stored
	Stale bool `json:"-"`
}

// State is a snapshot of the fetcher
type State struct {
	Platforms []models.Platform `json:"platforms"`
	Loading   bool              `json:"loading"`
}

type Fetcher struct {
	backend Backend
	logger  ectologger.Logger

	mu         sync.Mutex
	results    []models.Platform
	loading    bool
	generation uint64
}

func NewFetcher(backend Backend, logger ectologger.Logger) *Fetcher {
	return &Fetcher{
		backend: backend,
		logger:  logger,
		results: []models.Platform{},
	}
}

// FetchPlatforms retrieves the community's platforms of one type. Without a
// community or platform it does nothing. Errors are logged and leave an empty result.
func (f *Fetcher) FetchPlatforms(ctx context.Context, communityID string, platformName models.PlatformName) PlatformResults {
	if communityID == "" || platformName == "" {
		metrics.PlatformFetchesTotal.WithLabelValues(string(platformName), "skipped").Inc()
		return PlatformResults{Results: []models.Platform{}}
	}

	ctx, span := tracing.StartSpan(ctx, "Fetcher.FetchPlatforms")
	defer span.End()

	f.mu.Lock()
	f.generation++
	generation := f.generation
	f.results = []models.Platform{}
	f.loading = true
	f.mu.Unlock()

	list, err := f.backend.ListPlatforms(ctx, backend.Query{Name: string(platformName), Community: communityID})

	results := []models.Platform{}
	outcome := "success"
	if err != nil {
		outcome = "error"
		f.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"community_id": communityID,
			"platform":     platformName,
		}).Error("failed to fetch platforms")
	} else if list != nil && list.Results != nil {
		results = list.Results
	}
	metrics.PlatformFetchesTotal.WithLabelValues(string(platformName), outcome).Inc()

	f.mu.Lock()
	defer f.mu.Unlock()

	if generation != f.generation {
		metrics.StaleFetchesDiscarded.WithLabelValues(string(platformName)).Inc()
		f.logger.WithContext(ctx).WithField("platform", platformName).Debug("discarding stale platform fetch")
		return PlatformResults{Results: results, Stale: true}
	}

	f.results = results
	f.loading = false
	return PlatformResults{Results: results}
}

// FetchModule returns the first module named moduleName that belongs to the
// community, nil when there is none or the read fails.
func (f *Fetcher) FetchModule(ctx context.Context, communityID string, moduleName string) *models.Module {
	if communityID == "" {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "Fetcher.FetchModule")
	defer span.End()

	list, err := f.backend.ListModules(ctx, backend.Query{Name: moduleName, Community: communityID})
	if err != nil {
		f.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"community_id": communityID,
			"module":       moduleName,
		}).Error("failed to fetch module")
		return nil
	}
	if list == nil {
		return nil
	}

	module := ectolinq.Find(list.Results, func(m models.Module) bool {
		return m.Community == communityID
	})
	if module.Community != communityID {
		return nil
	}
	return &module
}

// Reset clears results and supersedes any in-flight fetch
func (f *Fetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	f.results = []models.Platform{}
	f.loading = false
}

// State returns a copy of the current results
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	platforms := make([]models.Platform, len(f.results))
	copy(platforms, f.results)
	return State{Platforms: platforms, Loading: f.loading}
}
