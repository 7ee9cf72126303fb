package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/services"
	"pricewatch/internal/structures"
	"pricewatch/internal/tracker/interfaces"
)

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
	service     services.TrackerServiceInterface
	fileManager *FileManager
	fetcher     Fetcher
	extractor   *Extractor
	ai          AIExtractor
	search      SearchClient
	matcher     *Matcher
	evaluator   *AlertEvaluator
	cron        *gron.Cron
	opsMu       sync.Mutex

	cycleRunning atomic.Bool

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}

	globalSem chan struct{}
	sourceMu  sync.Mutex
	sourceSem map[string]chan struct{}
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	saveInterval := s.config.Persistence.SaveInterval
	refreshInterval := s.config.Scheduler.Interval

	s.cron.AddFunc(gron.Every(saveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		start := time.Now()
		err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
			return
		}
		s.metrics.ObservePersistenceDuration(time.Since(start))
		s.logger.Infof(providers.TypeApp, "Persisted data to file %s", s.config.Persistence.FilePath)
	})

	s.cron.AddFunc(gron.Every(refreshInterval), func() {
		s.RunDueRefreshes()
	})

	s.cron.Start()

	// First pass right away; a fresh engine should not sit idle for a
	// full interval.
	go s.RunDueRefreshes()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	err := s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
	if err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting engine state to file...")
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

// tryBegin claims the single refresh slot for a product. A product already
// in flight is skipped, not queued.
func (s *Scheduler) tryBegin(productID string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if _, busy := s.inFlight[productID]; busy {
		return false
	}
	s.inFlight[productID] = struct{}{}
	return true
}

func (s *Scheduler) end(productID string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, productID)
}

func (s *Scheduler) sourceSemFor(source string) chan struct{} {
	s.sourceMu.Lock()
	defer s.sourceMu.Unlock()
	sem, ok := s.sourceSem[source]
	if !ok {
		sem = make(chan struct{}, s.config.Scheduler.PerSourceConcurrency)
		s.sourceSem[source] = sem
	}
	return sem
}

// RunDueRefreshes refreshes every due product, bounded by the global and
// per-source concurrency ceilings, and waits for the cycle to finish.
func (s *Scheduler) RunDueRefreshes() {
	if !s.cycleRunning.CompareAndSwap(false, true) {
		s.logger.Warnf(providers.TypeApp, "Previous refresh cycle still running, skipping")
		return
	}
	defer s.cycleRunning.Store(false)

	due := s.service.DueProducts(time.Now())
	if len(due) == 0 {
		return
	}
	s.logger.Infof(providers.TypeApp, "Refresh cycle: %d products due", len(due))

	var wg sync.WaitGroup
	for i := range due {
		p := due[i]
		if !s.tryBegin(p.ID) {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.end(p.ID)

			s.globalSem <- struct{}{}
			defer func() { <-s.globalSem }()

			sem := s.sourceSemFor(p.Source)
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.refresh(context.Background(), &p); err != nil {
				s.logger.Warnf(providers.TypeFetch, "Refresh of %s failed: %s", p.ID, err)
			}
		}()
	}
	wg.Wait()
	s.logger.Infof(providers.TypeApp, "Refresh cycle finished")
}

// RefreshProduct is the manual path. It wakes a dormant product and runs
// the refresh synchronously; a product already in flight is left alone.
func (s *Scheduler) RefreshProduct(ctx context.Context, productID string) error {
	p, ok := s.service.GetProduct(productID)
	if !ok {
		return models.ErrNotFound
	}
	if p.Dormant {
		if err := s.service.WakeProduct(productID); err != nil {
			return err
		}
	}

	if !s.tryBegin(productID) {
		return nil
	}
	defer s.end(productID)
	return s.refresh(ctx, &p)
}

// refresh runs the pipeline for one product: fetch, extract, append to
// history, update tracking state, evaluate alerts.
func (s *Scheduler) refresh(ctx context.Context, p *models.TrackedProduct) error {
	now := time.Now().UTC()

	start := time.Now()
	doc, err := s.fetcher.Fetch(ctx, p.SourceURL)
	s.metrics.ObserveFetchDuration(p.Source, time.Since(start))
	if err != nil {
		kind := FetchKindOf(err)
		s.metrics.IncRefreshTotal(p.Source, string(kind))
		if kind == FetchPermanent {
			// No point walking the backoff ladder for a listing that is
			// gone; park it until someone wakes it.
			if ferr := s.service.RetireProduct(p.ID, err.Error(), now); ferr != nil {
				return ferr
			}
			return err
		}
		if ferr := s.service.FailRun(p.ID, kind == FetchBlocked, err.Error(), now); ferr != nil {
			return ferr
		}
		return err
	}

	listing, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		s.metrics.IncRefreshTotal(p.Source, "extract_error")
		if ferr := s.service.FailRun(p.ID, false, err.Error(), now); ferr != nil {
			return ferr
		}
		return err
	}

	point := models.PricePoint{
		ProductID:  p.ID,
		ObservedAt: doc.FetchedAt,
		PriceMinor: listing.PriceMinor,
		Currency:   listing.Currency,
	}
	result, err := s.service.History().Append(ctx, point)
	if err != nil {
		s.metrics.IncRefreshTotal(p.Source, "history_error")
		if ferr := s.service.FailRun(p.ID, false, err.Error(), now); ferr != nil {
			return ferr
		}
		return err
	}
	if result == models.AppendConflict {
		// First write won; a conflicting re-observation usually means
		// parser drift on this source.
		s.metrics.IncHistoryConflicts()
		s.logger.Errorf(providers.TypeFetch, "Conflicting price for %s at %s: got %d %s, stored point kept",
			p.ID, point.ObservedAt, point.PriceMinor, point.Currency)
	}

	if err := s.service.CompleteRun(p.ID, listing, doc.FetchedAt); err != nil {
		return err
	}

	// A rejected conflicting point is not part of the history and must not
	// drive alerts.
	if result != models.AppendConflict {
		s.evaluator.Evaluate(ctx, point)
	}
	s.metrics.IncRefreshTotal(p.Source, "ok")
	s.logger.Debugf(providers.TypeFetch, "Refreshed %s: %d %s (confidence %.2f, %s)",
		p.ID, listing.PriceMinor, listing.Currency, listing.Confidence, listing.Method)
	return nil
}

// RunComparison rebuilds the cross-platform snapshot for a product from a
// fresh search pass.
func (s *Scheduler) RunComparison(ctx context.Context, productID string) error {
	if s.search == nil {
		return fmt.Errorf("comparison search is not configured")
	}

	p, ok := s.service.GetProduct(productID)
	if !ok {
		return models.ErrNotFound
	}
	if p.CurrentListing == nil {
		return fmt.Errorf("product %s has no listing to compare yet", productID)
	}

	query := SearchQueryFor(ctx, s.ai, p.CurrentListing.Title, p.CurrentListing.Brand)
	raws, err := s.search.Search(ctx, query)
	if err != nil {
		return err
	}

	candidates := s.matcher.SelectCandidates(p.CurrentListing, raws, s.config.Search.MaxCandidates)
	s.service.PutComparison(&models.ComparisonSnapshot{
		ProductID:   productID,
		GeneratedAt: time.Now().UTC(),
		Candidates:  candidates,
	})
	s.logger.Infof(providers.TypeApp, "Comparison for %s: %d of %d candidates kept (query %q)",
		productID, len(candidates), len(raws), query)
	return nil
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	service services.TrackerServiceInterface,
	fileManager *FileManager,
	fetcher Fetcher,
	extractor *Extractor,
	ai AIExtractor,
	search SearchClient,
	evaluator *AlertEvaluator,
) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		metrics:     metrics,
		service:     service,
		fileManager: fileManager,
		fetcher:     fetcher,
		extractor:   extractor,
		ai:          ai,
		search:      search,
		matcher:     NewMatcher(),
		evaluator:   evaluator,
		inFlight:    make(map[string]struct{}),
		globalSem:   make(chan struct{}, config.Scheduler.MaxConcurrency),
		sourceSem:   make(map[string]chan struct{}),
	}
}
