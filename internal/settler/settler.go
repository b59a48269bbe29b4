package settler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/cache"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/performance"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/providers/espn"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/publisher"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/retry"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/store"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/settlement"
	"github.com/google/uuid"
)

// ScoreSource supplies scoreboard observations
type ScoreSource interface {
	FetchScores(ctx context.Context, date time.Time) ([]espn.Update, error)
}

// Broadcaster pushes settlements to connected dashboards
type Broadcaster interface {
	BroadcastSettlement(event *models.SettlementEvent)
}

// TeamNormalizer maps scoreboard abbreviations to the ones games are stored under
type TeamNormalizer interface {
	Normalize(abbr string) (string, bool)
}

// Config holds the settler's collaborators. Scores, Publisher, Broadcaster
// and Cache are optional.
type Config struct {
	Store       store.Store
	Scores      ScoreSource
	Publisher   publisher.Publisher
	Broadcaster Broadcaster
	Cache       cache.SummaryCache
	Teams       TeamNormalizer
	Retry       *retry.Policy
	LockWindow  time.Duration
	Now         func() time.Time
}

// Settler ingests final scores and settles every outstanding prediction
type Settler struct {
	store       store.Store
	scores      ScoreSource
	publisher   publisher.Publisher
	broadcaster Broadcaster
	cache       cache.SummaryCache
	teams       TeamNormalizer
	retry       *retry.Policy
	lockWindow  time.Duration
	now         func() time.Time

	// one cycle at a time; the poller and the API can both trigger one
	runMu sync.Mutex

	reportMu   sync.RWMutex
	lastReport *CycleReport
}

// CycleReport summarizes one settlement cycle
type CycleReport struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	ScoresUpdated int       `json:"scores_updated"`
	SpreadsLocked int       `json:"spreads_locked"`
	Settled       int       `json:"settled"`
	Failed        int       `json:"failed"`
	Seasons       []int     `json:"seasons,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// New creates a settler
func New(cfg Config) *Settler {
	s := &Settler{
		store:       cfg.Store,
		scores:      cfg.Scores,
		publisher:   cfg.Publisher,
		broadcaster: cfg.Broadcaster,
		cache:       cfg.Cache,
		teams:       cfg.Teams,
		retry:       cfg.Retry,
		lockWindow:  cfg.LockWindow,
		now:         cfg.Now,
	}

	if s.publisher == nil {
		s.publisher = publisher.NoopPublisher{}
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.retry == nil {
		s.retry = retry.NewPolicy(3, 2*time.Second)
	}
	if s.lockWindow <= 0 {
		s.lockWindow = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Poll is the poller entry point; errors are logged, never returned
func (s *Settler) Poll(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		fmt.Printf("[Settlement] error: %v\n", err)
	}
}

// RunOnce runs a full cycle: ingest scores, settle pending predictions,
// refresh summaries for every season touched
func (s *Settler) RunOnce(ctx context.Context) (report *CycleReport, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report = &CycleReport{StartedAt: s.now().UTC()}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in settlement cycle: %v", r)
			fmt.Printf("[Settlement] PANIC: %v\n", r)
		}
		if err != nil {
			report.Error = err.Error()
		}
		report.FinishedAt = s.now().UTC()
		s.setReport(report)
	}()

	if s.scores != nil {
		updated, locked, err := s.Ingest(ctx)
		if err != nil {
			// stored scores can still be settled
			fmt.Printf("[Settlement] score ingest failed: %v\n", err)
		}
		report.ScoresUpdated, report.SpreadsLocked = updated, locked
	}

	settled, failed, seasons, err := s.SettlePending(ctx)
	report.Settled, report.Failed, report.Seasons = settled, failed, seasons
	if err != nil {
		return report, err
	}

	for _, season := range seasons {
		if _, err := s.RefreshSeason(ctx, season); err != nil {
			fmt.Printf("[Settlement] refresh season %d: %v\n", season, err)
		}
	}

	return report, nil
}

// Ingest pulls the current scoreboard and applies it to stored games
func (s *Settler) Ingest(ctx context.Context) (updated, locked int, err error) {
	var updates []espn.Update
	err = s.retry.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		updates, fetchErr = s.scores.FetchScores(ctx, time.Time{})

		var statusErr *espn.StatusError
		if errors.As(fetchErr, &statusErr) && !statusErr.Temporary() {
			return retry.Permanent(fetchErr)
		}
		return fetchErr
	})
	if err != nil {
		return 0, 0, fmt.Errorf("fetch scoreboard: %w", err)
	}

	now := s.now()
	for _, u := range updates {
		update := u.ScoreUpdate
		update.HomeTeam = s.normalize(update.HomeTeam)
		update.AwayTeam = s.normalize(update.AwayTeam)

		change, err := s.store.ApplyScoreUpdate(ctx, update, s.lockWindow, now)
		if err != nil {
			fmt.Printf("[Settlement] apply %s@%s: %v\n", update.AwayTeam, update.HomeTeam, err)
			continue
		}
		if !change.Found {
			continue
		}

		if change.SpreadLocked {
			locked++
			fmt.Printf("  🔒 Locked spread for %s@%s: %s\n",
				update.AwayTeam, update.HomeTeam, settlement.FormatSpread(*update.CurrentSpread))
		}
		if change.ScoreUpdated {
			updated++
			fmt.Printf("  ✓ Updated %s %d @ %s %d\n",
				update.AwayTeam, *update.AwayScore, update.HomeTeam, *update.HomeScore)
		}
	}

	if updated > 0 || locked > 0 {
		fmt.Printf("[Settlement] Updated %d scores, locked %d spreads\n", updated, locked)
	}
	return updated, locked, nil
}

func (s *Settler) normalize(abbr string) string {
	if s.teams == nil {
		return abbr
	}
	canonical, _ := s.teams.Normalize(abbr)
	return canonical
}

// SettlePending records results for every prediction whose game is final.
// A prediction that fails to settle is logged and skipped.
func (s *Settler) SettlePending(ctx context.Context) (settled, failed int, seasons []int, err error) {
	pending, err := s.store.ListPendingSettlements(ctx)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("list pending settlements: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil, nil
	}

	fmt.Printf("[Settlement] Found %d predictions with final scores\n", len(pending))

	touched := make(map[int]bool)
	for _, p := range pending {
		result, event, err := BuildResult(p, s.now())
		if err != nil {
			failed++
			fmt.Printf("[Settlement] ❌ %s: %v\n", p.Prediction.GameID, err)
			continue
		}

		if err := s.store.RecordResult(ctx, result); err != nil {
			if errors.Is(err, store.ErrAlreadySettled) {
				continue
			}
			failed++
			fmt.Printf("[Settlement] ❌ record %s: %v\n", p.Prediction.GameID, err)
			continue
		}

		settled++
		touched[p.Prediction.Season] = true
		s.announce(ctx, event)
	}

	for season := range touched {
		seasons = append(seasons, season)
	}
	sort.Ints(seasons)

	fmt.Printf("[Settlement] Settled %d/%d predictions\n", settled, len(pending))
	return settled, failed, seasons, nil
}

// announce publishes and broadcasts a recorded settlement. Delivery failures
// do not undo the recorded result.
func (s *Settler) announce(ctx context.Context, event *models.SettlementEvent) {
	if err := s.publisher.PublishSettlement(ctx, event); err != nil {
		fmt.Printf("[Settlement] ⚠️  publish %s: %v\n", event.GameID, err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSettlement(event)
	}
}

// RefreshSeason recomputes a season summary and writes it to the cache
func (s *Settler) RefreshSeason(ctx context.Context, season int) (*models.PerformanceStats, error) {
	settled, err := s.store.ListSettled(ctx, season, nil)
	if err != nil {
		return nil, fmt.Errorf("list settled for %d: %w", season, err)
	}

	stats, err := performance.Summarize(season, nil, settled)
	if err != nil {
		return nil, fmt.Errorf("summarize %d: %w", season, err)
	}

	if err := s.cache.WriteSeasonSummary(ctx, stats); err != nil {
		fmt.Printf("[Settlement] ⚠️  cache season %d: %v\n", season, err)
	}
	if err := s.cache.WriteHeadToHead(ctx, &stats.Versus); err != nil {
		fmt.Printf("[Settlement] ⚠️  cache head-to-head %d: %v\n", season, err)
	}
	return stats, nil
}

// LastReport returns the most recent cycle report, or nil before the first run
func (s *Settler) LastReport() *CycleReport {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	return s.lastReport
}

func (s *Settler) setReport(r *CycleReport) {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	s.lastReport = r
}

// BuildResult settles one prediction against its final score
func BuildResult(p models.PendingSettlement, now time.Time) (*models.PredictionResult, *models.SettlementEvent, error) {
	pred := p.Prediction
	g := settlement.GameResult{HomeScore: p.HomeScore, AwayScore: p.AwayScore}
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	winner := g.Winner(pred.HomeTeam, pred.AwayTeam)
	margin := g.Margin()

	result := &models.PredictionResult{
		PredictionID:     pred.PredictionID,
		GameID:           pred.GameID,
		ActualWinner:     winner,
		ActualHomeScore:  g.HomeScore,
		ActualAwayScore:  g.AwayScore,
		ActualMargin:     margin,
		WinCorrect:       winner != settlement.Tie && pred.PredictedWinner == winner,
		HomeScoreError:   absError(pred.PredictedHomeScore, g.HomeScore),
		AwayScoreError:   absError(pred.PredictedAwayScore, g.AwayScore),
		MarginError:      absError(pred.PredictedMargin, margin),
		ResultRecordedAt: now.UTC(),
	}

	event := &models.SettlementEvent{
		EventID:   uuid.New().String(),
		GameID:    pred.GameID,
		Season:    pred.Season,
		Week:      pred.Week,
		HomeTeam:  pred.HomeTeam,
		AwayTeam:  pred.AwayTeam,
		HomeScore: g.HomeScore,
		AwayScore: g.AwayScore,
		Winner:    winner,
		SettledAt: result.ResultRecordedAt,
	}

	if pred.AISpread != nil {
		line, err := settleLine(g, pred, settlement.SourceModelA, *pred.AISpread)
		if err != nil {
			return nil, nil, fmt.Errorf("ai spread: %w", err)
		}
		result.AISpreadResult = line.Outcome
		event.AI = line
	}

	if pred.VegasSpread != nil {
		line, err := settleLine(g, pred, settlement.SourceVegas, *pred.VegasSpread)
		if err != nil {
			return nil, nil, fmt.Errorf("vegas spread: %w", err)
		}
		result.VegasSpreadResult = line.Outcome
		event.Vegas = line
	}

	if pred.VegasTotal != nil {
		outcome, err := settlement.SettleTotal(g, settlement.TotalLine{Source: settlement.SourceVegas, Value: *pred.VegasTotal})
		if err != nil {
			return nil, nil, fmt.Errorf("vegas total: %w", err)
		}
		result.VegasTotalResult = outcome
		event.Total = &outcome
	}

	if pred.AISpread != nil && pred.VegasSpread != nil {
		verdict, err := settlement.CompareLines(g,
			settlement.SpreadLine{Source: settlement.SourceModelA, Value: *pred.AISpread},
			settlement.SpreadLine{Source: settlement.SourceVegas, Value: *pred.VegasSpread},
		)
		if err != nil {
			return nil, nil, fmt.Errorf("head to head: %w", err)
		}
		result.HeadToHead = verdict
	}

	return result, event, nil
}

func settleLine(g settlement.GameResult, pred models.Prediction, source settlement.Source, value float64) (*models.LineSettlement, error) {
	outcome, err := settlement.SettleSpread(g, settlement.SpreadLine{Source: source, Value: value})
	if err != nil {
		return nil, err
	}
	fav, err := settlement.DescribeFavorite(value, pred.HomeTeam, pred.AwayTeam)
	if err != nil {
		return nil, err
	}
	return &models.LineSettlement{
		Spread:   value,
		Favorite: fav.String(),
		Outcome:  outcome,
		Badge:    outcome.Symbol(),
	}, nil
}

func absError(predicted *float64, actual int) *float64 {
	if predicted == nil {
		return nil
	}
	v := math.Abs(*predicted - float64(actual))
	return &v
}
