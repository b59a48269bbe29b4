package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/robfig/cron/v3"
)

// Refresher recomputes and caches a season summary
type Refresher interface {
	RefreshSeason(ctx context.Context, season int) (*models.PerformanceStats, error)
}

// Scheduler runs the weekly recap on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	season    func() int
	ctx       context.Context
}

// New creates a scheduler. season reports which season the recap covers.
func New(ctx context.Context, refresher Refresher, season func() int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		refresher: refresher,
		season:    season,
		ctx:       ctx,
	}
}

// RegisterRecap schedules the season recap. The schedule has a seconds field,
// e.g. "0 0 9 * * 2" for Tuesdays at 09:00.
func (s *Scheduler) RegisterRecap(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.recapTask); err != nil {
		return fmt.Errorf("register recap task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	fmt.Println("✓ Scheduler started")
}

// Stop stops the scheduler and waits for a running recap to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	fmt.Println("✓ Scheduler stopped")
}

// RunRecapNow runs the recap immediately and returns the report
func (s *Scheduler) RunRecapNow() (string, error) {
	season := s.season()
	stats, err := s.refresher.RefreshSeason(s.ctx, season)
	if err != nil {
		return "", fmt.Errorf("recap season %d: %w", season, err)
	}
	return FormatRecap(stats), nil
}

func (s *Scheduler) recapTask() {
	fmt.Println("[Recap] running weekly recap")
	report, err := s.RunRecapNow()
	if err != nil {
		fmt.Printf("[Recap] ❌ %v\n", err)
		return
	}
	fmt.Print(report)
}

// FormatRecap renders a season summary as a console report
func FormatRecap(stats *models.PerformanceStats) string {
	var b strings.Builder

	o := stats.Overall
	fmt.Fprintf(&b, "📊 Season %d recap", stats.Season)
	if o.TotalGames > 0 {
		fmt.Fprintf(&b, " (weeks %d-%d)", o.FirstWeek, o.LatestWeek)
	}
	b.WriteString("\n")

	if o.TotalGames == 0 {
		b.WriteString("  no settled games yet\n")
		return b.String()
	}

	fmt.Fprintf(&b, "  Winners: %d/%d (%.1f%%), margin MAE %.2f\n",
		o.CorrectPredictions, o.TotalGames, o.WinAccuracy, o.AvgMarginError)

	l := stats.Lines
	fmt.Fprintf(&b, "  ATS: AI %s (%.1f%%), Vegas %s (%.1f%%), break-even %.2f%%\n",
		l.AIRecord, l.AIRecord.WinPct(), l.VegasRecord, l.VegasRecord.WinPct(), l.BreakEvenPct)
	fmt.Fprintf(&b, "  O/U: %s\n", l.TotalsRecord)
	fmt.Fprintf(&b, "  AI picks at the Vegas line: %s, units at -110: %s\n", l.AIPicks, l.AIUnits)
	fmt.Fprintf(&b, "  Closer to the final margin: AI %d, Vegas %d\n", l.AICloser, l.VegasCloser)

	v := stats.Versus
	fmt.Fprintf(&b, "  AI vs Vegas: %d-%d-%d (AI %.1f%%, Vegas %.1f%%)\n",
		v.AIWins, v.VegasWins, v.Ties, v.AIPercentage, v.VegasPercentage)

	return b.String()
}
