/*
scheduler.go - Automated month-end payroll close

PURPOSE:
  Periodically checks whether the previous calendar month has a stored
  report for each configured company and, if not, runs one. This is the
  "close the month" job: drivers' violations and payroll lines for the
  finished month are computed once, then fetched by batch ID.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The closed period is the calendar month before the clock's today
  - Skips companies whose report for that batch already exists
  - A failing company is logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)
  - Companies: Which companies to close

USAGE:
  scheduler := NewCloseScheduler(store, sess, companies, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CreateReport endpoint (manual runs)
  - session/session.go: Session.Run
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/logger"
	"github.com/warp/ride-engine/session"
)

// RunReport loads a company's configuration and records for the period,
// runs the session and stores the report.
func RunReport(
	ctx context.Context,
	store Store,
	sess *session.Session,
	companyID generic.CompanyID,
	period generic.Period,
	drivers []generic.DriverID,
) (*session.Report, error) {
	snap, err := session.LoadSnapshot(ctx, store, companyID)
	if err != nil {
		return nil, err
	}
	batch, err := session.LoadBatch(ctx, store, companyID, period, drivers)
	if err != nil {
		return nil, err
	}
	report, err := sess.Run(ctx, batch, snap)
	if err != nil {
		return nil, err
	}
	if err := store.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// CloseScheduler handles automated month-end report runs.
type CloseScheduler struct {
	Store         Store
	Session       *session.Session
	Companies     []generic.CompanyID
	CheckInterval time.Duration
	Enabled       bool

	// Nil means time.Now.
	Clock func() time.Time

	log    logger.ILogger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCloseScheduler creates a new scheduler.
func NewCloseScheduler(store Store, sess *session.Session, companies []generic.CompanyID, log logger.ILogger) *CloseScheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &CloseScheduler{
		Store:         store,
		Session:       sess,
		Companies:     companies,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log.With(logger.String("component", "close_scheduler")),
	}
}

// Start begins the scheduler.
func (cs *CloseScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled || len(cs.Companies) == 0 {
		cs.log.Info("disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.stop = make(chan struct{})
	cs.wg.Add(1)

	go cs.run(cs.ticker, cs.stop)

	cs.log.Info("started", logger.Duration("interval", cs.CheckInterval), logger.Int("companies", len(cs.Companies)))
}

// Stop stops the scheduler and waits for a running check to finish.
func (cs *CloseScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.log.Info("stopped")
	}
}

func (cs *CloseScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer cs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	cs.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			cs.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow closes the previous month for every company that has no report
// yet and returns how many reports were produced.
func (cs *CloseScheduler) RunNow(ctx context.Context) int {
	now := time.Now()
	if cs.Clock != nil {
		now = cs.Clock()
	}
	period := ClosedPeriod(now)

	processed, skipped := 0, 0
	for _, companyID := range cs.Companies {
		batchID := session.Batch{CompanyID: companyID, Period: period}.ResolvedID()
		log := cs.log.With(logger.String("company_id", string(companyID)), logger.Stringer("period", period))

		_, err := cs.Store.LoadReport(ctx, batchID)
		if err == nil {
			skipped++
			continue
		}
		if !generic.IsNotFound(err) {
			log.Error("failed to check report", logger.Error(err))
			continue
		}

		report, err := RunReport(ctx, cs.Store, cs.Session, companyID, period, nil)
		if err != nil {
			log.Error("failed to close period", logger.Error(err))
			continue
		}
		processed++
		log.Info("closed period",
			logger.String("batch_id", report.BatchID),
			logger.Int("drivers", len(report.PerDriver)),
			logger.Int("errors", len(report.Errors)),
		)
	}

	if processed > 0 || skipped > 0 {
		cs.log.Info("check completed", logger.Int("processed", processed), logger.Int("skipped", skipped))
	}
	return processed
}

// ClosedPeriod returns the calendar month before the one containing now.
func ClosedPeriod(now time.Time) generic.Period {
	first := generic.Date(now.Year(), now.Month(), 1).AddDate(0, -1, 0)
	return generic.MonthPeriod(first.Year(), first.Month())
}
