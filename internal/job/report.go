package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"PowerPosition/internal/calculator"
	"PowerPosition/internal/clock"
	"PowerPosition/internal/collector"
	"PowerPosition/internal/exporter"
	"PowerPosition/internal/metrics"
	"PowerPosition/internal/model"
	"PowerPosition/internal/notifier"
	"PowerPosition/internal/recorder"
)

const alertRetries = 2

// Alerter delivers failure alerts.
type Alerter interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Deps are the collaborators of a ReportJob. Recorder, Metrics and Alerter are optional.
type Deps struct {
	Collector *collector.Collector
	Exporter  *exporter.Exporter
	Recorder  recorder.Recorder
	Metrics   *metrics.Recorder
	Alerter   Alerter
	Location  *time.Location
	Clock     clock.Clock
	Log       zerolog.Logger
}

// ReportJob produces one intra-day report per trigger.
type ReportJob struct {
	Deps
}

// New validates deps and returns a ReportJob.
func New(deps Deps) (*ReportJob, error) {
	switch {
	case deps.Collector == nil:
		return nil, errors.New("job: collector is required")
	case deps.Exporter == nil:
		return nil, errors.New("job: exporter is required")
	case deps.Location == nil:
		return nil, fmt.Errorf("%w: job: location is required", model.ErrConfiguration)
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics != nil && deps.Collector.OnRetry == nil {
		m := deps.Metrics
		deps.Collector.OnRetry = func(int, error) { m.RecordRetry() }
	}
	deps.Log = deps.Log.With().Str("component", "job").Logger()
	return &ReportJob{Deps: deps}, nil
}

// Run fetches the trades for the trigger's local date, aggregates them and writes
// the report file. Every run is journaled; a failed run writes no file.
func (j *ReportJob) Run(ctx context.Context, trigger time.Time) error {
	started := j.Clock.Now()
	local := trigger.In(j.Location)
	evt := &recorder.RunEvent{
		RunID:      uuid.NewString(),
		Trigger:    trigger.UTC(),
		ReportDate: local.Format(time.DateOnly),
	}
	log := j.Log.With().Str("run_id", evt.RunID).Str("report_date", evt.ReportDate).Logger()

	path, report, err := j.produce(ctx, local, evt)
	evt.Duration = j.Clock.Now().Sub(started)

	if err != nil {
		evt.Status = model.RunFailed
		evt.Error = err.Error()
		j.finish(evt, log)
		j.alert(ctx, evt, log)
		return fmt.Errorf("run %s: %w", evt.RunID, err)
	}

	evt.Status = model.RunSucceeded
	evt.OutputPath = path
	j.finish(evt, log)
	j.Metrics.RecordReport(len(report.Buckets), j.Clock.Now())
	log.Info().
		Str("path", path).
		Int("buckets", len(report.Buckets)).
		Str("total_volume", report.Total().String()).
		Int("attempts", evt.Attempts).
		Dur("duration", evt.Duration).
		Msg("Report written")
	return nil
}

func (j *ReportJob) produce(ctx context.Context, local time.Time, evt *recorder.RunEvent) (string, model.Report, error) {
	trades, attempts, err := j.Collector.Trades(ctx, local)
	evt.Attempts = attempts
	if err != nil {
		return "", model.Report{}, err
	}

	report := calculator.Aggregate(local, trades, j.Location)
	path, err := j.Exporter.Export(report, local)
	if err != nil {
		return "", model.Report{}, fmt.Errorf("export report: %w", err)
	}
	return path, report, nil
}

func (j *ReportJob) finish(evt *recorder.RunEvent, log zerolog.Logger) {
	j.Metrics.RecordRun(evt.Status, evt.Duration)
	if err := j.Recorder.RecordRun(evt); err != nil {
		log.Warn().Err(err).Msg("Record run failed")
	}
}

func (j *ReportJob) alert(ctx context.Context, evt *recorder.RunEvent, log zerolog.Logger) {
	if j.Alerter == nil {
		return
	}
	msg := notifier.FormatRunFailure(Summary(*evt), j.Location)
	// The alert outlives cancellation of the run.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := j.Alerter.SendWithRetry(actx, msg, alertRetries); err != nil {
		log.Error().Err(err).Msg("Send failure alert failed")
	}
}

// Summary converts a journal row into its chat representation.
func Summary(evt recorder.RunEvent) notifier.RunSummary {
	return notifier.RunSummary{
		RunID:      evt.RunID,
		Trigger:    evt.Trigger,
		ReportDate: evt.ReportDate,
		Status:     string(evt.Status),
		Attempts:   evt.Attempts,
		OutputPath: evt.OutputPath,
		Error:      evt.Error,
	}
}
