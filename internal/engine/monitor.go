package engine

import (
	"context"
	"strings"
	"time"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
	"casegen/internal/common/metrics"
)

const (
	maxReportLines = 10
	maxReportTail  = 1000
)

// StatusClient is the slice of the engine client the monitor needs.
type StatusClient interface {
	GetWorkItemStatus(ctx context.Context, workItemID string) (*WorkItemStatus, error)
	FetchReport(ctx context.Context, reportURL string) (string, error)
}

// Monitor polls a submitted work item until it reaches a terminal state.
// One monitor instance serves one run; it shares no state across runs.
type Monitor struct {
	client      StatusClient
	interval    time.Duration
	maxAttempts int
	logger      logger.Logger
}

func NewMonitor(client StatusClient, interval time.Duration, maxAttempts int, log logger.Logger) *Monitor {
	return &Monitor{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      log.WithFields(map[string]interface{}{"component": "engine-monitor"}),
	}
}

// Wait polls the work item until success, failure, or attempt exhaustion.
// onTick fires with the elapsed time on every non-terminal observation; it
// exists for progress reporting, not retry control. The sleep between
// polls is context-cancellable.
func (m *Monitor) Wait(ctx context.Context, workItemID string, onTick func(elapsed time.Duration)) (*WorkItemStatus, error) {
	start := time.Now()

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		wi, err := m.client.GetWorkItemStatus(ctx, workItemID)
		if err != nil {
			return nil, err
		}

		if !IsTerminal(wi.Status) {
			if onTick != nil {
				onTick(time.Since(start))
			}
			select {
			case <-time.After(m.interval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		metrics.PollAttempts.Observe(float64(attempt))

		if wi.Status == StatusSuccess {
			m.logger.Info("workitem succeeded", map[string]interface{}{
				"workItemId": workItemID,
				"elapsed":    time.Since(start).Round(time.Second).String(),
			})
			return wi, nil
		}

		return wi, m.failure(ctx, wi)
	}

	metrics.PollAttempts.Observe(float64(m.maxAttempts))
	return nil, errors.NewPollTimeoutError(m.maxAttempts, time.Since(start))
}

// failure builds the JOB_FAILED error for a terminal non-success status,
// attaching a bounded report excerpt when a report is available. Report
// fetch problems are swallowed; the status alone is still actionable.
func (m *Monitor) failure(ctx context.Context, wi *WorkItemStatus) error {
	excerpt := ""
	if wi.ReportURL != "" {
		report, err := m.client.FetchReport(ctx, wi.ReportURL)
		if err != nil {
			m.logger.Warn("report fetch failed", map[string]interface{}{
				"workItemId": wi.ID,
				"error":      err.Error(),
			})
		} else {
			excerpt = ExtractDiagnostics(report)
		}
	}
	return errors.NewJobFailedError(wi.Status, excerpt)
}

// ExtractDiagnostics pulls the most relevant lines out of an execution
// report: the last 10 lines mentioning error/failed/invalid, else the
// final ~1000 characters. Bounded and non-empty for any non-empty report.
func ExtractDiagnostics(report string) string {
	if report == "" {
		return ""
	}

	lines := strings.Split(report, "\n")
	var matches []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "failed") ||
			strings.Contains(lower, "invalid") {
			matches = append(matches, strings.TrimRight(line, "\r"))
		}
	}

	if len(matches) > 0 {
		if len(matches) > maxReportLines {
			matches = matches[len(matches)-maxReportLines:]
		}
		return strings.Join(matches, "\n")
	}

	if len(report) > maxReportTail {
		return report[len(report)-maxReportTail:]
	}
	return report
}
