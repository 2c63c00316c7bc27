package usage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orbitalcopilot/usage-service/internal/copilot"
	"github.com/orbitalcopilot/usage-service/internal/credits"
	"github.com/orbitalcopilot/usage-service/pkg/cache"
	"github.com/orbitalcopilot/usage-service/pkg/events"
	"github.com/orbitalcopilot/usage-service/pkg/models"
)

// Upper bound on concurrent report fetches for the period endpoint.
const maxConcurrentReportFetches = 8

// Service prices usage events. A report's precomputed cost wins over the
// text-based chain; when the report cannot be fetched the chain is the
// fallback and the caller's request never fails because the upstream did.
type Service struct {
	client     *copilot.Client
	calculator *credits.Calculator
	cache      *cache.Cache // nil when Redis is disabled
	bus        *events.Bus
	logger     *zap.Logger
	reportTTL  time.Duration
}

// NewService creates a new usage service.
func NewService(client *copilot.Client, calculator *credits.Calculator, reportCache *cache.Cache, bus *events.Bus, reportTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		client:     client,
		calculator: calculator,
		cache:      reportCache,
		bus:        bus,
		logger:     logger,
		reportTTL:  reportTTL,
	}
}

// resolvedReport is a report cost usable for pricing, either from cache or
// from the upstream API.
type resolvedReport struct {
	name string
	cost credits.Millicredits
}

// ComputeEvent prices a single usage event. It does not return an error:
// a failed report lookup degrades to the text-based chain instead.
func (s *Service) ComputeEvent(ctx context.Context, event models.UsageEvent) models.CreditResult {
	source := models.CreditSourceText

	if event.ReportID != "" {
		report, err := s.resolveReport(ctx, event.ReportID)
		switch {
		case err == nil && report != nil:
			result := models.CreditResult{Credits: report.cost.Round()}
			s.recordComputation(ctx, models.CreditSourceReport, result.Credits)
			return result

		case err != nil:
			// Upstream trouble other than "no such report". Price the
			// message from its text and keep serving.
			s.logger.Warn("report lookup failed, falling back to text pricing",
				zap.String("report_id", event.ReportID),
				zap.Error(err),
			)
			s.bus.Publish(ctx, events.NewEvent(events.EventReportLookupFailed, map[string]interface{}{
				"report_id": event.ReportID,
				"error":     err.Error(),
			}))
			source = models.CreditSourceFallback

		default:
			// Report does not exist; not an error to the caller.
			s.logger.Debug("report not found", zap.String("report_id", event.ReportID))
		}
	}

	result := models.CreditResult{Credits: s.calculator.Price(event.Message)}
	s.recordComputation(ctx, source, result.Credits)
	return result
}

// CurrentPeriodUsage prices every message in the current billing period.
// Reports that no longer exist are skipped (their messages are priced from
// text); any other upstream failure aborts the call.
func (s *Service) CurrentPeriodUsage(ctx context.Context) (*models.UsageResponse, error) {
	messages, err := s.client.CurrentPeriodMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch current period messages: %w", err)
	}

	reports, err := s.fetchReports(ctx, distinctReportIDs(messages))
	if err != nil {
		return nil, err
	}

	entries := make([]models.UsageEntry, 0, len(messages))
	for _, msg := range messages {
		var report *resolvedReport
		if msg.ReportID != nil {
			report = reports[*msg.ReportID]
		}
		entries = append(entries, s.usageEntry(msg, report))
	}

	s.logger.Info("priced current period usage",
		zap.Int("messages", len(messages)),
		zap.Int("reports", len(reports)),
	)

	return &models.UsageResponse{Usage: entries}, nil
}

// usageEntry prices one message, preferring the report override.
func (s *Service) usageEntry(msg copilot.Message, report *resolvedReport) models.UsageEntry {
	entry := models.UsageEntry{
		MessageID: msg.ID,
		Timestamp: msg.Timestamp.Format(time.RFC3339Nano),
	}

	if report != nil {
		entry.ReportName = &report.name
		entry.CreditsUsed = report.cost.Round()
		usageComputationsTotal.WithLabelValues(string(models.CreditSourceReport)).Inc()
	} else {
		entry.CreditsUsed = s.calculator.Price(msg.Text)
		usageComputationsTotal.WithLabelValues(string(models.CreditSourceText)).Inc()
	}
	creditsComputed.Observe(entry.CreditsUsed)

	return entry
}

// fetchReports resolves report costs concurrently. A missing report is left
// out of the result; the first non-404 failure cancels the remaining fetches
// and is returned.
func (s *Service) fetchReports(ctx context.Context, reportIDs []int64) (map[int64]*resolvedReport, error) {
	reports := make(map[int64]*resolvedReport, len(reportIDs))
	if len(reportIDs) == 0 {
		return reports, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, maxConcurrentReportFetches)

	for _, id := range reportIDs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			report, err := s.resolveReport(ctx, strconv.FormatInt(id, 10))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("fetch report %d: %w", id, err)
					cancel()
				}
				return
			}
			if report != nil {
				reports[id] = report
			}
		}(id)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return reports, nil
}

// resolveReport returns the report's cost and name, consulting the cache
// first. (nil, nil) means the report does not exist upstream.
func (s *Service) resolveReport(ctx context.Context, reportID string) (*resolvedReport, error) {
	if s.cache != nil {
		cost, name, found, err := s.cache.GetReportCost(ctx, reportID)
		if err != nil {
			// Cache trouble is not worth failing a lookup over.
			s.logger.Warn("report cost cache read failed",
				zap.String("report_id", reportID),
				zap.Error(err),
			)
		} else if found {
			reportLookupsTotal.WithLabelValues("cache_hit").Inc()
			return &resolvedReport{name: name, cost: cost}, nil
		}
	}

	report, err := s.client.GetReport(ctx, reportID)
	if err != nil {
		if copilot.IsNotFound(err) {
			reportLookupsTotal.WithLabelValues("not_found").Inc()
			return nil, nil
		}
		reportLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	reportLookupsTotal.WithLabelValues("ok").Inc()

	resolved := &resolvedReport{
		name: report.Name,
		cost: credits.FromFloat(report.CreditCost),
	}

	if s.cache != nil {
		if err := s.cache.SetReportCost(ctx, reportID, resolved.cost, resolved.name, s.reportTTL); err != nil {
			s.logger.Warn("report cost cache write failed",
				zap.String("report_id", reportID),
				zap.Error(err),
			)
		}
	}

	return resolved, nil
}

// recordComputation updates metrics and publishes the usage event.
func (s *Service) recordComputation(ctx context.Context, source models.CreditSource, creditsUsed float64) {
	usageComputationsTotal.WithLabelValues(string(source)).Inc()
	creditsComputed.Observe(creditsUsed)

	s.bus.Publish(ctx, events.NewEvent(events.EventUsageComputed, map[string]interface{}{
		"source":  string(source),
		"credits": creditsUsed,
	}))
}

// distinctReportIDs collects the unique report ids referenced by messages.
func distinctReportIDs(messages []copilot.Message) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, msg := range messages {
		if msg.ReportID == nil {
			continue
		}
		if _, ok := seen[*msg.ReportID]; ok {
			continue
		}
		seen[*msg.ReportID] = struct{}{}
		ids = append(ids, *msg.ReportID)
	}
	return ids
}
