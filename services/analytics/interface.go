package analytics

import (
	"context"

	"turbotransfer/models"
)

// HistoryLimit is how many records are kept; older ones are dropped.
const HistoryLimit = 100

// AnalyticsService records transfers and reports on them.
type AnalyticsService interface {
	Record(ctx context.Context, rec models.TransferRecord) error
	History(ctx context.Context) ([]models.TransferRecord, error)
	Stats(ctx context.Context) (models.TransferStats, error)
}

// Store persists the bounded history, oldest record first.
type Store interface {
	Append(ctx context.Context, rec models.TransferRecord) error
	List(ctx context.Context) ([]models.TransferRecord, error)
}

// DefaultAnalyticsService derives statistics from whatever Store backs it.
type DefaultAnalyticsService struct {
	Store Store
}

func (s *DefaultAnalyticsService) Record(ctx context.Context, rec models.TransferRecord) error {
	return s.Store.Append(ctx, rec)
}

func (s *DefaultAnalyticsService) History(ctx context.Context) ([]models.TransferRecord, error) {
	return s.Store.List(ctx)
}

// Stats sums the sizes of successful transfers per direction. Count covers
// every retained record.
func (s *DefaultAnalyticsService) Stats(ctx context.Context) (models.TransferStats, error) {
	history, err := s.Store.List(ctx)
	if err != nil {
		return models.TransferStats{}, err
	}
	return Summarize(history), nil
}

func Summarize(history []models.TransferRecord) models.TransferStats {
	stats := models.TransferStats{Count: len(history)}
	for _, h := range history {
		if h.Status != models.TransferSuccess {
			continue
		}
		switch h.Direction {
		case models.DirectionSent:
			stats.TotalSent += h.Size
		case models.DirectionReceived:
			stats.TotalReceived += h.Size
		}
	}
	return stats
}
