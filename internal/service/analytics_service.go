package service

import (
	"context"
	"fmt"
	"time"

	"inventory-api/internal/domain"
	"inventory-api/internal/repository"
)

// DateLayout is the calendar-day format used by the analytics endpoint
const DateLayout = "2006-01-02"

// AnalyticsService produces the daily sales rollup
type AnalyticsService interface {
	// DailySummary aggregates the sales of the calendar day containing day,
	// as observed in the service's location. A day without sales yields an
	// empty result, not an error.
	DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error)
	// Today returns the current calendar day in the service's location.
	Today() time.Time
	// ParseDay reads a YYYY-MM-DD date in the service's location.
	ParseDay(value string) (time.Time, error)
}

type analyticsService struct {
	queryRepo repository.SaleQueryRepository
	loc       *time.Location
	now       func() time.Time
}

// NewAnalyticsService creates a new instance of AnalyticsService. Day
// boundaries are taken in loc.
func NewAnalyticsService(queryRepo repository.SaleQueryRepository, loc *time.Location) AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &analyticsService{
		queryRepo: queryRepo,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *analyticsService) DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error) {
	day = day.In(s.loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	rows, err := s.queryRepo.DailySummary(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily summary: %w", err)
	}
	if rows == nil {
		rows = []domain.ProductDailySales{}
	}

	return &domain.DailySummary{
		Date:  start.Format(DateLayout),
		Sales: rows,
	}, nil
}

func (s *analyticsService) Today() time.Time {
	return s.now().In(s.loc)
}

func (s *analyticsService) ParseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "Date has wrong format. Use YYYY-MM-DD.")
	}
	return day, nil
}
