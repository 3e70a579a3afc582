package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/errors"
	"github.com/pestpro/pestpro/internal/scheduling"
)

// DashboardMetrics are the headline numbers on the dashboard cards.
type DashboardMetrics struct {
	TotalClients        int     `json:"totalClients"`
	ActiveContracts     int     `json:"activeContracts"`
	DueToday            int     `json:"dueToday"`
	DueThisMonth        int     `json:"dueThisMonth"`
	Upcoming            int     `json:"upcoming"`
	Pending             int     `json:"pending"`
	CompletedThisMonth  int     `json:"completedThisMonth"`
	RevenueThisMonth    float64 `json:"revenueThisMonth"`
	OutstandingPayments float64 `json:"outstandingPayments"`
}

// DashboardMetrics computes the metric cards from the live records.
// Revenue counts amounts of contracts completed in the current month;
// outstanding payments sum the amounts of open contracts already due.
func (s *Service) DashboardMetrics(ctx context.Context) (*DashboardMetrics, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	contracts, err := s.contracts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	m := &DashboardMetrics{TotalClients: len(clients)}

	for _, c := range contracts {
		status := scheduling.ClassifyStatus(c.DueDate, now, c.Completed)
		switch status {
		case domain.StatusCompleted:
			if sameMonth(c.CompletedAt, now) {
				m.CompletedThisMonth++
				m.RevenueThisMonth += c.Amount
			}
		case domain.StatusDueToday:
			m.ActiveContracts++
			m.DueToday++
			m.OutstandingPayments += c.Amount
		case domain.StatusPending:
			m.ActiveContracts++
			m.Pending++
			if c.DueDate.Before(now) {
				m.OutstandingPayments += c.Amount
			}
		}

		if status != domain.StatusCompleted {
			if sameMonth(c.DueDate, now) {
				m.DueThisMonth++
			}
			if !c.DueDate.Before(today) && c.DueDate.Before(today.AddDate(0, 0, 30)) {
				m.Upcoming++
			}
		}
	}
	return m, nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ChartKind selects which dashboard chart to compute.
type ChartKind string

const (
	ChartWeekly   ChartKind = "weekly"
	ChartMonthly  ChartKind = "monthly"
	ChartCategory ChartKind = "category"
)

// ChartPoint is one bar of a dashboard chart.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ContractChart aggregates contracts for the dashboard chart. Weekly buckets
// the current week's contracts per weekday, monthly buckets the current
// year per month, category counts contracts per service type.
func (s *Service) ContractChart(ctx context.Context, kind ChartKind) ([]ChartPoint, error) {
	contracts, err := s.contracts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	now := s.clock.Now()
	switch kind {
	case ChartWeekly:
		return weeklyChart(contracts, now), nil
	case ChartMonthly:
		return monthlyChart(contracts, now), nil
	case ChartCategory:
		return categoryChart(contracts), nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown chart kind: %s", kind))
	}
}

func weeklyChart(contracts []*domain.Contract, now time.Time) []ChartPoint {
	// Week starts on Monday.
	weekday := (int(now.Weekday()) + 6) % 7
	weekStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -weekday)
	weekEnd := weekStart.AddDate(0, 0, 7)

	labels := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	points := make([]ChartPoint, len(labels))
	for i, label := range labels {
		points[i] = ChartPoint{Label: label}
	}

	for _, c := range contracts {
		if c.CreatedAt.Before(weekStart) || !c.CreatedAt.Before(weekEnd) {
			continue
		}
		day := (int(c.CreatedAt.Weekday()) + 6) % 7
		points[day].Value++
	}
	return points
}

func monthlyChart(contracts []*domain.Contract, now time.Time) []ChartPoint {
	points := make([]ChartPoint, 12)
	for i := range points {
		points[i] = ChartPoint{Label: time.Month(i + 1).String()[:3]}
	}

	for _, c := range contracts {
		if c.CreatedAt.Year() != now.Year() {
			continue
		}
		points[int(c.CreatedAt.Month())-1].Value++
	}
	return points
}

func categoryChart(contracts []*domain.Contract) []ChartPoint {
	counts := make(map[domain.ServiceType]float64)
	for _, c := range contracts {
		for _, t := range c.ServiceTypes {
			counts[t]++
		}
	}

	points := make([]ChartPoint, 0, len(counts))
	for _, t := range domain.ServiceTypes() {
		if counts[t] > 0 {
			points = append(points, ChartPoint{Label: string(t), Value: counts[t]})
		}
	}
	return points
}
