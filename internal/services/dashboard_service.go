package services

import (
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "doxradar/internal/errors"
	"doxradar/internal/models"
)

// dashboardService aggregates cross-domain stats for the dashboard.
type dashboardService struct {
	db            *gorm.DB
	documents     DocumentServicer
	subscriptions SubscriptionServicer
	lifeAudits    LifeAuditServicer
}

// NewDashboardService creates a new DashboardServicer.
func NewDashboardService(db *gorm.DB, documents DocumentServicer, subscriptions SubscriptionServicer, lifeAudits LifeAuditServicer) DashboardServicer {
	return &dashboardService{
		db:            db,
		documents:     documents,
		subscriptions: subscriptions,
		lifeAudits:    lifeAudits,
	}
}

// GetDashboardStats computes the headline numbers: document count, monthly
// subscription cost, the next upcoming bill, top-5 spend categories, and the
// latest life-audit scores.
func (s *dashboardService) GetDashboardStats(userID string) (*DashboardStats, error) {
	totalDocs, err := s.documents.CountUserDocuments(userID)
	if err != nil {
		return nil, err
	}

	subs, err := s.subscriptions.ActiveSubscriptions(userID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalDocuments:    totalDocs,
		SubscriptionCount: int64(len(subs)),
		SpendChart:        []SpendChartEntry{},
	}

	now := time.Now()
	spendByCategory := make(map[string]float64)
	var nextBill *models.Subscription
	for i := range subs {
		sub := &subs[i]
		monthly := sub.MonthlyEquivalent()
		stats.TotalMonthlyCost += monthly
		spendByCategory[sub.Category] += monthly

		if sub.NextPayment.Before(now) {
			continue
		}
		if nextBill == nil || sub.NextPayment.Before(nextBill.NextPayment) {
			nextBill = sub
		}
	}
	stats.TotalMonthlyCost = math.Round(stats.TotalMonthlyCost*100) / 100
	stats.NextBill = nextBill

	for category, monthly := range spendByCategory {
		stats.SpendChart = append(stats.SpendChart, SpendChartEntry{
			Name:    category,
			Monthly: math.Round(monthly*100) / 100,
		})
	}
	sort.Slice(stats.SpendChart, func(i, j int) bool {
		if stats.SpendChart[i].Monthly != stats.SpendChart[j].Monthly {
			return stats.SpendChart[i].Monthly > stats.SpendChart[j].Monthly
		}
		return stats.SpendChart[i].Name < stats.SpendChart[j].Name
	})
	if len(stats.SpendChart) > 5 {
		stats.SpendChart = stats.SpendChart[:5]
	}

	latest, err := s.lifeAudits.GetLatestLifeAudit(userID)
	switch {
	case err == nil:
		stats.LifeAuditScores = latest.Scores()
	case err == apperrors.ErrLifeAuditNotFound:
		// No audit yet; the dashboard renders without the widget.
	default:
		return nil, err
	}

	return stats, nil
}

// GetRecentActivity returns the five newest documents.
func (s *dashboardService) GetRecentActivity(userID string) ([]models.Document, error) {
	return s.documents.RecentDocuments(userID, 5)
}
