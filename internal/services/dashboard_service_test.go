package services

import (
	"testing"
	"time"

	"doxradar/internal/testutil"

	"gorm.io/gorm"
)

func newDashboardService(db *gorm.DB) DashboardServicer {
	notifications := NewNotificationService(db)
	subscriptions := NewSubscriptionService(db, notifications)
	documents := newDocumentService(db, newFakeStore(), &fakeAnalyzer{})
	return NewDashboardService(db, documents, subscriptions, NewLifeAuditService(db))
}

func TestGetDashboardStats(t *testing.T) {
	t.Run("aggregates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newDashboardService(db)

		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestDocument(t, db, user.ID)
		testutil.CreateTestDocument(t, db, user.ID)

		monthly := testutil.CreateTestSubscription(t, db, user.ID, 15.49)
		db.Model(monthly).Update("category", "Entertainment")
		yearly := testutil.CreateTestSubscription(t, db, user.ID, 120)
		db.Model(yearly).Updates(map[string]any{"period": "Yearly", "category": "Software"})

		testutil.CreateTestLifeAudit(t, db, user.ID, 6)

		stats, err := svc.GetDashboardStats(user.ID)
		testutil.AssertNoError(t, err)

		if stats.TotalDocuments != 2 {
			t.Errorf("expected 2 documents, got %d", stats.TotalDocuments)
		}
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions, got %d", stats.SubscriptionCount)
		}
		// 15.49 + 120/12 = 25.49
		if stats.TotalMonthlyCost != 25.49 {
			t.Errorf("expected monthly cost 25.49, got %f", stats.TotalMonthlyCost)
		}
		if len(stats.SpendChart) != 2 {
			t.Fatalf("expected 2 chart entries, got %d", len(stats.SpendChart))
		}
		if stats.SpendChart[0].Name != "Entertainment" {
			t.Errorf("expected the biggest category first, got %s", stats.SpendChart[0].Name)
		}
		if stats.LifeAuditScores["health"] != 6 {
			t.Errorf("expected latest audit scores, got %v", stats.LifeAuditScores)
		}
	})

	t.Run("next_bill_is_earliest_future_payment", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newDashboardService(db)

		user := testutil.CreateTestUser(t, db)
		overdue := testutil.CreateTestSubscription(t, db, user.ID, 5)
		db.Model(overdue).Update("next_payment", time.Now().AddDate(0, 0, -3))
		soon := testutil.CreateTestSubscription(t, db, user.ID, 10)
		db.Model(soon).Update("next_payment", time.Now().AddDate(0, 0, 2))
		later := testutil.CreateTestSubscription(t, db, user.ID, 15)
		db.Model(later).Update("next_payment", time.Now().AddDate(0, 0, 20))

		stats, err := svc.GetDashboardStats(user.ID)
		testutil.AssertNoError(t, err)

		if stats.NextBill == nil {
			t.Fatal("expected a next bill")
		}
		if stats.NextBill.ID != soon.ID {
			t.Errorf("expected %s, got %s", soon.ID, stats.NextBill.ID)
		}
	})

	t.Run("chart_capped_at_five_categories", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newDashboardService(db)

		user := testutil.CreateTestUser(t, db)
		for i, category := range []string{"A", "B", "C", "D", "E", "F", "G"} {
			sub := testutil.CreateTestSubscription(t, db, user.ID, float64(10+i))
			db.Model(sub).Update("category", category)
		}

		stats, err := svc.GetDashboardStats(user.ID)
		testutil.AssertNoError(t, err)

		if len(stats.SpendChart) != 5 {
			t.Fatalf("expected 5 chart entries, got %d", len(stats.SpendChart))
		}
		if stats.SpendChart[0].Name != "G" {
			t.Errorf("expected the most expensive category first, got %s", stats.SpendChart[0].Name)
		}
	})

	t.Run("empty_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newDashboardService(db)

		user := testutil.CreateTestUser(t, db)
		stats, err := svc.GetDashboardStats(user.ID)
		testutil.AssertNoError(t, err)

		if stats.TotalDocuments != 0 || stats.SubscriptionCount != 0 {
			t.Error("expected zero counts")
		}
		if stats.NextBill != nil {
			t.Error("expected no next bill")
		}
		if stats.LifeAuditScores != nil {
			t.Error("expected no audit scores without an audit")
		}
		if stats.SpendChart == nil {
			t.Error("expected an empty, non-nil chart")
		}
	})
}

func TestGetRecentActivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newDashboardService(db)

	user := testutil.CreateTestUser(t, db)
	for i := 0; i < 7; i++ {
		testutil.CreateTestDocument(t, db, user.ID)
	}

	docs, err := svc.GetRecentActivity(user.ID)
	testutil.AssertNoError(t, err)
	if len(docs) != 5 {
		t.Errorf("expected the 5 newest documents, got %d", len(docs))
	}
}
