package services

import (
	"testing"
	"time"

	"doxradar/internal/pagination"
	"doxradar/internal/testutil"
)

func TestCreateIncome(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIncomeService(db)

		user := testutil.CreateTestUser(t, db)
		income, err := svc.CreateIncome(user.ID, "Day job", 5000, "Monthly", "Salary", time.Now(), "")
		testutil.AssertNoError(t, err)

		if income.Amount != 5000 {
			t.Errorf("expected amount 5000, got %f", income.Amount)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIncomeService(db)

		user := testutil.CreateTestUser(t, db)
		income, err := svc.CreateIncome(user.ID, "Freelance", 800, "", "", time.Time{}, "")
		testutil.AssertNoError(t, err)

		if income.Frequency != "Monthly" {
			t.Errorf("expected Monthly, got %s", income.Frequency)
		}
		if income.Category != "Salary" {
			t.Errorf("expected Salary, got %s", income.Category)
		}
		if income.Date.IsZero() {
			t.Error("expected date to default to now")
		}
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIncomeService(db)

		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateIncome(user.ID, "", 100, "", "", time.Time{}, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("negative_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIncomeService(db)

		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateIncome(user.ID, "Bad", -100, "", "", time.Time{}, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserIncomes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewIncomeService(db)

	user := testutil.CreateTestUser(t, db)
	_, err := svc.CreateIncome(user.ID, "Older", 100, "", "", time.Now().AddDate(0, -1, 0), "")
	testutil.AssertNoError(t, err)
	_, err = svc.CreateIncome(user.ID, "Newer", 200, "", "", time.Now(), "")
	testutil.AssertNoError(t, err)

	page, err := svc.GetUserIncomes(user.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)

	if page.TotalItems != 2 {
		t.Fatalf("expected 2 income sources, got %d", page.TotalItems)
	}
	if page.Data[0].Name != "Newer" {
		t.Errorf("expected newest first, got %s", page.Data[0].Name)
	}
}

func TestUpdateIncome(t *testing.T) {
	t.Run("partial_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIncomeService(db)

		user := testutil.CreateTestUser(t, db)
		created, err := svc.CreateIncome(user.ID, "Day job", 5000, "", "", time.Now(), "")
		testutil.AssertNoError(t, err)

		amount := 5500.0
		notes := "raise"
		income, err := svc.UpdateIncome(user.ID, created.ID, IncomeFields{Amount: &amount, Notes: &notes})
		testutil.AssertNoError(t, err)

		if income.Amount != 5500 {
			t.Errorf("expected amount 5500, got %f", income.Amount)
		}
		if income.Notes != "raise" {
			t.Errorf("expected notes raise, got %s", income.Notes)
		}
		if income.Name != "Day job" {
			t.Error("expected untouched fields to survive")
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIncomeService(db)

		user := testutil.CreateTestUser(t, db)
		amount := 1.0
		_, err := svc.UpdateIncome(user.ID, "0198a4f2-dead-7000-8000-000000000000", IncomeFields{Amount: &amount})
		testutil.AssertAppError(t, err, "INCOME_NOT_FOUND")
	})
}

func TestDeleteIncome(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewIncomeService(db)

	user := testutil.CreateTestUser(t, db)
	created, err := svc.CreateIncome(user.ID, "Day job", 5000, "", "", time.Now(), "")
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.DeleteIncome(user.ID, created.ID))

	_, err = svc.GetIncomeByID(user.ID, created.ID)
	testutil.AssertAppError(t, err, "INCOME_NOT_FOUND")
}
