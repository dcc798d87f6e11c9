package integration

import (
	"net/http"
	"testing"
)

func TestSubscriptionFlow_CreateUpdateDelete(t *testing.T) {
	app := setupApp(t)
	_, token := app.provisionUser(t, "subs@example.com")

	// Step 1: Create
	rec := app.request("POST", "/api/v1/subscriptions",
		`{"name":"Spotify","price":10.99,"currency":"EUR","period":"Monthly","category":"Entertainment"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	sub := parseJSON(t, rec)["subscription"].(map[string]interface{})
	subID := sub["id"].(string)
	if sub["currency"] != "EUR" || sub["status"] != "Active" {
		t.Errorf("unexpected subscription %v", sub)
	}

	// Step 2: Update the price and pause it
	rec = app.request("PUT", "/api/v1/subscriptions/"+subID,
		`{"price":11.99,"status":"Paused"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", rec.Code, rec.Body.String())
	}
	updated := parseJSON(t, rec)["subscription"].(map[string]interface{})
	if updated["price"] != 11.99 || updated["status"] != "Paused" {
		t.Errorf("unexpected updated subscription %v", updated)
	}

	// Step 3: Filter by status
	rec = app.request("GET", "/api/v1/subscriptions?status=Paused", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("filtered list failed: %d %s", rec.Code, rec.Body.String())
	}
	if list := parseJSON(t, rec); list["total_items"] != float64(1) {
		t.Errorf("expected 1 paused subscription, got %v", list["total_items"])
	}

	// Step 4: Delete
	rec = app.request("DELETE", "/api/v1/subscriptions/"+subID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request("GET", "/api/v1/subscriptions/"+subID, "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSubscriptionFlow_RejectsUnknownCurrency(t *testing.T) {
	app := setupApp(t)
	_, token := app.provisionUser(t, "currency@example.com")

	rec := app.request("POST", "/api/v1/subscriptions",
		`{"name":"Spotify","price":10.99,"currency":"EURO"}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INVALID_INPUT" {
		t.Errorf("expected INVALID_INPUT, got %v", errObj["code"])
	}
}

func TestSubscriptionFlow_RejectsMissingName(t *testing.T) {
	app := setupApp(t)
	_, token := app.provisionUser(t, "noname@example.com")

	rec := app.request("POST", "/api/v1/subscriptions", `{"price":5}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
