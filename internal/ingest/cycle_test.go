package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"doxradar/internal/ai"
	"doxradar/internal/gmail"
	"doxradar/internal/models"
	"doxradar/internal/pagination"
	"doxradar/internal/services"
	"doxradar/internal/testutil"

	"gorm.io/gorm"
)

// fakeMailbox serves canned messages per user.
type fakeMailbox struct {
	mu          sync.Mutex
	refs        map[string][]gmail.MessageRef
	messages    map[string]*gmail.Message
	attachments map[string][]byte
	listErr     map[string]error
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		refs:        make(map[string][]gmail.MessageRef),
		messages:    make(map[string]*gmail.Message),
		attachments: make(map[string][]byte),
		listErr:     make(map[string]error),
	}
}

func (f *fakeMailbox) ListUnread(_ context.Context, userID string) ([]gmail.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[userID]; err != nil {
		return nil, err
	}
	return f.refs[userID], nil
}

func (f *fakeMailbox) GetMessage(_ context.Context, _, messageID string) (*gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

func (f *fakeMailbox) GetAttachment(_ context.Context, _, _, attachmentID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.attachments[attachmentID]
	if !ok {
		return nil, errors.New("attachment not found")
	}
	return data, nil
}

// fakeAnalyzer returns a canned analysis and records what it was fed.
type fakeAnalyzer struct {
	mu       sync.Mutex
	analysis *ai.Analysis
	inputs   []string // mime types, in call order
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte, mimeType string) *ai.Analysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, mimeType)
	if f.analysis != nil {
		return f.analysis
	}
	return &ai.Analysis{Status: ai.StatusCompleted, Summary: "ok"}
}

// fakeStore is an in-memory object store.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{objects: make(map[string][]byte)} }

func (f *fakeStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) PublicURL(key string) string { return "https://cdn.test/" + key }

func (f *fakeStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type testEnv struct {
	db            *gorm.DB
	mailbox       *fakeMailbox
	analyzer      *fakeAnalyzer
	store         *fakeStore
	cycle         *Cycle
	users         services.UserServicer
	notifications services.NotificationServicer
	subscriptions services.SubscriptionServicer
	documents     services.DocumentServicer
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	mailbox := newFakeMailbox()
	analyzer := &fakeAnalyzer{}
	store := newFakeStore()

	users := services.NewUserService(db)
	tokens := services.NewGmailTokenService(db)
	notifications := services.NewNotificationService(db)
	subscriptions := services.NewSubscriptionService(db, notifications)
	preferences := services.NewPreferenceService(db)
	documents := services.NewDocumentService(db, store, analyzer, preferences, subscriptions, notifications)
	emailLogs := services.NewEmailLogService(db)

	cycle := NewCycle(users, tokens, mailbox, analyzer, documents, subscriptions, notifications, preferences, emailLogs, opts)

	return &testEnv{
		db:            db,
		mailbox:       mailbox,
		analyzer:      analyzer,
		store:         store,
		cycle:         cycle,
		users:         users,
		notifications: notifications,
		subscriptions: subscriptions,
		documents:     documents,
	}
}

func (e *testEnv) addMessage(userID, messageID, subject, sender string, receivedAt time.Time, attachments ...gmail.AttachmentRef) {
	e.mailbox.refs[userID] = append(e.mailbox.refs[userID], gmail.MessageRef{ID: messageID})

	payload := &gmail.Part{
		MimeType: "multipart/mixed",
		Headers: []gmail.Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: sender},
		},
	}
	for _, ref := range attachments {
		payload.Parts = append(payload.Parts, &gmail.Part{
			MimeType: ref.MimeType,
			Filename: ref.Filename,
			Body:     gmail.PartBody{AttachmentID: ref.AttachmentID},
		})
		e.mailbox.attachments[ref.AttachmentID] = []byte("data-" + ref.AttachmentID)
	}

	e.mailbox.messages[messageID] = &gmail.Message{
		ID:           messageID,
		Snippet:      "snippet of " + messageID,
		InternalDate: fmt.Sprintf("%d", receivedAt.UnixMilli()),
		Payload:      payload,
	}
}

func (e *testEnv) notificationTitles(t *testing.T, userID string) map[string]models.Notification {
	t.Helper()
	page, err := e.notifications.GetUserNotifications(userID, pagination.PageRequest{PageSize: 100}, false)
	testutil.AssertNoError(t, err)
	titles := make(map[string]models.Notification, len(page.Data))
	for _, n := range page.Data {
		titles[n.Title] = n
	}
	return titles
}

func TestRun_no_connected_users(t *testing.T) {
	env := newTestEnv(t, Options{})
	testutil.CreateTestUser(t, env.db) // no mailbox linked

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	if result.UsersScanned != 0 {
		t.Errorf("expected no users scanned, got %d", result.UsersScanned)
	}
}

func TestRun_processes_attachments(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)

	env.analyzer.analysis = &ai.Analysis{
		Status:            ai.StatusCompleted,
		SuggestedCategory: "Subscription",
		IsSubscription:    true,
		SubscriptionDetails: &ai.SubscriptionDetails{
			Name: "Netflix", Price: 15.49, Currency: "USD", Period: "Monthly",
		},
	}
	env.addMessage(user.ID, "m1", "Your Netflix invoice", "billing@netflix.com", time.Now(),
		gmail.AttachmentRef{Filename: "invoice.pdf", MimeType: "application/pdf", AttachmentID: "att-1"},
	)

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	if result.UsersScanned != 1 || result.MessagesSeen != 1 || result.MessagesProcessed != 1 {
		t.Errorf("unexpected counts %+v", result)
	}
	if result.DocumentsSaved != 1 {
		t.Errorf("expected 1 document saved, got %d", result.DocumentsSaved)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors %v", result.Errors)
	}

	// The attachment was stored and recorded as a document.
	docs, err := env.documents.RecentDocuments(user.ID, 10)
	testutil.AssertNoError(t, err)
	if len(docs) != 1 || docs[0].Name != "invoice.pdf" {
		t.Fatalf("unexpected documents %v", docs)
	}
	if docs[0].Category != "Subscription" {
		t.Errorf("expected analysis category, got %s", docs[0].Category)
	}

	// The detected subscription was auto-logged.
	subs, err := env.subscriptions.ActiveSubscriptions(user.ID)
	testutil.AssertNoError(t, err)
	if len(subs) != 1 || subs[0].Name != "Netflix" {
		t.Fatalf("unexpected subscriptions %v", subs)
	}

	// The high-water mark advanced.
	reloaded, err := env.users.GetUserByID(user.ID)
	testutil.AssertNoError(t, err)
	if reloaded.LastIngestedAt == nil {
		t.Error("expected high-water mark set after the scan")
	}

	titles := env.notificationTitles(t, user.ID)
	if _, ok := titles["Email Auto-Scan Started"]; ok {
		t.Error("expected the scan-started notification cleared")
	}
	if _, ok := titles["📄 New Document Saved"]; !ok {
		t.Error("expected a document-saved notification")
	}
	if _, ok := titles["💳 New Subscription Found"]; !ok {
		t.Error("expected an auto-log notification")
	}
	done, ok := titles["✅ Scan Complete"]
	if !ok {
		t.Fatal("expected a scan-complete notification")
	}
	if done.Message != "Successfully processed 1 new document(s) and subscription(s)." {
		t.Errorf("unexpected scan-complete wording %q", done.Message)
	}
	if done.Type != models.NotificationSuccess {
		t.Errorf("expected success type, got %s", done.Type)
	}
}

func TestRun_dedup_skips_seen_messages(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)
	env.addMessage(user.ID, "m1", "Old news", "sender@example.com", time.Now())

	// First run processes the message.
	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)
	if result.MessagesProcessed != 1 {
		t.Fatalf("expected first run to process 1 message, got %d", result.MessagesProcessed)
	}

	// Second run sees the same unread message but skips it.
	result, err = env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)
	if result.MessagesSeen != 1 {
		t.Errorf("expected the message to still be listed, got %d", result.MessagesSeen)
	}
	if result.MessagesProcessed != 0 {
		t.Errorf("expected dedup to skip the message, got %d processed", result.MessagesProcessed)
	}

	titles := env.notificationTitles(t, user.ID)
	done := titles["✅ Scan Complete"]
	if done.Message != "Checked 1 new messages, but found no relevant documents or subscriptions." {
		t.Errorf("unexpected scan-complete wording %q", done.Message)
	}
	if done.Type != models.NotificationInfo {
		t.Errorf("expected info type, got %s", done.Type)
	}
}

func TestRun_empty_mailbox_wording(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)

	_, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	titles := env.notificationTitles(t, user.ID)
	done := titles["✅ Scan Complete"]
	if done.Message != "No new unread messages found in your inbox." {
		t.Errorf("unexpected scan-complete wording %q", done.Message)
	}
}

func TestRun_cutoff_skips_old_messages(t *testing.T) {
	env := newTestEnv(t, Options{LookbackBuffer: time.Hour})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)
	testutil.AssertNoError(t, env.users.SetLastIngestedAt(user.ID, time.Now()))

	// Received two hours before the mark, outside the one-hour buffer.
	env.addMessage(user.ID, "old", "Ancient", "sender@example.com", time.Now().Add(-2*time.Hour))
	// Received just now, well inside the window.
	env.addMessage(user.ID, "new", "Fresh", "sender@example.com", time.Now())

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	if result.MessagesSeen != 1 {
		t.Errorf("expected only the fresh message counted as new mail, got %d", result.MessagesSeen)
	}
	if result.MessagesProcessed != 1 {
		t.Errorf("expected only the fresh message processed, got %d", result.MessagesProcessed)
	}
}

func TestRun_category_hint_without_flag_logs_no_subscription(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)

	// The model suggests the category but never sets the subscription flag.
	env.analyzer.analysis = &ai.Analysis{
		Status:            ai.StatusCompleted,
		Summary:           "Looks subscription-ish.",
		SuggestedCategory: "Subscription",
	}
	env.addMessage(user.ID, "m1", "Maybe a receipt", "billing@service.io", time.Now(),
		gmail.AttachmentRef{Filename: "receipt.pdf", MimeType: "application/pdf", AttachmentID: "att-1"})

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	if result.MessagesProcessed != 1 || result.DocumentsSaved != 1 {
		t.Fatalf("expected the message processed and its attachment saved, got %+v", result)
	}

	var count int64
	env.db.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected no auto-logged subscription without the flag, got %d", count)
	}
	titles := env.notificationTitles(t, user.ID)
	if _, ok := titles["💳 New Subscription Found"]; ok {
		t.Error("expected no subscription notification without the flag")
	}
}

func TestRun_only_stale_messages_read_as_empty_inbox(t *testing.T) {
	env := newTestEnv(t, Options{LookbackBuffer: time.Hour})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)
	testutil.AssertNoError(t, env.users.SetLastIngestedAt(user.ID, time.Now()))

	// Both messages predate the cutoff; the mailbox holds nothing new.
	env.addMessage(user.ID, "old-1", "Ancient", "sender@example.com", time.Now().Add(-3*time.Hour))
	env.addMessage(user.ID, "old-2", "Older still", "sender@example.com", time.Now().Add(-4*time.Hour))

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	if result.MessagesSeen != 0 {
		t.Errorf("expected stale mail excluded from the seen count, got %d", result.MessagesSeen)
	}

	titles := env.notificationTitles(t, user.ID)
	done := titles["✅ Scan Complete"]
	if done.Message != "No new unread messages found in your inbox." {
		t.Errorf("unexpected scan-complete wording %q", done.Message)
	}
	if done.Type != models.NotificationInfo {
		t.Errorf("expected an info notification, got %s", done.Type)
	}
}

func TestRun_text_fallback_analysis(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)

	// No attachments at all; the message text stands in.
	env.addMessage(user.ID, "m1", "Reminder", "sender@example.com", time.Now())

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	if result.MessagesProcessed != 1 {
		t.Fatalf("expected 1 processed message, got %d", result.MessagesProcessed)
	}
	if result.DocumentsSaved != 0 {
		t.Errorf("expected no documents without attachments, got %d", result.DocumentsSaved)
	}
	if len(env.analyzer.inputs) != 1 || env.analyzer.inputs[0] != "text/plain" {
		t.Errorf("expected a text/plain fallback analysis, got %v", env.analyzer.inputs)
	}
}

func TestRun_unsupported_attachment_still_saved(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)

	env.addMessage(user.ID, "m1", "Backup", "sender@example.com", time.Now(),
		gmail.AttachmentRef{Filename: "backup.zip", MimeType: "application/zip", AttachmentID: "att-1"},
	)

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	// The zip cannot be analyzed, so the text fallback runs, but the file is
	// still saved as a document.
	if result.DocumentsSaved != 1 {
		t.Errorf("expected the attachment saved, got %d", result.DocumentsSaved)
	}
	if len(env.analyzer.inputs) != 1 || env.analyzer.inputs[0] != "text/plain" {
		t.Errorf("expected a text/plain fallback analysis, got %v", env.analyzer.inputs)
	}
	for key := range env.store.objects {
		if !strings.Contains(key, "gmail_") {
			t.Errorf("expected ingested key prefix in %q", key)
		}
	}
}

func TestRun_scam_alert(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)

	env.analyzer.analysis = &ai.Analysis{
		Status:        ai.StatusCompleted,
		IsScam:        true,
		ScamReason:    "Asks for wire transfer to an unknown account.",
		SeverityLevel: ai.SeverityCritical,
	}
	env.addMessage(user.ID, "m1", "URGENT: pay now", "scammer@example.com", time.Now())

	_, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	titles := env.notificationTitles(t, user.ID)
	alert, ok := titles["🚨 Scam Detected"]
	if !ok {
		t.Fatal("expected a scam alert")
	}
	if alert.Type != models.NotificationDanger {
		t.Errorf("expected danger type, got %s", alert.Type)
	}
	if alert.Metadata["gmail_id"] != "m1" {
		t.Errorf("expected message id in metadata, got %v", alert.Metadata)
	}
}

func TestRun_failing_user_does_not_block_others(t *testing.T) {
	env := newTestEnv(t, Options{Workers: 2})
	broken := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, broken.ID)
	healthy := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, healthy.ID)

	env.mailbox.listErr[broken.ID] = errors.New("mailbox unreachable")
	env.addMessage(healthy.ID, "m1", "Hello", "sender@example.com", time.Now())

	result, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	if result.UsersScanned != 2 {
		t.Errorf("expected both users scanned, got %d", result.UsersScanned)
	}
	if len(result.Errors) != 1 || result.Errors[0].UserID != broken.ID {
		t.Fatalf("expected one error for the broken user, got %v", result.Errors)
	}
	if result.MessagesProcessed != 1 {
		t.Errorf("expected the healthy user processed, got %d", result.MessagesProcessed)
	}

	// The failing user's high-water mark must not advance.
	reloaded, err := env.users.GetUserByID(broken.ID)
	testutil.AssertNoError(t, err)
	if reloaded.LastIngestedAt != nil {
		t.Error("expected the mark untouched after a failed listing")
	}
}

func TestRun_action_required_alert(t *testing.T) {
	env := newTestEnv(t, Options{})
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestGmailToken(t, env.db, user.ID)

	env.analyzer.analysis = &ai.Analysis{
		Status:               ai.StatusCompleted,
		RequiresAction:       true,
		ActionRecommendation: "Renew your passport before 2026-10-01.",
		SeverityLevel:        ai.SeverityCritical,
	}
	env.addMessage(user.ID, "m1", "Passport expiry", "gov@example.com", time.Now())

	_, err := env.cycle.Run(context.Background())
	testutil.AssertNoError(t, err)

	titles := env.notificationTitles(t, user.ID)
	alert, ok := titles["🛑 URGENT ACTION REQUIRED"]
	if !ok {
		t.Fatal("expected an urgent action alert for critical severity")
	}
	if alert.Type != models.NotificationDanger {
		t.Errorf("expected danger type, got %s", alert.Type)
	}
	if alert.Message != "Renew your passport before 2026-10-01." {
		t.Errorf("unexpected message %q", alert.Message)
	}
}
