// Package ingest implements the autonomous mailbox ingestion cycle: for each
// user with a linked mailbox it pulls unread messages, runs AI analysis, and
// fans the results out into documents, subscriptions, and notifications.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"doxradar/internal/ai"
	"doxradar/internal/gmail"
	"doxradar/internal/logger"
	"doxradar/internal/models"
	"doxradar/internal/services"
)

const scanStartedTitle = "Email Auto-Scan Started"

// aiSupportedMimes restricts what is sent to the model. Every attachment is
// still saved as a document; this only guards the analysis call against
// binary formats the model cannot read.
var aiSupportedMimes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"text/plain":      true,
	"text/csv":        true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// Mailbox is the slice of the Gmail client the cycle needs.
type Mailbox interface {
	ListUnread(ctx context.Context, userID string) ([]gmail.MessageRef, error)
	GetMessage(ctx context.Context, userID, messageID string) (*gmail.Message, error)
	GetAttachment(ctx context.Context, userID, messageID, attachmentID string) ([]byte, error)
}

// UserError records a user whose scan failed.
type UserError struct {
	UserID string
	Err    error
}

// RunResult contains the outcome of one ingestion cycle.
type RunResult struct {
	UsersScanned      int
	MessagesSeen      int
	MessagesProcessed int
	DocumentsSaved    int
	Errors            []UserError
	Duration          time.Duration
}

// Options tunes a cycle.
type Options struct {
	// LookbackBuffer widens the window behind the per-user high-water mark so
	// messages delivered around the previous cutoff are not missed. The
	// email-log dedup makes re-reading them harmless.
	LookbackBuffer time.Duration
	// Workers bounds how many users are scanned concurrently.
	Workers int
}

// Cycle runs mailbox ingestion across all connected users.
type Cycle struct {
	users         services.UserServicer
	tokens        services.GmailTokenServicer
	mailbox       Mailbox
	analyzer      services.Analyzer
	documents     services.DocumentServicer
	subscriptions services.SubscriptionServicer
	notifications services.NotificationServicer
	preferences   services.PreferenceServicer
	emailLogs     services.EmailLogServicer
	opts          Options
}

// NewCycle creates a Cycle.
func NewCycle(
	users services.UserServicer,
	tokens services.GmailTokenServicer,
	mailbox Mailbox,
	analyzer services.Analyzer,
	documents services.DocumentServicer,
	subscriptions services.SubscriptionServicer,
	notifications services.NotificationServicer,
	preferences services.PreferenceServicer,
	emailLogs services.EmailLogServicer,
	opts Options,
) *Cycle {
	if opts.LookbackBuffer <= 0 {
		opts.LookbackBuffer = 2 * time.Hour
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Cycle{
		users:         users,
		tokens:        tokens,
		mailbox:       mailbox,
		analyzer:      analyzer,
		documents:     documents,
		subscriptions: subscriptions,
		notifications: notifications,
		preferences:   preferences,
		emailLogs:     emailLogs,
		opts:          opts,
	}
}

// Run executes a single ingestion cycle: list connected users and scan each
// mailbox, at most Workers at a time. A failing user never blocks the rest.
func (c *Cycle) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	connected, err := c.users.ConnectedUsers()
	if err != nil {
		return nil, err
	}
	logger.Named("ingest").Infow("starting ingestion cycle", "users", len(connected), "workers", c.opts.Workers)

	if len(connected) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.opts.Workers)

	for i := range connected {
		user := connected[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			seen, processed, saved, err := c.scanUser(ctx, &user)

			mu.Lock()
			defer mu.Unlock()
			result.UsersScanned++
			result.MessagesSeen += seen
			result.MessagesProcessed += processed
			result.DocumentsSaved += saved
			if err != nil {
				result.Errors = append(result.Errors, UserError{UserID: user.ID, Err: err})
			}
		}()
	}
	wg.Wait()

	result.Duration = time.Since(start)
	logger.Named("ingest").Infow("ingestion cycle finished",
		"users", result.UsersScanned,
		"messages_seen", result.MessagesSeen,
		"messages_processed", result.MessagesProcessed,
		"documents_saved", result.DocumentsSaved,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result, nil
}

// scanUser processes one user's mailbox and returns the number of unread
// messages seen, messages processed, and documents saved.
func (c *Cycle) scanUser(ctx context.Context, user *models.User) (seen, processed, saved int, err error) {
	log := logger.Named("ingest").With("user_id", user.ID)

	connection, err := c.tokens.Connection(user.ID)
	if err != nil {
		return 0, 0, 0, err
	}

	// Replace any stale scan-status notification with a fresh one so the
	// dashboard shows exactly one active scan entry.
	if err := c.notifications.DeleteNotificationsByTitle(user.ID, scanStartedTitle); err != nil {
		log.Warnw("failed to clear stale scan notifications", "error", err)
	}
	c.notifications.Notify(user.ID, models.NotificationInfo, scanStartedTitle,
		fmt.Sprintf("DoxRadar is actively scanning %s for new documents and subscriptions.", connection.Email), nil)

	refs, err := c.mailbox.ListUnread(ctx, user.ID)
	if err != nil {
		return 0, 0, 0, err
	}
	seen = len(refs)
	log.Infow("listed unread messages", "count", seen)

	prefs, err := c.preferences.GetPreferences(user.ID)
	if err != nil {
		return seen, 0, 0, err
	}

	// Messages older than the high-water mark minus the lookback buffer were
	// handled in a previous cycle. Inside the buffer the email log dedup
	// decides, so overlap is safe.
	var cutoff time.Time
	if user.LastIngestedAt != nil {
		cutoff = user.LastIngestedAt.Add(-c.opts.LookbackBuffer)
	}

	for _, ref := range refs {
		docs, outcome, msgErr := c.processMessage(ctx, user.ID, ref.ID, cutoff, prefs.HighCostThreshold)
		if msgErr != nil {
			log.Errorw("failed to process message", "error", msgErr, "message_id", ref.ID)
			continue
		}
		switch outcome {
		case msgProcessed:
			processed++
			saved += docs
		case msgStale:
			// Pre-cutoff mail was handled in a previous cycle and does not
			// count toward the scan summary.
			seen--
		}
	}

	// The high-water mark only advances after a full pass; a failed listing
	// or an aborted scan leaves it untouched so nothing is skipped next time.
	if err := c.users.SetLastIngestedAt(user.ID, time.Now()); err != nil {
		return seen, processed, saved, err
	}

	if err := c.notifications.DeleteNotificationsByTitle(user.ID, scanStartedTitle); err != nil {
		log.Warnw("failed to clear scan notifications", "error", err)
	}
	c.scanCompleteNotification(user.ID, seen, processed)

	return seen, processed, saved, nil
}

// msgOutcome reports what became of one listed message.
type msgOutcome int

const (
	msgProcessed msgOutcome = iota
	// msgDuplicate still counts as checked mail; a previous cycle logged it.
	msgDuplicate
	// msgStale predates the cutoff and does not count as new mail at all.
	msgStale
)

// processMessage handles one unread message.
func (c *Cycle) processMessage(ctx context.Context, userID, messageID string, cutoff time.Time, threshold float64) (int, msgOutcome, error) {
	alreadySeen, err := c.emailLogs.Seen(messageID)
	if err != nil {
		return 0, msgDuplicate, err
	}
	if alreadySeen {
		return 0, msgDuplicate, nil
	}

	msg, err := c.mailbox.GetMessage(ctx, userID, messageID)
	if err != nil {
		return 0, msgDuplicate, err
	}
	if received := msg.ReceivedAt(); !cutoff.IsZero() && received.Before(cutoff) {
		return 0, msgStale, nil
	}

	subject := msg.Header("Subject")
	if subject == "" {
		subject = "No Subject"
	}
	sender := msg.Header("From")
	if sender == "" {
		sender = "Unknown Sender"
	}

	// Download every attachment up front: they are all saved as documents,
	// whatever the AI can or cannot read.
	type attachment struct {
		ref  gmail.AttachmentRef
		data []byte
	}
	var attachments []attachment
	for _, ref := range msg.Attachments() {
		data, err := c.mailbox.GetAttachment(ctx, userID, messageID, ref.AttachmentID)
		if err != nil {
			logger.Get().Errorw("failed to fetch attachment", "error", err, "message_id", messageID, "filename", ref.Filename)
			continue
		}
		attachments = append(attachments, attachment{ref: ref, data: data})
	}

	// Analyze the first model-readable attachment, or fall back to a text
	// rendition of the message itself.
	var analysis *ai.Analysis
	analyzed := false
	for _, a := range attachments {
		if aiSupportedMimes[a.ref.MimeType] || strings.HasPrefix(a.ref.MimeType, "image/") {
			analysis = c.analyzer.Analyze(ctx, a.data, a.ref.MimeType)
			analyzed = true
			break
		}
	}
	if !analyzed {
		body := fmt.Sprintf("Subject: %s\nFrom: %s\nSnippet: %s", subject, sender, msg.Snippet)
		analysis = c.analyzer.Analyze(ctx, []byte(body), "text/plain")
	}

	entry := &models.EmailLog{
		GmailID:        messageID,
		UserID:         userID,
		Subject:        subject,
		Sender:         sender,
		Snippet:        msg.Snippet,
		Classification: analysis.SuggestedCategory,
		ExtractedData:  analysis,
	}
	if err := c.emailLogs.Record(entry); err != nil {
		return 0, msgDuplicate, err
	}

	c.emitAlerts(userID, messageID, entry.ID, subject, analysis, threshold)

	if analysis.IsSubscription.Bool() || analysis.SuggestedCategory == "Subscription" {
		if _, err := c.subscriptions.AutoLog(userID, analysis, "Email: "+subject); err != nil {
			logger.Get().Errorw("failed to auto-log subscription", "error", err, "user_id", userID, "message_id", messageID)
		}
	}

	docsSaved := 0
	for _, a := range attachments {
		upload := services.DocumentUpload{
			Filename:    a.ref.Filename,
			ContentType: a.ref.MimeType,
			Data:        a.data,
		}
		if _, err := c.documents.CreateFromIngestion(ctx, userID, upload, analysis); err != nil {
			logger.Get().Errorw("failed to save attachment as document", "error", err, "message_id", messageID, "filename", a.ref.Filename)
			continue
		}
		docsSaved++
		c.notifications.Notify(userID, models.NotificationSuccess, "📄 New Document Saved",
			fmt.Sprintf("Auto-saved %q to your Documents.", a.ref.Filename), nil)
	}

	return docsSaved, msgProcessed, nil
}

// emitAlerts raises the risk notifications an analysis calls for: scam,
// action required, and the high-cost fallback.
func (c *Cycle) emitAlerts(userID, messageID, logID, subject string, analysis *ai.Analysis, threshold float64) {
	metadata := func(severity string) map[string]any {
		return map[string]any{
			"gmail_id": messageID,
			"log_id":   logID,
			"severity": severity,
		}
	}

	scam := analysis.IsScam.Bool() || analysis.SuggestedCategory == "Scam"
	if scam {
		message := analysis.ActionRecommendation
		if message == "" {
			message = fmt.Sprintf("Suspicious email found: %q. %s", subject, analysis.ScamReason)
		}
		c.notifications.Notify(userID, models.NotificationDanger, "🚨 Scam Detected", message, metadata(analysis.SeverityLevel))
	}

	if analysis.RequiresAction.Bool() && analysis.ActionRecommendation != "" && !scam {
		title := "⚡ Action Recommended"
		if analysis.SeverityLevel == ai.SeverityCritical {
			title = "🛑 URGENT ACTION REQUIRED"
		}
		c.notifications.Notify(userID, services.NotificationTypeForSeverity(analysis.SeverityLevel), title,
			analysis.ActionRecommendation, metadata(analysis.SeverityLevel))
	}

	if monthly := services.MonthlyCost(analysis); monthly >= threshold && !analysis.RequiresAction.Bool() {
		name := "Service"
		if analysis.SubscriptionDetails != nil && analysis.SubscriptionDetails.Name != "" {
			name = analysis.SubscriptionDetails.Name
		}
		c.notifications.Notify(userID, models.NotificationWarning, "💰 High Cost Detected",
			fmt.Sprintf("New high-cost item found: %s. Cost: $%.2f/mo.", name, monthly), metadata(ai.SeverityMedium))
	}
}

// scanCompleteNotification reports the cycle outcome in the notification
// feed, with wording matched to what actually happened.
func (c *Cycle) scanCompleteNotification(userID string, seen, processed int) {
	switch {
	case processed > 0:
		c.notifications.Notify(userID, models.NotificationSuccess, "✅ Scan Complete",
			fmt.Sprintf("Successfully processed %d new document(s) and subscription(s).", processed), nil)
	case seen > 0:
		c.notifications.Notify(userID, models.NotificationInfo, "✅ Scan Complete",
			fmt.Sprintf("Checked %d new messages, but found no relevant documents or subscriptions.", seen), nil)
	default:
		c.notifications.Notify(userID, models.NotificationInfo, "✅ Scan Complete",
			"No new unread messages found in your inbox.", nil)
	}
}
