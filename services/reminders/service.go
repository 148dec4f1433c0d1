package reminders

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xorcare/pointer"

	timehelper "github.com/nvbf/quiniela/pkg/timeHelper"
	push "github.com/nvbf/quiniela/repos/push"
	resend "github.com/nvbf/quiniela/repos/resend"
	store "github.com/nvbf/quiniela/repos/store"
)

const (
	// DueBatchSize is how many due reminders one cycle picks up.
	DueBatchSize = 10

	DefaultTitle = "¡No olvides tu quiniela!"
	DefaultBody  = "Aún estás a tiempo de llenar tus pronósticos de la jornada."
	DefaultURL   = "/"

	noTokensNote = "no registered device tokens"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time, limit int) ([]store.ReminderDoc, error)
	StaleSending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	ExpireStaleReminder(ctx context.Context, id string, cutoff, now time.Time) (bool, error)
	ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error)
	MarkReminderSent(ctx context.Context, id string, outcome store.ReminderOutcome) error
	MarkReminderError(ctx context.Context, id, message string, at time.Time) error
	AllDeviceTokens(ctx context.Context) ([]store.DeviceToken, error)
	DeleteDevice(ctx context.Context, device store.DeviceToken) error
}

// Pusher sends one multicast notification.
type Pusher interface {
	SendMulticast(ctx context.Context, tokens []string, notification push.Notification) (*push.BatchResult, error)
}

// Alerter is told about reminders that ended in error. May be nil.
type Alerter interface {
	ReminderFailed(ctx context.Context, alert resend.ReminderAlert) error
}

type DispatcherService struct {
	store      Store
	pusher     Pusher
	alerter    Alerter
	clock      timehelper.Clock
	staleAfter time.Duration
	chunkSize  int
}

func NewDispatcherService(s Store, pusher Pusher, alerter Alerter, clock timehelper.Clock, staleAfter time.Duration) *DispatcherService {
	return &DispatcherService{
		store:      s,
		pusher:     pusher,
		alerter:    alerter,
		clock:      clock,
		staleAfter: staleAfter,
		chunkSize:  push.MaxMulticastTokens,
	}
}

// CycleReport counts what one dispatcher cycle did.
type CycleReport struct {
	Due     int
	Claimed int
	Sent    int
	Errored int
	Expired int
	Pruned  int
}

// RunCycle performs one sequential pass over due reminders. Stale claims are
// expired first and tokens FCM reported as unregistered are pruned last.
func (d *DispatcherService) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{}
	now := d.clock.Now()

	d.expireStale(ctx, now, report)

	docs, err := d.store.DueReminders(ctx, now, DueBatchSize)
	if err != nil {
		return report, err
	}
	if len(docs) == 0 {
		return report, nil
	}
	report.Due = len(docs)

	var due []*store.Reminder
	for _, doc := range docs {
		if doc.Err != nil {
			d.fail(ctx, doc.ID, "", fmt.Sprintf("malformed reminder: %v", doc.Err), now, report)
			continue
		}
		due = append(due, doc.Reminder)
	}
	if len(due) == 0 {
		return report, nil
	}

	devices, err := d.store.AllDeviceTokens(ctx)
	if err != nil {
		return report, err
	}

	if len(devices) == 0 {
		for _, reminder := range due {
			err := d.store.MarkReminderSent(ctx, reminder.ID, store.ReminderOutcome{
				Entregados: pointer.Int(0),
				Fallidos:   pointer.Int(0),
				SentAt:     now,
				Note:       noTokensNote,
			})
			if err != nil {
				log.Printf("[Dispatcher] Failed to mark %s sent: %v\n", reminder.ID, err)
				continue
			}
			report.Sent++
		}
		log.Printf("[Dispatcher] No device tokens, marked %d reminders sent\n", report.Sent)
		return report, nil
	}

	tokens, owners := indexDevices(devices)
	unregistered := map[string]bool{}

	for _, reminder := range due {
		claimed, err := d.store.ClaimReminder(ctx, reminder.ID, now)
		if err != nil {
			log.Printf("[Dispatcher] Claim of %s failed: %v\n", reminder.ID, err)
			continue
		}
		if !claimed {
			log.Printf("[Dispatcher] Reminder %s already handled, skipping\n", reminder.ID)
			continue
		}
		report.Claimed++

		title, body, url := resolveDisplay(reminder)
		delivered, failed, gone, err := d.send(ctx, tokens, push.Notification{
			Title: title,
			Body:  body,
			Data:  map[string]string{"url": url, "reminderId": reminder.ID},
			Path:  url,
		})
		for _, token := range gone {
			unregistered[token] = true
		}
		if err != nil {
			message := err.Error()
			if strings.TrimSpace(message) == "" {
				message = "send failed"
			}
			d.fail(ctx, reminder.ID, title, message, d.clock.Now(), report)
			continue
		}

		if err := d.recordSent(ctx, reminder.ID, delivered, failed); err != nil {
			log.Printf("[Dispatcher] Sent %s but failed to record it: %v\n", reminder.ID, err)
			d.alert(ctx, resend.ReminderAlert{
				ReminderID: reminder.ID,
				Title:      title,
				Reason:     fmt.Sprintf("delivered to %d devices but the sent status was not recorded: %v", delivered, err),
			})
			continue
		}
		report.Sent++
		log.Printf("[Dispatcher] Reminder %s: %d delivered, %d failed\n", reminder.ID, delivered, failed)
	}

	var stale []store.DeviceToken
	for token := range unregistered {
		stale = append(stale, owners[token]...)
	}
	report.Pruned = store.PruneDevices(ctx, d.store, stale)
	return report, nil
}

// send pushes one notification to every token, chunked to the multicast limit.
// Tokens reported unregistered are returned even when a later chunk errors.
func (d *DispatcherService) send(ctx context.Context, tokens []string, notification push.Notification) (delivered, failed int, unregistered []string, err error) {
	for _, chunk := range push.Chunk(tokens, d.chunkSize) {
		result, err := d.pusher.SendMulticast(ctx, chunk, notification)
		if err != nil {
			return delivered, failed, unregistered, err
		}
		delivered += result.SuccessCount
		failed += result.FailureCount
		unregistered = append(unregistered, result.Unregistered...)
	}
	return delivered, failed, unregistered, nil
}

// recordSent writes the sent outcome, retrying once. A reminder left in
// "sending" is later expired as an error even though it was delivered.
func (d *DispatcherService) recordSent(ctx context.Context, id string, delivered, failed int) error {
	outcome := store.ReminderOutcome{
		Entregados: pointer.Int(delivered),
		Fallidos:   pointer.Int(failed),
		SentAt:     d.clock.Now(),
	}
	err := d.store.MarkReminderSent(ctx, id, outcome)
	if err == nil {
		return nil
	}
	log.Printf("[Dispatcher] Recording %s as sent failed, retrying: %v\n", id, err)
	return d.store.MarkReminderSent(ctx, id, outcome)
}

func (d *DispatcherService) expireStale(ctx context.Context, now time.Time, report *CycleReport) {
	if d.staleAfter <= 0 {
		return
	}
	cutoff := now.Add(-d.staleAfter)
	ids, err := d.store.StaleSending(ctx, cutoff, DueBatchSize)
	if err != nil {
		log.Printf("[Dispatcher] Stale sweep failed: %v\n", err)
		return
	}
	for _, id := range ids {
		expired, err := d.store.ExpireStaleReminder(ctx, id, cutoff, now)
		if err != nil {
			log.Printf("[Dispatcher] Could not expire %s: %v\n", id, err)
			continue
		}
		if expired {
			report.Expired++
			d.alert(ctx, resend.ReminderAlert{ReminderID: id, Reason: "claim expired while sending"})
		}
	}
}

func (d *DispatcherService) fail(ctx context.Context, id, title, message string, at time.Time, report *CycleReport) {
	if err := d.store.MarkReminderError(ctx, id, message, at); err != nil {
		log.Printf("[Dispatcher] Failed to mark %s as error: %v\n", id, err)
		return
	}
	report.Errored++
	log.Printf("[Dispatcher] Reminder %s failed: %s\n", id, message)
	d.alert(ctx, resend.ReminderAlert{ReminderID: id, Title: title, Reason: message})
}

func (d *DispatcherService) alert(ctx context.Context, alert resend.ReminderAlert) {
	if d.alerter == nil {
		return
	}
	if err := d.alerter.ReminderFailed(ctx, alert); err != nil {
		log.Printf("[Dispatcher] Alert for %s not sent: %v\n", alert.ReminderID, err)
	}
}

func resolveDisplay(reminder *store.Reminder) (title, body, url string) {
	title = orDefault(reminder.Title, DefaultTitle)
	body = orDefault(reminder.Body, DefaultBody)
	url = orDefault(reminder.URL, DefaultURL)
	return title, body, url
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// indexDevices returns the distinct tokens in first-seen order and, per token,
// every registration that carries it.
func indexDevices(devices []store.DeviceToken) ([]string, map[string][]store.DeviceToken) {
	owners := make(map[string][]store.DeviceToken, len(devices))
	var tokens []string
	for _, device := range devices {
		if _, seen := owners[device.Token]; !seen {
			tokens = append(tokens, device.Token)
		}
		owners[device.Token] = append(owners[device.Token], device)
	}
	return tokens, owners
}
