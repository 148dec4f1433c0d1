package reminders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	timehelper "github.com/nvbf/quiniela/pkg/timeHelper"
	push "github.com/nvbf/quiniela/repos/push"
	resend "github.com/nvbf/quiniela/repos/resend"
	store "github.com/nvbf/quiniela/repos/store"
)

var now = time.Date(2024, 9, 14, 18, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu            sync.Mutex
	reminders     map[string]*store.Reminder
	malformed     map[string]error
	devices       []store.DeviceToken
	deleted       []store.DeviceToken
	deleteErr     map[string]error
	skewedQuery   bool
	tokenReads    int
	markSentCalls int
	failMarkSent  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reminders: map[string]*store.Reminder{},
		malformed: map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (f *fakeStore) addReminder(id string, sendAt time.Time, title string) {
	f.reminders[id] = &store.Reminder{ID: id, Title: title, Status: store.ReminderPending, SendAt: sendAt}
}

func (f *fakeStore) addDevices(uid string, tokens ...string) {
	for _, token := range tokens {
		f.devices = append(f.devices, store.DeviceToken{UserID: uid, Token: token, DocID: token})
	}
}

func (f *fakeStore) DueReminders(_ context.Context, at time.Time, limit int) ([]store.ReminderDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []*store.Reminder
	for _, r := range f.reminders {
		if r.Status == store.ReminderPending && (f.skewedQuery || !r.SendAt.After(at)) {
			copied := *r
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].SendAt.Before(due[j].SendAt) })

	var docs []store.ReminderDoc
	for id, err := range f.malformed {
		docs = append(docs, store.ReminderDoc{ID: id, Err: err})
	}
	for _, r := range due {
		docs = append(docs, store.ReminderDoc{ID: r.ID, Reminder: r})
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (f *fakeStore) StaleSending(_ context.Context, cutoff time.Time, _ int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, r := range f.reminders {
		if r.Status == store.ReminderSending && !r.LastAttemptAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) ExpireStaleReminder(_ context.Context, id string, cutoff, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.reminders[id]
	if r.Status != store.ReminderSending || r.LastAttemptAt.After(cutoff) {
		return false, nil
	}
	r.Status = store.ReminderError
	r.Error = "claim expired while sending"
	r.LastAttemptAt = at
	return true, nil
}

func (f *fakeStore) ClaimReminder(_ context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok || r.Status != store.ReminderPending || r.SendAt.After(at) {
		return false, nil
	}
	r.Status = store.ReminderSending
	r.LastAttemptAt = at
	return true, nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id string, outcome store.ReminderOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markSentCalls++
	if f.failMarkSent > 0 {
		f.failMarkSent--
		return errors.New("deadline exceeded")
	}
	r := f.reminders[id]
	r.Status = store.ReminderSent
	r.Entregados = outcome.Entregados
	r.Fallidos = outcome.Fallidos
	r.SentAt = outcome.SentAt
	r.Note = outcome.Note
	r.Error = ""
	return nil
}

func (f *fakeStore) MarkReminderError(_ context.Context, id, message string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok {
		r = &store.Reminder{ID: id}
		f.reminders[id] = r
		delete(f.malformed, id)
	}
	r.Status = store.ReminderError
	r.Error = message
	r.LastAttemptAt = at
	return nil
}

func (f *fakeStore) AllDeviceTokens(context.Context) ([]store.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenReads++
	return append([]store.DeviceToken(nil), f.devices...), nil
}

func (f *fakeStore) DeleteDevice(_ context.Context, device store.DeviceToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[device.Token]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, device)
	return nil
}

type sendCall struct {
	tokens       []string
	notification push.Notification
}

type fakePusher struct {
	mu           sync.Mutex
	calls        []sendCall
	unregistered map[string]bool
	rejected     map[string]bool
	err          error
	delay        time.Duration
}

func (p *fakePusher) SendMulticast(_ context.Context, tokens []string, n push.Notification) (*push.BatchResult, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, sendCall{tokens: tokens, notification: n})
	if p.err != nil {
		return nil, p.err
	}
	result := &push.BatchResult{}
	for _, token := range tokens {
		switch {
		case p.unregistered[token]:
			result.FailureCount++
			result.Unregistered = append(result.Unregistered, token)
		case p.rejected[token]:
			result.FailureCount++
		default:
			result.SuccessCount++
		}
	}
	return result, nil
}

func (p *fakePusher) sendsByReminder() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string]int{}
	for _, call := range p.calls {
		out[call.notification.Data["reminderId"]]++
	}
	return out
}

type fakeAlerter struct {
	alerts []resend.ReminderAlert
}

func (a *fakeAlerter) ReminderFailed(_ context.Context, alert resend.ReminderAlert) error {
	a.alerts = append(a.alerts, alert)
	return nil
}

func newDispatcher(s *fakeStore, p *fakePusher, a Alerter) *DispatcherService {
	return NewDispatcherService(s, p, a, timehelper.FixedClock{T: now}, 15*time.Minute)
}

func TestRunCycleNoDueRemindersIsNoop(t *testing.T) {
	fake := newFakeStore()
	fake.addReminder("later", now.Add(time.Hour), "Later")
	fake.addDevices("u1", "t1")
	pusher := &fakePusher{}

	report, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleReport{}, *report)
	assert.Empty(t, pusher.calls)
	assert.Equal(t, 0, fake.tokenReads, "tokens are not read when nothing is due")
	assert.Equal(t, store.ReminderPending, fake.reminders["later"].Status)
}

func TestRunCycleWithoutTokensMarksSent(t *testing.T) {
	fake := newFakeStore()
	fake.addReminder("r1", now.Add(-time.Minute), "Uno")
	fake.addReminder("r2", now.Add(-2*time.Minute), "Dos")
	pusher := &fakePusher{}

	report, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Empty(t, pusher.calls)

	for _, id := range []string{"r1", "r2"} {
		r := fake.reminders[id]
		assert.Equal(t, store.ReminderSent, r.Status)
		require.NotNil(t, r.Entregados)
		assert.Equal(t, 0, *r.Entregados)
		assert.Equal(t, 0, *r.Fallidos)
		assert.Equal(t, noTokensNote, r.Note)
	}
}

func TestRunCycleSendsInChunksEarliestFirst(t *testing.T) {
	fake := newFakeStore()
	fake.addReminder("late", now.Add(-time.Minute), "Late")
	fake.addReminder("early", now.Add(-time.Hour), "")
	for i := 0; i < 1201; i++ {
		fake.addDevices(fmt.Sprintf("u%d", i), fmt.Sprintf("token-%d", i))
	}
	pusher := &fakePusher{rejected: map[string]bool{"token-7": true}}

	report, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Claimed)
	assert.Equal(t, 2, report.Sent)

	require.Len(t, pusher.calls, 6)
	assert.Equal(t, "early", pusher.calls[0].notification.Data["reminderId"])
	assert.Equal(t, "late", pusher.calls[3].notification.Data["reminderId"])
	assert.Len(t, pusher.calls[0].tokens, 500)
	assert.Len(t, pusher.calls[1].tokens, 500)
	assert.Len(t, pusher.calls[2].tokens, 201)

	first := pusher.calls[0].notification
	assert.Equal(t, DefaultTitle, first.Title, "blank title falls back to the default")
	assert.Equal(t, DefaultBody, first.Body)
	assert.Equal(t, DefaultURL, first.Data["url"])

	early := fake.reminders["early"]
	assert.Equal(t, store.ReminderSent, early.Status)
	assert.Equal(t, 1200, *early.Entregados)
	assert.Equal(t, 1, *early.Fallidos)
	assert.Equal(t, now, early.SentAt)
	assert.Empty(t, fake.deleted, "rejected but registered tokens are kept")
}

func TestRunCyclePrunesOnlyUnregisteredToken(t *testing.T) {
	fake := newFakeStore()
	fake.addReminder("r1", now.Add(-time.Minute), "Jornada 15")
	fake.addDevices("u1", "token-1")
	fake.addDevices("u2", "token-2")
	fake.addDevices("u3", "token-3")
	pusher := &fakePusher{unregistered: map[string]bool{"token-2": true}}

	report, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, []store.DeviceToken{{UserID: "u2", Token: "token-2", DocID: "token-2"}}, fake.deleted)

	r := fake.reminders["r1"]
	assert.Equal(t, store.ReminderSent, r.Status)
	assert.Equal(t, 2, *r.Entregados)
	assert.Equal(t, 1, *r.Fallidos)
}

func TestRunCyclePruneFailureDoesNotAffectReminder(t *testing.T) {
	fake := newFakeStore()
	fake.addReminder("r1", now.Add(-time.Minute), "Jornada 15")
	fake.addDevices("u1", "gone-1", "gone-2", "ok")
	fake.deleteErr["gone-1"] = errors.New("permission denied")
	pusher := &fakePusher{unregistered: map[string]bool{"gone-1": true, "gone-2": true}}

	report, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, "gone-2", fake.deleted[0].Token)
	assert.Equal(t, store.ReminderSent, fake.reminders["r1"].Status)
}

func TestRunCycleSendErrorMarksReminderError(t *testing.T) {
	fake := newFakeStore()
	fake.addReminder("r1", now.Add(-time.Minute), "Jornada 15")
	fake.addDevices("u1", "t1")
	pusher := &fakePusher{err: errors.New("fcm unavailable")}
	alerter := &fakeAlerter{}

	report, err := newDispatcher(fake, pusher, alerter).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errored)

	r := fake.reminders["r1"]
	assert.Equal(t, store.ReminderError, r.Status)
	assert.Contains(t, r.Error, "fcm unavailable")
	assert.Nil(t, r.Entregados)
	assert.Nil(t, r.Fallidos)
	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, "r1", alerter.alerts[0].ReminderID)

	// Errored reminders are not picked up again.
	pusher.err = nil
	report, err = newDispatcher(fake, pusher, alerter).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
}

func TestRunCycleRetriesSentWriteOnce(t *testing.T) {
	fake := newFakeStore()
	fake.failMarkSent = 1
	fake.addReminder("r1", now.Add(-time.Minute), "Jornada 15")
	fake.addDevices("u1", "t1")
	alerter := &fakeAlerter{}

	report, err := newDispatcher(fake, &fakePusher{}, alerter).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 2, fake.markSentCalls)
	assert.Equal(t, store.ReminderSent, fake.reminders["r1"].Status)
	assert.Empty(t, alerter.alerts)
}

func TestRunCycleAlertsWhenSentWriteKeepsFailing(t *testing.T) {
	fake := newFakeStore()
	fake.failMarkSent = 2
	fake.addReminder("r1", now.Add(-time.Minute), "Jornada 15")
	fake.addDevices("u1", "t1")
	alerter := &fakeAlerter{}

	report, err := newDispatcher(fake, &fakePusher{}, alerter).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, store.ReminderSending, fake.reminders["r1"].Status)
	require.Len(t, alerter.alerts, 1)
	assert.Contains(t, alerter.alerts[0].Reason, "delivered to 1 devices")
	assert.Contains(t, alerter.alerts[0].Reason, "deadline exceeded")
}

func TestRunCycleNeverClaimsFutureReminder(t *testing.T) {
	fake := newFakeStore()
	fake.skewedQuery = true
	fake.addReminder("future", now.Add(30*time.Second), "Pronto")
	fake.addDevices("u1", "t1")
	pusher := &fakePusher{}

	report, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 0, report.Claimed)
	assert.Empty(t, pusher.calls)
	assert.Equal(t, store.ReminderPending, fake.reminders["future"].Status)
}

func TestConcurrentCyclesSendEachReminderOnce(t *testing.T) {
	fake := newFakeStore()
	for i := 0; i < 5; i++ {
		fake.addReminder(fmt.Sprintf("r%d", i), now.Add(-time.Duration(i+1)*time.Minute), "Hola")
	}
	fake.addDevices("u1", "t1", "t2", "t3")
	pusher := &fakePusher{delay: time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sends := pusher.sendsByReminder()
	require.Len(t, sends, 5)
	for id, count := range sends {
		assert.Equal(t, 1, count, "reminder %s sent more than once", id)
		assert.Equal(t, store.ReminderSent, fake.reminders[id].Status)
	}
	assert.Equal(t, 5, fake.markSentCalls)
}

func TestRunCycleMalformedReminderGoesToError(t *testing.T) {
	fake := newFakeStore()
	fake.malformed["broken"] = errors.New("consistency error. field \"title\" is int64, want string")
	fake.addDevices("u1", "t1")
	pusher := &fakePusher{}

	report, err := newDispatcher(fake, pusher, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errored)
	assert.Empty(t, pusher.calls)
	assert.Equal(t, store.ReminderError, fake.reminders["broken"].Status)
	assert.Contains(t, fake.reminders["broken"].Error, "malformed reminder")
}

func TestRunCycleExpiresStaleSending(t *testing.T) {
	fake := newFakeStore()
	fake.reminders["stuck"] = &store.Reminder{
		ID: "stuck", Status: store.ReminderSending, SendAt: now.Add(-time.Hour), LastAttemptAt: now.Add(-20 * time.Minute),
	}
	fake.reminders["busy"] = &store.Reminder{
		ID: "busy", Status: store.ReminderSending, SendAt: now.Add(-time.Hour), LastAttemptAt: now.Add(-time.Minute),
	}
	alerter := &fakeAlerter{}

	report, err := newDispatcher(fake, &fakePusher{}, alerter).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, store.ReminderError, fake.reminders["stuck"].Status)
	assert.Equal(t, store.ReminderSending, fake.reminders["busy"].Status)
	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, "stuck", alerter.alerts[0].ReminderID)
}
