package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nevar-bot/nevar-v6-sub000/internal/common/errors"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/repository"
)

type fakeReminderRepo struct {
	mu        sync.Mutex
	byOwner   map[member.Key][]models.Reminder
	deleteErr error
	deletes   int
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{byOwner: make(map[member.Key][]models.Reminder)}
}

func (f *fakeReminderRepo) ListOwners(ctx context.Context) ([]models.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Owner
	for k, rs := range f.byOwner {
		if len(rs) > 0 {
			out = append(out, models.Owner{Key: k, Reminders: append([]models.Reminder(nil), rs...)})
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) ListByOwner(ctx context.Context, key member.Key) ([]models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Reminder(nil), f.byOwner[key]...), nil
}

func (f *fakeReminderRepo) Insert(ctx context.Context, key member.Key, r models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.byOwner[key] {
		if cur.Label == r.Label {
			return repository.ErrDuplicateLabel
		}
	}
	f.byOwner[key] = append(f.byOwner[key], r)
	return nil
}

func (f *fakeReminderRepo) Delete(ctx context.Context, key member.Key, label string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	rs := f.byOwner[key]
	for i, r := range rs {
		if r.Label == label {
			f.byOwner[key] = append(rs[:i:i], rs[i+1:]...)
			f.deletes++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReminderRepo) DeleteInstance(ctx context.Context, key member.Key, r models.Reminder) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	rs := f.byOwner[key]
	for i, cur := range rs {
		if cur.Label == r.Label && cur.StartedAt.Equal(r.StartedAt) {
			f.byOwner[key] = append(rs[:i:i], rs[i+1:]...)
			f.deletes++
			return true, nil
		}
	}
	return false, nil
}

type sent struct {
	channelID string
	content   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	errs map[string]error
	// onSend runs after a successful send, outside the lock.
	onSend func()
}

func (f *fakeNotifier) SendMessage(ctx context.Context, channelID string, msg message.Message) (string, error) {
	f.mu.Lock()
	if err := f.errs[channelID]; err != nil {
		f.mu.Unlock()
		return "", err
	}
	f.sent = append(f.sent, sent{channelID: channelID, content: msg.Content})
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return "msg", nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *fakeReminderRepo, n *fakeNotifier) *Service {
	svc := NewReminderService(repo, NewCache(), n, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestService_AddDuplicateLabel(t *testing.T) {
	ctx := context.Background()
	repo := newFakeReminderRepo()
	svc := newTestService(repo, &fakeNotifier{})
	key := member.NewKey("m1", "g1")

	r, err := svc.Add(ctx, key, models.AddInput{Label: "Test", Duration: 10 * time.Second, ChannelID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(10*time.Second), r.ExpiresAt)

	_, err = svc.Add(ctx, key, models.AddInput{Label: "Test", Duration: 10 * time.Second, ChannelID: "c1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDuplicateName))

	list, err := svc.List(ctx, key)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	owner, ok := svc.cache.Get(key)
	require.True(t, ok)
	assert.Len(t, owner.Reminders, 1)
}

func TestService_AddValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeReminderRepo(), &fakeNotifier{})
	key := member.NewKey("m1", "g1")

	tests := []struct {
		name string
		key  member.Key
		in   models.AddInput
	}{
		{"empty label", key, models.AddInput{Label: " ", Duration: time.Minute, ChannelID: "c1"}},
		{"too short", key, models.AddInput{Label: "a", Duration: time.Second, ChannelID: "c1"}},
		{"no channel", key, models.AddInput{Label: "a", Duration: time.Minute}},
		{"no owner", member.Key{}, models.AddInput{Label: "a", Duration: time.Minute, ChannelID: "c1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.key, tt.in)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		})
	}
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeReminderRepo(), &fakeNotifier{})
	key := member.NewKey("m1", "g1")

	_, err := svc.Add(ctx, key, models.AddInput{Label: "a", Duration: time.Minute, ChannelID: "c1"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, key, models.AddInput{Label: "b", Duration: time.Minute, ChannelID: "c1"})
	require.NoError(t, err)

	ok, err := svc.Remove(ctx, key, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	owner, _ := svc.cache.Get(key)
	assert.Len(t, owner.Reminders, 1)

	ok, err = svc.Remove(ctx, key, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Remove(ctx, key, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	_, cached := svc.cache.Get(key)
	assert.False(t, cached, "empty owners are dropped from the cache")
}

func TestService_DispatchDueExactlyOnce(t *testing.T) {
	ctx := context.Background()
	repo, n := newFakeReminderRepo(), &fakeNotifier{}
	key := member.NewKey("m1", "g1")
	repo.byOwner[key] = []models.Reminder{
		{Label: "due", StartedAt: testNow.Add(-time.Hour), ExpiresAt: testNow.Add(-time.Second), ChannelID: "c1"},
		{Label: "later", StartedAt: testNow, ExpiresAt: testNow.Add(time.Hour), ChannelID: "c1"},
	}
	svc := newTestService(repo, n)
	_, err := svc.Warm(ctx)
	require.NoError(t, err)

	delivered, failed := svc.DispatchDue(ctx)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 0, failed)

	delivered, _ = svc.DispatchDue(ctx)
	assert.Equal(t, 0, delivered)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "c1", n.sent[0].channelID)
	assert.Contains(t, n.sent[0].content, "<@m1>")
	assert.Contains(t, n.sent[0].content, "**due**")

	list, _ := svc.List(ctx, key)
	assert.Equal(t, []string{"later"}, labels(list))
	owner, ok := svc.cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"later"}, labels(owner.Reminders))
}

func TestService_DispatchDueIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	repo := newFakeReminderRepo()
	n := &fakeNotifier{errs: map[string]error{"broken": errors.New("rate limited")}}
	a, b := member.NewKey("m1", "g1"), member.NewKey("m2", "g1")
	repo.byOwner[a] = []models.Reminder{{Label: "x", ExpiresAt: testNow, ChannelID: "broken"}}
	repo.byOwner[b] = []models.Reminder{{Label: "y", ExpiresAt: testNow, ChannelID: "ok"}}
	svc := newTestService(repo, n)
	_, err := svc.Warm(ctx)
	require.NoError(t, err)

	delivered, failed := svc.DispatchDue(ctx)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, failed)

	_, ok := svc.cache.Get(a)
	assert.True(t, ok, "failed reminder is retried next tick")
	_, ok = svc.cache.Get(b)
	assert.False(t, ok)
}

func TestService_DispatchDueRetriesVanishedChannel(t *testing.T) {
	ctx := context.Background()
	repo := newFakeReminderRepo()
	n := &fakeNotifier{errs: map[string]error{"gone": message.ErrNotFound}}
	key := member.NewKey("m1", "g1")
	repo.byOwner[key] = []models.Reminder{{Label: "x", ExpiresAt: testNow, ChannelID: "gone"}}
	svc := newTestService(repo, n)
	_, err := svc.Warm(ctx)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		delivered, failed := svc.DispatchDue(ctx)
		assert.Equal(t, 0, delivered)
		assert.Equal(t, 1, failed)
	}
	assert.Equal(t, 1, svc.cache.Len())
	list, _ := svc.List(ctx, key)
	assert.Len(t, list, 1)

	delete(n.errs, "gone")
	delivered, _ := svc.DispatchDue(ctx)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 0, svc.cache.Len())
}

func TestService_DispatchDueKeepsReaddedLabel(t *testing.T) {
	ctx := context.Background()
	repo, n := newFakeReminderRepo(), &fakeNotifier{}
	key := member.NewKey("m1", "g1")
	repo.byOwner[key] = []models.Reminder{
		{Label: "Test", StartedAt: testNow.Add(-time.Hour), ExpiresAt: testNow.Add(-time.Second), ChannelID: "c1"},
	}
	svc := newTestService(repo, n)
	_, err := svc.Warm(ctx)
	require.NoError(t, err)

	// The owner replaces the reminder while the old one is being delivered.
	n.onSend = func() {
		n.onSend = nil
		ok, err := svc.Remove(ctx, key, "Test")
		require.NoError(t, err)
		require.True(t, ok)
		_, err = svc.Add(ctx, key, models.AddInput{Label: "Test", Duration: time.Hour, ChannelID: "c1"})
		require.NoError(t, err)
	}

	delivered, failed := svc.DispatchDue(ctx)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 0, failed)

	list, _ := svc.List(ctx, key)
	require.Len(t, list, 1)
	assert.Equal(t, testNow.Add(time.Hour), list[0].ExpiresAt)
	owner, ok := svc.cache.Get(key)
	require.True(t, ok)
	require.Len(t, owner.Reminders, 1)
	assert.Equal(t, testNow, owner.Reminders[0].StartedAt)
}

func TestService_AddTruncatesToStorePrecision(t *testing.T) {
	svc := newTestService(newFakeReminderRepo(), &fakeNotifier{})
	svc.now = func() time.Time { return testNow.Add(1500 * time.Nanosecond) }

	r, err := svc.Add(context.Background(), member.NewKey("m1", "g1"), models.AddInput{Label: "a", Duration: time.Minute, ChannelID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Microsecond), r.StartedAt)
	assert.Equal(t, testNow.Add(time.Minute+time.Microsecond), r.ExpiresAt)
}

func TestDispatcher_Process(t *testing.T) {
	d := NewDispatcher(newTestService(newFakeReminderRepo(), &fakeNotifier{}))
	assert.Equal(t, "reminder-dispatcher", d.Name())
	assert.NoError(t, d.Process(context.Background()))
}

func labels(rs []models.Reminder) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Label)
	}
	return out
}
