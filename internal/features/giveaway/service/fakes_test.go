package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/models"
)

type fakeGiveawayRepo struct {
	mu        sync.Mutex
	byID      map[string]models.Giveaway
	createErr error
	endErr    map[string]error
}

func newFakeGiveawayRepo() *fakeGiveawayRepo {
	return &fakeGiveawayRepo{byID: make(map[string]models.Giveaway), endErr: make(map[string]error)}
}

func clone(g models.Giveaway) *models.Giveaway {
	g.EntrantIDs = append([]string{}, g.EntrantIDs...)
	g.WinnerIDs = append([]string{}, g.WinnerIDs...)
	g.ExemptMemberIDs = append([]string{}, g.ExemptMemberIDs...)
	return &g
}

func (f *fakeGiveawayRepo) put(g models.Giveaway) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[g.MessageID] = *clone(g)
}

func (f *fakeGiveawayRepo) Create(ctx context.Context, g *models.Giveaway) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.byID[g.MessageID] = *clone(*g)
	return nil
}

func (f *fakeGiveawayRepo) GetByMessageID(ctx context.Context, id string) (*models.Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(g), nil
}

func (f *fakeGiveawayRepo) ListAll(ctx context.Context) ([]*models.Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Giveaway
	for _, g := range f.byID {
		out = append(out, clone(g))
	}
	return out, nil
}

func (f *fakeGiveawayRepo) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Giveaway
	for _, g := range f.byID {
		if !g.Ended {
			out = append(out, clone(g))
		}
	}
	return out, nil
}

func (f *fakeGiveawayRepo) AddEntrant(ctx context.Context, id, memberID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byID[id]
	if !ok || g.Ended || g.HasEntrant(memberID) {
		return false, nil
	}
	g.EntrantIDs = append(append([]string{}, g.EntrantIDs...), memberID)
	f.byID[id] = g
	return true, nil
}

func (f *fakeGiveawayRepo) RemoveEntrant(ctx context.Context, id, memberID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byID[id]
	if !ok || g.Ended || !g.HasEntrant(memberID) {
		return false, nil
	}
	g.EntrantIDs = without(g.EntrantIDs, memberID)
	f.byID[id] = g
	return true, nil
}

func (f *fakeGiveawayRepo) MarkEnded(ctx context.Context, id string, endAt time.Time, winners []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.endErr[id]; err != nil {
		return false, err
	}
	g, ok := f.byID[id]
	if !ok || g.Ended {
		return false, nil
	}
	g.Ended, g.EndAt, g.WinnerIDs = true, endAt, append([]string{}, winners...)
	f.byID[id] = g
	return true, nil
}

func (f *fakeGiveawayRepo) UpdateWinners(ctx context.Context, id string, winners []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byID[id]
	if !ok || !g.Ended {
		return false, nil
	}
	g.WinnerIDs = append([]string{}, winners...)
	f.byID[id] = g
	return true, nil
}

func (f *fakeGiveawayRepo) UpdateDetails(ctx context.Context, id, prize string, winnerCount int, endAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byID[id]
	if !ok || g.Ended {
		return false, nil
	}
	g.Prize, g.WinnerCount, g.EndAt = prize, winnerCount, endAt
	f.byID[id] = g
	return true, nil
}

func (f *fakeGiveawayRepo) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	delete(f.byID, id)
	return ok, nil
}

type postedMessage struct {
	channelID string
	messageID string
	msg       message.Message
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []postedMessage
	edits   []postedMessage
	deleted []string
	sendErr error
	gone    map[string]bool
}

func (f *fakeMessenger) SendMessage(ctx context.Context, channelID string, msg message.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	id := fmt.Sprintf("msg%d", f.nextID)
	f.sent = append(f.sent, postedMessage{channelID: channelID, messageID: id, msg: msg})
	return id, nil
}

func (f *fakeMessenger) EditMessage(ctx context.Context, channelID, messageID string, msg message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, postedMessage{channelID: channelID, messageID: messageID, msg: msg})
	return nil
}

func (f *fakeMessenger) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) FetchMessage(ctx context.Context, channelID, messageID string) (*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[messageID] {
		return nil, message.ErrNotFound
	}
	return &message.Message{}, nil
}

func (f *fakeMessenger) lastEdit() message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return message.Message{}
	}
	return f.edits[len(f.edits)-1].msg
}

// announcements returns sent messages that are not giveaway renders.
func (f *fakeMessenger) announcements() []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []message.Message
	for _, p := range f.sent {
		if !p.msg.EntryButton {
			out = append(out, p.msg)
		}
	}
	return out
}

type fakeDirectory struct {
	mu       sync.Mutex
	profiles map[string]*member.Profile
	created  map[string]time.Time
	err      error
}

func (f *fakeDirectory) Member(ctx context.Context, guildID, memberID string) (*member.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[memberID]
	if !ok {
		return nil, message.ErrNotFound
	}
	return p, nil
}

func (f *fakeDirectory) AccountCreatedAt(memberID string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.created[memberID]
	if !ok {
		return time.Time{}, errors.New("invalid snowflake")
	}
	return t, nil
}

type fakeLevels struct {
	mu     sync.Mutex
	levels map[string]int
	err    error
}

func (f *fakeLevels) Level(ctx context.Context, key member.Key) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.levels[key.MemberID], nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	repo      *fakeGiveawayRepo
	messenger *fakeMessenger
	directory *fakeDirectory
	levels    *fakeLevels
	manager   *Manager
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:      newFakeGiveawayRepo(),
		messenger: &fakeMessenger{gone: map[string]bool{}},
		directory: &fakeDirectory{profiles: map[string]*member.Profile{}, created: map[string]time.Time{}},
		levels:    &fakeLevels{levels: map[string]int{}},
	}
	env.manager = NewManager(env.repo, env.messenger, env.directory, env.levels, zerolog.Nop())
	env.manager.now = func() time.Time { return testNow }
	return env
}

// seed stores a scheduled giveaway ending an hour after testNow.
func (e *testEnv) seed(id string, winnerCount int, entrants []string, reqs models.RequirementSet) models.Giveaway {
	g := models.Giveaway{
		MessageID:    id,
		ChannelID:    "c1",
		GuildID:      "g1",
		StartAt:      testNow.Add(-time.Hour),
		EndAt:        testNow.Add(time.Hour),
		WinnerCount:  winnerCount,
		Prize:        "Nitro",
		HostedBy:     "host",
		EntrantIDs:   entrants,
		Requirements: reqs,
	}
	e.repo.put(g)
	return g
}
