package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/piabot/piastats/internal/adapter/memory"
	"github.com/piabot/piastats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedReport struct {
	ChannelID     string
	Title         string
	SentLines     []string
	ReceivedLines []string
}

type publishedNotice struct {
	ChannelID string
	Text      string
}

type mockPublisher struct {
	mu        sync.Mutex
	reports   []publishedReport
	notices   []publishedNotice
	reportErr error
	noticeErr error
}

func (m *mockPublisher) PublishReport(_ context.Context, channelID, title string, sentLines, receivedLines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reportErr != nil {
		return m.reportErr
	}
	m.reports = append(m.reports, publishedReport{ChannelID: channelID, Title: title, SentLines: sentLines, ReceivedLines: receivedLines})
	return nil
}

func (m *mockPublisher) PublishNotice(_ context.Context, channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noticeErr != nil {
		return m.noticeErr
	}
	m.notices = append(m.notices, publishedNotice{ChannelID: channelID, Text: text})
	return nil
}

func (m *mockPublisher) getReports() []publishedReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]publishedReport, len(m.reports))
	copy(result, m.reports)
	return result
}

func (m *mockPublisher) getNotices() []publishedNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]publishedNotice, len(m.notices))
	copy(result, m.notices)
	return result
}

type mockGuard struct {
	mu       sync.Mutex
	allow    bool
	err      error
	acquired []string
}

func (m *mockGuard) Acquire(_ context.Context, guildID string, slot time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired = append(m.acquired, guildID+"@"+slot.UTC().Format(time.RFC3339))
	return m.allow, m.err
}

// dispatcherFixture wires a dispatcher over the in-memory store with a fake
// clock pinned to a Monday morning in Tokyo.
type dispatcherFixture struct {
	dispatcher *Dispatcher
	store      *memory.Store
	publisher  *mockPublisher
	clock      *clockwork.FakeClock
	loc        *time.Location
}

// mondayNine is Monday 2025-03-10 09:00 in Asia/Tokyo.
func mondayNine(t *testing.T) (time.Time, *time.Location) {
	t.Helper()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, tokyo)
	require.Equal(t, time.Monday, at.Weekday())
	return at, tokyo
}

func newDispatcherFixture(t *testing.T, at time.Time, loc *time.Location, guard domain.SlotGuard) *dispatcherFixture {
	t.Helper()
	store := memory.NewStore()
	publisher := &mockPublisher{}
	clock := clockwork.NewFakeClockAt(at)
	return &dispatcherFixture{
		dispatcher: NewDispatcher(store, store, store.Names(), publisher, guard, clock, loc, time.Minute),
		store:      store,
		publisher:  publisher,
		clock:      clock,
		loc:        loc,
	}
}

func (f *dispatcherFixture) configureGuild(t *testing.T, guildID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SetMarker(ctx, guildID, "⭐"))
	require.NoError(t, f.store.SetChannel(ctx, guildID, "chan-"+guildID))
	require.NoError(t, f.store.SetWeekday(ctx, guildID, time.Monday))
	require.NoError(t, f.store.SetTime(ctx, guildID, "09:00"))
}

// seedWeek writes daily counts into the completed-days window.
func (f *dispatcherFixture) seedWeek(t *testing.T, guildID, memberID string, sent, received int) {
	t.Helper()
	ctx := context.Background()
	day := domain.DayOf(f.clock.Now().In(f.loc)).AddDays(-1)
	for i := 0; i < sent; i++ {
		require.NoError(t, f.store.IncrementDailySent(ctx, guildID, memberID, day))
	}
	for i := 0; i < received; i++ {
		require.NoError(t, f.store.IncrementDailyReceived(ctx, guildID, memberID, day))
	}
}

func TestDispatcher_PublishesOnMatchingSlot(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)
	f.configureGuild(t, "g1")
	f.seedWeek(t, "g1", "alice", 3, 0)
	f.seedWeek(t, "g1", "bob", 1, 2)
	require.NoError(t, f.store.Names().Save(context.Background(), "g1", "alice", "ありす"))

	f.dispatcher.tick(context.Background())

	reports := f.publisher.getReports()
	require.Len(t, reports, 1)
	assert.Equal(t, "chan-g1", reports[0].ChannelID)
	assert.Equal(t, "【毎週集計】", reports[0].Title)
	assert.Equal(t, []string{
		"giveAward:",
		"1位: ありす さん（⭐ × 3）",
		"2位: bob さん（⭐ × 1）",
	}, reports[0].SentLines)
	assert.Equal(t, []string{
		"receiveAward:",
		"1位: bob さん（⭐ × 2）",
	}, reports[0].ReceivedLines)

	settings, err := f.store.Get(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, settings.LastDispatchAt)
	assert.Equal(t, at.Unix(), settings.LastDispatchAt.Unix())
}

func TestDispatcher_IgnoresNonMatchingSlots(t *testing.T) {
	at, tokyo := mondayNine(t)

	tests := []struct {
		name string
		at   time.Time
	}{
		{"one minute early", at.Add(-time.Minute)},
		{"one minute late", at.Add(time.Minute)},
		{"wrong day same time", at.AddDate(0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatcherFixture(t, tt.at, tokyo, nil)
			f.configureGuild(t, "g1")
			f.seedWeek(t, "g1", "alice", 1, 0)

			f.dispatcher.tick(context.Background())

			assert.Empty(t, f.publisher.getReports())
			assert.Empty(t, f.publisher.getNotices())
		})
	}
}

func TestDispatcher_SkipsIncompleteSchedule(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)

	ctx := context.Background()
	// Marker and day alone are not enough, the channel is missing.
	require.NoError(t, f.store.SetMarker(ctx, "g1", "⭐"))
	require.NoError(t, f.store.SetWeekday(ctx, "g1", time.Monday))
	require.NoError(t, f.store.SetTime(ctx, "g1", "09:00"))
	f.seedWeek(t, "g1", "alice", 1, 0)

	f.dispatcher.tick(ctx)

	assert.Empty(t, f.publisher.getReports())
	assert.Empty(t, f.publisher.getNotices())
}

func TestDispatcher_OnePublishPerSlot(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)
	f.configureGuild(t, "g1")
	f.seedWeek(t, "g1", "alice", 1, 0)

	ctx := context.Background()
	f.dispatcher.tick(ctx)
	// Same minute ticks again, as it would with a sub-minute interval or a
	// restart inside the slot.
	f.clock.Advance(10 * time.Second)
	f.dispatcher.tick(ctx)
	f.clock.Advance(10 * time.Second)
	f.dispatcher.tick(ctx)

	assert.Len(t, f.publisher.getReports(), 1)
}

func TestDispatcher_PublishesAgainNextWeek(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)
	f.configureGuild(t, "g1")
	f.seedWeek(t, "g1", "alice", 1, 0)

	ctx := context.Background()
	f.dispatcher.tick(ctx)
	require.Len(t, f.publisher.getReports(), 1)

	f.clock.Advance(7 * 24 * time.Hour)
	f.seedWeek(t, "g1", "alice", 2, 0)
	f.dispatcher.tick(ctx)

	assert.Len(t, f.publisher.getReports(), 2)
}

func TestDispatcher_PublishFailureAllowsRetry(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)
	f.configureGuild(t, "g1")
	f.seedWeek(t, "g1", "alice", 1, 0)

	ctx := context.Background()
	f.publisher.reportErr = errors.New("channel gone")
	f.dispatcher.tick(ctx)

	settings, err := f.store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, settings.LastDispatchAt, "failed publish must not consume the slot")

	// The next tick inside the slot retries and succeeds.
	f.publisher.reportErr = nil
	f.clock.Advance(10 * time.Second)
	f.dispatcher.tick(ctx)

	assert.Len(t, f.publisher.getReports(), 1)
}

func TestDispatcher_GuildFailuresAreIsolated(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)

	// g1's channel rejects the message, g2 is healthy.
	f.configureGuild(t, "g1")
	f.configureGuild(t, "g2")
	f.seedWeek(t, "g1", "alice", 1, 0)
	f.seedWeek(t, "g2", "bob", 1, 0)

	broken := &mockPublisher{}
	f.dispatcher.publisher = brokenChannelPublisher{inner: broken, brokenChannel: "chan-g1"}

	f.dispatcher.tick(context.Background())

	reports := broken.getReports()
	require.Len(t, reports, 1)
	assert.Equal(t, "chan-g2", reports[0].ChannelID)
}

type brokenChannelPublisher struct {
	inner         *mockPublisher
	brokenChannel string
}

func (p brokenChannelPublisher) PublishReport(ctx context.Context, channelID, title string, sentLines, receivedLines []string) error {
	if channelID == p.brokenChannel {
		return errors.New("forbidden")
	}
	return p.inner.PublishReport(ctx, channelID, title, sentLines, receivedLines)
}

func (p brokenChannelPublisher) PublishNotice(ctx context.Context, channelID, text string) error {
	if channelID == p.brokenChannel {
		return errors.New("forbidden")
	}
	return p.inner.PublishNotice(ctx, channelID, text)
}

func TestDispatcher_EmptyWindowSendsNotice(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)
	f.configureGuild(t, "g1")

	ctx := context.Background()
	f.dispatcher.tick(ctx)

	assert.Empty(t, f.publisher.getReports())
	notices := f.publisher.getNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, "chan-g1", notices[0].ChannelID)
	assert.Contains(t, notices[0].Text, "今週の記録はありませんでした")
	assert.Contains(t, notices[0].Text, "2025-03-17 09:00")

	// The empty slot still counts as dispatched.
	settings, err := f.store.Get(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, settings.LastDispatchAt)

	f.clock.Advance(10 * time.Second)
	f.dispatcher.tick(ctx)
	assert.Len(t, f.publisher.getNotices(), 1)
}

func TestDispatcher_TodaysCountsStayOutOfTheWindow(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)
	f.configureGuild(t, "g1")

	ctx := context.Background()
	today := domain.DayOf(f.clock.Now().In(tokyo))
	require.NoError(t, f.store.IncrementDailySent(ctx, "g1", "alice", today))
	require.NoError(t, f.store.IncrementDailySent(ctx, "g1", "bob", today.AddDays(-8)))

	f.dispatcher.tick(ctx)

	// Only days in [today-7, today) count; both rows fall outside.
	assert.Empty(t, f.publisher.getReports())
	assert.Len(t, f.publisher.getNotices(), 1)
}

func TestDispatcher_GuardDeniedSkipsPublish(t *testing.T) {
	at, tokyo := mondayNine(t)
	guard := &mockGuard{allow: false}
	f := newDispatcherFixture(t, at, tokyo, guard)
	f.configureGuild(t, "g1")
	f.seedWeek(t, "g1", "alice", 1, 0)

	f.dispatcher.tick(context.Background())

	assert.Empty(t, f.publisher.getReports())
	assert.Len(t, guard.acquired, 1)
	assert.True(t, strings.HasPrefix(guard.acquired[0], "g1@"))
}

func TestDispatcher_GuardErrorDegradesToPublish(t *testing.T) {
	at, tokyo := mondayNine(t)
	guard := &mockGuard{err: errors.New("redis down")}
	f := newDispatcherFixture(t, at, tokyo, guard)
	f.configureGuild(t, "g1")
	f.seedWeek(t, "g1", "alice", 1, 0)

	f.dispatcher.tick(context.Background())

	assert.Len(t, f.publisher.getReports(), 1)
}

func TestDispatcher_RunStops(t *testing.T) {
	at, tokyo := mondayNine(t)
	f := newDispatcherFixture(t, at, tokyo, nil)

	done := make(chan struct{})
	go func() {
		f.dispatcher.Run(context.Background())
		close(done)
	}()

	f.dispatcher.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestNextSlot(t *testing.T) {
	at, tokyo := mondayNine(t)

	next, err := NextSlot(at, "Monday", "09:00", tokyo)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 17, 9, 0, 0, 0, tokyo), next, "an exact match moves a full week ahead")

	next, err = NextSlot(at, "Monday", "09:01", tokyo)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 1, 0, 0, tokyo), next)

	next, err = NextSlot(at, "Sunday", "23:30", tokyo)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 16, 23, 30, 0, 0, tokyo), next)

	_, err = NextSlot(at, "Noday", "09:00", tokyo)
	assert.Error(t, err)

	_, err = NextSlot(at, "Monday", "9am", tokyo)
	assert.Error(t, err)
}
