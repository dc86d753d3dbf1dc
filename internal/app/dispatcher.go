package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/piabot/piastats/internal/domain"
	"github.com/piabot/piastats/internal/metrics"
	"github.com/piabot/piastats/internal/platform/correlation"
)

const (
	// DefaultTickInterval is the dispatcher polling interval. Matching is
	// minute-precise, so anything at or below one minute works; one minute
	// keeps each slot to a single matching tick.
	DefaultTickInterval = time.Minute

	// reportSize caps each leaderboard at the top five members.
	reportSize = 5
)

// Dispatcher polls every guild's schedule on a single shared tick and, on a
// weekday+time match, publishes the weekly report. One ticker for all guilds
// is deliberate: it bounds timer count to one and keeps schedule state
// centrally inspectable.
type Dispatcher struct {
	settings  domain.SettingsRepository
	counters  domain.CounterRepository
	names     domain.DisplayNameRepository
	publisher domain.ReportPublisher
	guard     domain.SlotGuard // nil disables the cross-instance guard

	clock    clockwork.Clock
	loc      *time.Location
	interval time.Duration
	stopCh   chan struct{}
}

func NewDispatcher(
	settings domain.SettingsRepository,
	counters domain.CounterRepository,
	names domain.DisplayNameRepository,
	publisher domain.ReportPublisher,
	guard domain.SlotGuard,
	clock clockwork.Clock,
	loc *time.Location,
	interval time.Duration,
) *Dispatcher {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Dispatcher{
		settings:  settings,
		counters:  counters,
		names:     names,
		publisher: publisher,
		guard:     guard,
		clock:     clock,
		loc:       loc,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Run starts the polling loop. It blocks until Stop is called or ctx is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			d.tick(ctx)
		case <-d.stopCh:
			slog.Info("Dispatcher stopped")
			return
		case <-ctx.Done():
			slog.Info("Dispatcher context cancelled")
			return
		}
	}
}

// Stop gracefully stops the polling loop.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

// tick evaluates every guild once against the current time. Guilds are
// isolated from each other: a failure in one only skips that guild.
func (d *Dispatcher) tick(ctx context.Context) {
	metrics.DispatchTicksTotal.Inc()
	now := d.clock.Now().In(d.loc)

	all, err := d.settings.List(ctx)
	if err != nil {
		slog.Warn("Dispatcher: failed to list guild settings", "error", err)
		metrics.StoreErrorsTotal.WithLabelValues("list_settings").Inc()
		return
	}

	for i := range all {
		d.evaluate(ctx, &all[i], now)
	}
}

func (d *Dispatcher) evaluate(ctx context.Context, s *domain.GuildSettings, now time.Time) {
	ctx = correlation.WithID(ctx, correlation.NewID())

	if !s.DispatchReady() {
		return
	}
	if s.SendDay != now.Weekday().String() || s.SendTime != now.Format("15:04") {
		return
	}

	// One publish per slot: a slot is the matched minute. Ticks shorter
	// than a minute or overlapping re-evaluations would otherwise match
	// again and double-publish.
	slot := now.Truncate(time.Minute)
	if s.LastDispatchAt != nil && !s.LastDispatchAt.Before(slot) {
		slog.DebugContext(ctx, "Dispatcher: slot already dispatched", "guild", s.GuildID, "slot", slot)
		return
	}

	if d.guard != nil {
		ok, err := d.guard.Acquire(ctx, s.GuildID, slot)
		if err != nil {
			// The durable last-dispatch gate above already passed, so a guard
			// outage degrades to single-instance behavior instead of
			// silencing the report.
			slog.WarnContext(ctx, "Dispatcher: slot guard unavailable", "guild", s.GuildID, "error", err)
		} else if !ok {
			slog.DebugContext(ctx, "Dispatcher: slot claimed by another instance", "guild", s.GuildID, "slot", slot)
			return
		}
	}

	today := domain.DayOf(now)
	stats, err := d.counters.SumWindow(ctx, s.GuildID, today.AddDays(-7), today)
	if err != nil {
		slog.WarnContext(ctx, "Dispatcher: window aggregation failed", "guild", s.GuildID, "error", err)
		metrics.StoreErrorsTotal.WithLabelValues("sum_window").Inc()
		return
	}

	if len(stats) == 0 {
		d.publishNoData(ctx, s, now)
		return
	}

	names, err := d.names.GetAll(ctx, s.GuildID)
	if err != nil {
		slog.WarnContext(ctx, "Dispatcher: display name lookup failed", "guild", s.GuildID, "error", err)
		names = nil
	}

	sentLines := append([]string{"giveAward:"},
		FormatLines(Rank(stats, SentCount, reportSize), SentCount, names, s.Marker)...)
	receivedLines := append([]string{"receiveAward:"},
		FormatLines(Rank(stats, ReceivedCount, reportSize), ReceivedCount, names, s.Marker)...)

	if err := d.publisher.PublishReport(ctx, s.ChannelID, "【毎週集計】", sentLines, receivedLines); err != nil {
		// last_dispatch_at stays untouched so the next matching tick in this
		// slot may retry.
		slog.ErrorContext(ctx, "Dispatcher: publish failed", "guild", s.GuildID, "channel", s.ChannelID, "error", err)
		metrics.DispatchPublishesTotal.WithLabelValues("error").Inc()
		return
	}

	d.markDispatched(ctx, s.GuildID, now)
	metrics.DispatchPublishesTotal.WithLabelValues("ok").Inc()
	slog.InfoContext(ctx, "Dispatcher: report published", "guild", s.GuildID, "channel", s.ChannelID, "members", len(stats))
}

// publishNoData tells the destination there was nothing to report and when
// the next slot comes. The slot still counts as dispatched.
func (d *Dispatcher) publishNoData(ctx context.Context, s *domain.GuildSettings, now time.Time) {
	text := "今週の記録はありませんでした。"
	if next, err := NextSlot(now, s.SendDay, s.SendTime, d.loc); err == nil {
		text += fmt.Sprintf(" 次回の集計は %s です。", next.Format("2006-01-02 15:04"))
	}

	if err := d.publisher.PublishNotice(ctx, s.ChannelID, text); err != nil {
		slog.WarnContext(ctx, "Dispatcher: no-data notice failed", "guild", s.GuildID, "error", err)
		metrics.DispatchPublishesTotal.WithLabelValues("error").Inc()
		return
	}

	d.markDispatched(ctx, s.GuildID, now)
	metrics.DispatchPublishesTotal.WithLabelValues("empty").Inc()
}

func (d *Dispatcher) markDispatched(ctx context.Context, guildID string, now time.Time) {
	if err := d.settings.SetLastDispatch(ctx, guildID, now); err != nil {
		slog.WarnContext(ctx, "Dispatcher: failed to record dispatch", "guild", guildID, "error", err)
		metrics.StoreErrorsTotal.WithLabelValues("set_last_dispatch").Inc()
	}
}

// NextSlot returns the first weekday+time occurrence strictly after the
// given instant.
func NextSlot(after time.Time, sendDay, sendTime string, loc *time.Location) (time.Time, error) {
	weekday, err := domain.ParseWeekday(sendDay)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse("15:04", sendTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", sendTime, err)
	}

	after = after.In(loc)
	candidate := time.Date(after.Year(), after.Month(), after.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	for candidate.Weekday() != weekday || !candidate.After(after) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate, nil
}
