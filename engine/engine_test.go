package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modguard/model"
	"modguard/rules"
	"modguard/store"
)

type enforcerCall struct {
	method string
	userID string
	reason string
	dur    time.Duration
	roleID string
}

type fakeEnforcer struct {
	mu       sync.Mutex
	calls    []enforcerCall
	names    map[string][2]string // userID -> {nickname, accountName}
	failWith error
}

func (f *fakeEnforcer) record(c enforcerCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.failWith
}

func (f *fakeEnforcer) Mute(ctx context.Context, guildID, userID string, duration time.Duration, reason string) error {
	return f.record(enforcerCall{method: "mute", userID: userID, reason: reason, dur: duration})
}

func (f *fakeEnforcer) Unmute(ctx context.Context, guildID, userID string) error {
	return f.record(enforcerCall{method: "unmute", userID: userID})
}

func (f *fakeEnforcer) RemoveTemporarily(ctx context.Context, guildID, userID, reason string) error {
	return f.record(enforcerCall{method: "remove", userID: userID, reason: reason})
}

func (f *fakeEnforcer) BanPermanently(ctx context.Context, guildID, userID, reason string) error {
	return f.record(enforcerCall{method: "ban", userID: userID, reason: reason})
}

func (f *fakeEnforcer) LiftRemoval(ctx context.Context, guildID, userID string) error {
	return f.record(enforcerCall{method: "lift_removal", userID: userID})
}

func (f *fakeEnforcer) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	return f.record(enforcerCall{method: "revoke_role", userID: userID, roleID: roleID})
}

func (f *fakeEnforcer) Notify(ctx context.Context, guildID, userID, message string) error {
	return f.record(enforcerCall{method: "notify", userID: userID, reason: message})
}

func (f *fakeEnforcer) NotifyChannel(ctx context.Context, channelID, message string) error {
	return f.record(enforcerCall{method: "notify_channel", reason: message})
}

func (f *fakeEnforcer) MemberNames(ctx context.Context, guildID, userID string) (string, string, error) {
	if names, ok := f.names[userID]; ok {
		return names[0], names[1], nil
	}
	return "", "", model.ErrNotFound
}

func (f *fakeEnforcer) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	return nil, nil
}

func (f *fakeEnforcer) MemberCount(ctx context.Context, guildID string) (int, error) {
	return 100, nil
}

func (f *fakeEnforcer) callsOf(method string) []enforcerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []enforcerCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

type fakeSched struct {
	mu        sync.Mutex
	scheduled []model.TimedAction
	cancelled []model.ActionKind
}

func (f *fakeSched) Schedule(action model.TimedAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, action)
	return nil
}

func (f *fakeSched) Cancel(id string) (bool, error) {
	return false, nil
}

func (f *fakeSched) CancelFor(guildID, userID string, kind model.ActionKind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, kind)
	return true, nil
}

func (f *fakeSched) scheduledOf(kind model.ActionKind) []model.TimedAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TimedAction
	for _, a := range f.scheduled {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *rules.Catalog {
	t.Helper()
	catalog, err := rules.NewCatalog([]model.Rule{
		{ID: "7", Text: "No off-topic content", ActionType: model.ActionTypeGeneral},
		{ID: "12", Text: "Nickname must match account name", ActionType: model.ActionTypeSpecific,
			Actions: []model.ActionDescriptor{
				{Kind: model.ActionMonitorNickname, ReasonTemplate: "Fix your nickname within {days} days", DeadlineDays: 30},
			}},
		{ID: "15", Text: "No impersonation of staff", ActionType: model.ActionTypeSpecific,
			Actions: []model.ActionDescriptor{
				{Kind: model.ActionPermanentRemove, ReasonTemplate: "Removed: {rule}"},
			}},
	}, []model.LadderEntry{
		{Threshold: 1, Action: model.LadderMute, Duration: 15 * time.Minute, DescriptionTemplate: "Violation #{count}: muted for {duration}"},
		{Threshold: 2, Action: model.LadderMute, Duration: 3 * time.Hour, DescriptionTemplate: "Violation #{count}: muted for {duration}"},
		{Threshold: 3, Action: model.LadderRemoveTemp, CanRejoin: true, DescriptionTemplate: "Violation #{count}: temporarily removed"},
	})
	require.NoError(t, err)
	return catalog
}

func newTestEngine(t *testing.T) (*Engine, *fakeEnforcer, *fakeSched, *sqlx.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	enf := &fakeEnforcer{names: make(map[string][2]string)}
	sched := &fakeSched{}
	cfg := &model.Config{
		NicknameRuleID: "12",
		Engine: model.EngineConfig{
			MinMemberCount: 80,
			InactiveDays:   180,
		},
	}
	e := New(db, testCatalog(t), sched, enf, cfg, zap.NewNop())
	e.now = func() time.Time { return testNow }
	return e, enf, sched, db
}

func reportViolation(t *testing.T, e *Engine, ruleID string) int {
	t.Helper()
	count, err := e.HandleViolation(context.Background(), "g1", "u1", ruleID, "admin")
	require.NoError(t, err)
	return count
}

func TestEscalationScenario(t *testing.T) {
	e, enf, sched, db := newTestEngine(t)

	for want := 1; want <= 3; want++ {
		assert.Equal(t, want, reportViolation(t, e, "7"))
	}

	mutes := enf.callsOf("mute")
	require.Len(t, mutes, 2)
	assert.Equal(t, 15*time.Minute, mutes[0].dur)
	assert.Equal(t, 3*time.Hour, mutes[1].dur)

	removes := enf.callsOf("remove")
	require.Len(t, removes, 1)
	assert.Contains(t, removes[0].reason, "Violation #3")

	entries, err := store.GetHistory(db, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].LadderStage)
	assert.Equal(t, 2, entries[1].LadderStage)
	assert.Equal(t, 3, entries[2].LadderStage)

	unmutes := sched.scheduledOf(model.KindUnmute)
	assert.Len(t, unmutes, 2)
}

func TestMuteSchedulesUnmuteAtDuration(t *testing.T) {
	e, _, sched, _ := newTestEngine(t)

	reportViolation(t, e, "7")

	unmutes := sched.scheduledOf(model.KindUnmute)
	require.Len(t, unmutes, 1)
	assert.Equal(t, testNow.Add(15*time.Minute).Unix(), unmutes[0].DueAt)
	assert.Equal(t, "u1", unmutes[0].UserID)
	assert.Equal(t, "g1", unmutes[0].GuildID)
}

func TestLadderClampsBeyondLastRung(t *testing.T) {
	e, enf, _, _ := newTestEngine(t)

	for i := 0; i < 5; i++ {
		reportViolation(t, e, "7")
	}

	// Counts 3, 4 and 5 all repeat the top rung.
	assert.Len(t, enf.callsOf("remove"), 3)
}

func TestUnknownRuleSurfacesNotFound(t *testing.T) {
	e, enf, _, _ := newTestEngine(t)

	_, err := e.HandleViolation(context.Background(), "g1", "u1", "99", "admin")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, enf.calls)
}

func TestStorageFailureAbortsBeforeEnforcement(t *testing.T) {
	e, enf, _, db := newTestEngine(t)
	require.NoError(t, db.Close())

	_, err := e.HandleViolation(context.Background(), "g1", "u1", "7", "admin")
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.Empty(t, enf.calls, "no enforcement without a recorded violation")
}

func TestEnforcementFailureSurfacesAfterRecord(t *testing.T) {
	e, enf, _, db := newTestEngine(t)
	enf.failWith = errors.New("gateway unavailable")

	count, err := e.HandleViolation(context.Background(), "g1", "u1", "7", "admin")
	assert.ErrorIs(t, err, model.ErrPrimitive)
	assert.Equal(t, 1, count)

	// The ledger entry stays committed even though the mute failed.
	entries, histErr := store.GetHistory(db, "g1", "u1")
	require.NoError(t, histErr)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].LadderStage)

	stored, countErr := store.GetCount(db, "g1", "u1")
	require.NoError(t, countErr)
	assert.Equal(t, 1, stored)
}

func TestSpecificRuleSchedulesNicknameDeadline(t *testing.T) {
	e, enf, sched, db := newTestEngine(t)

	reportViolation(t, e, "12")

	deadlines := sched.scheduledOf(model.KindNicknameDeadline)
	require.Len(t, deadlines, 1)
	assert.Equal(t, testNow.Add(30*24*time.Hour).Unix(), deadlines[0].DueAt)

	notifies := enf.callsOf("notify")
	require.NotEmpty(t, notifies)
	assert.Contains(t, notifies[0].reason, "30 days")

	// Recorded, but no ladder action applied.
	entries, err := store.GetHistory(db, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, enf.callsOf("mute"))
}

func TestSpecificRulePermanentRemove(t *testing.T) {
	e, enf, _, _ := newTestEngine(t)

	reportViolation(t, e, "15")

	bans := enf.callsOf("ban")
	require.Len(t, bans, 1)
	assert.Contains(t, bans[0].reason, "No impersonation of staff")
}

func TestNicknameDeadlineNonCompliantRemoves(t *testing.T) {
	e, enf, _, _ := newTestEngine(t)
	enf.names["u1"] = [2]string{"SomeoneElse", "realname"}

	err := e.ExecuteTimedAction(context.Background(), model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind:    model.KindNicknameDeadline,
		DueAt:   testNow.Unix(),
		Payload: `{"rule_id":"12","reason_template":"Nickname still non-compliant"}`,
	})
	require.NoError(t, err)

	removes := enf.callsOf("remove")
	require.Len(t, removes, 1)
	assert.Equal(t, "Nickname still non-compliant", removes[0].reason)
}

func TestNicknameDeadlineCompliantIsSilent(t *testing.T) {
	e, enf, _, _ := newTestEngine(t)
	enf.names["u1"] = [2]string{"realname", "realname"}

	err := e.ExecuteTimedAction(context.Background(), model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind:  model.KindNicknameDeadline,
		DueAt: testNow.Unix(),
	})
	require.NoError(t, err)
	assert.Empty(t, enf.callsOf("remove"))
}

func TestNicknameDeadlineDepartedMemberIsSilent(t *testing.T) {
	e, enf, _, _ := newTestEngine(t)

	err := e.ExecuteTimedAction(context.Background(), model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "gone",
		Kind:  model.KindNicknameDeadline,
		DueAt: testNow.Unix(),
	})
	require.NoError(t, err)
	assert.Empty(t, enf.callsOf("remove"))
}

func TestUnmuteActionInvokesPrimitive(t *testing.T) {
	e, enf, _, _ := newTestEngine(t)

	err := e.ExecuteTimedAction(context.Background(), model.TimedAction{
		ID: "a1", GuildID: "g1", UserID: "u1",
		Kind:  model.KindUnmute,
		DueAt: testNow.Unix(),
	})
	require.NoError(t, err)
	assert.Len(t, enf.callsOf("unmute"), 1)
}

func TestMemberJoinNonCompliantNicknameArmsDeadline(t *testing.T) {
	e, _, sched, _ := newTestEngine(t)

	require.NoError(t, e.HandleMemberJoin(context.Background(), "g1", "u1", "FancyNick", "realname"))

	deadlines := sched.scheduledOf(model.KindNicknameDeadline)
	assert.Len(t, deadlines, 1)
}

func TestMemberJoinCompliantNicknameIsSilent(t *testing.T) {
	e, _, sched, _ := newTestEngine(t)

	require.NoError(t, e.HandleMemberJoin(context.Background(), "g1", "u1", "", "realname"))
	assert.Empty(t, sched.scheduled)
}

func TestMemberUpdateCompliantCancelsDeadline(t *testing.T) {
	e, _, sched, _ := newTestEngine(t)

	require.NoError(t, e.HandleMemberUpdate(context.Background(), "g1", "u1", "realname", "realname"))
	assert.Contains(t, sched.cancelled, model.KindNicknameDeadline)
}

func TestClearHistoryResetsCancelsAndUnmutes(t *testing.T) {
	e, enf, sched, db := newTestEngine(t)
	ctx := context.Background()

	reportViolation(t, e, "7")
	require.NoError(t, e.ClearHistory(ctx, "g1", "u1", "admin42"))

	count, err := store.GetCount(db, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	entries, err := store.GetHistory(db, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.EntryCleared, entries[1].EntryType)

	assert.Contains(t, sched.cancelled, model.KindUnmute)
	assert.Len(t, enf.callsOf("unmute"), 1)
}

func TestManualUnmuteCancelsPending(t *testing.T) {
	e, enf, sched, _ := newTestEngine(t)

	require.NoError(t, e.ManualUnmute(context.Background(), "g1", "u1"))
	assert.Contains(t, sched.cancelled, model.KindUnmute)
	assert.Len(t, enf.callsOf("unmute"), 1)
}

func TestActivitySweepSchedulesRemovals(t *testing.T) {
	e, _, sched, db := newTestEngine(t)
	ctx := context.Background()

	old := testNow.AddDate(0, 0, -200)
	require.NoError(t, store.RecordJoin(db, "g1", "idle", old))
	require.NoError(t, store.RecordJoin(db, "g1", "active", old))
	require.NoError(t, store.TouchActivity(db, "g1", "active", testNow.AddDate(0, 0, -1)))

	require.NoError(t, e.RunActivitySweep(ctx))

	checks := sched.scheduledOf(model.KindActivityCheck)
	require.Len(t, checks, 1)
	assert.Equal(t, "idle", checks[0].UserID)
}

func TestActivitySweepRespectsExclusions(t *testing.T) {
	e, _, sched, db := newTestEngine(t)
	e.cfg.Engine.ExcludedUserIDs = []string{"vip"}

	old := testNow.AddDate(0, 0, -200)
	require.NoError(t, store.RecordJoin(db, "g1", "vip", old))

	require.NoError(t, e.RunActivitySweep(context.Background()))
	assert.Empty(t, sched.scheduledOf(model.KindActivityCheck))
}

func TestActivitySweepSkipsSmallGuilds(t *testing.T) {
	e, _, sched, db := newTestEngine(t)
	e.cfg.Engine.MinMemberCount = 200 // fake enforcer reports 100 members

	old := testNow.AddDate(0, 0, -200)
	require.NoError(t, store.RecordJoin(db, "g1", "idle", old))

	require.NoError(t, e.RunActivitySweep(context.Background()))
	assert.Empty(t, sched.scheduled)
}
