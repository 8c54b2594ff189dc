package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"prmonitor/internal/domain"
	"prmonitor/internal/domain/tracker"
)

type uowStub struct{}

func (uowStub) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type eventBusFake struct {
	events []domain.Event
}

func (e *eventBusFake) Publish(ctx context.Context, ev domain.Event) {
	e.events = append(e.events, ev)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recRepoFake struct {
	recs map[string]tracker.Record
	seen map[string]bool

	// staleTimes forces that many Update calls to fail with STALE_WRITE
	// without touching the stored record, simulating a concurrent writer.
	staleTimes int
}

func newRecRepoFake() *recRepoFake {
	return &recRepoFake{
		recs: map[string]tracker.Record{},
		seen: map[string]bool{},
	}
}

func key(repo string, number int) string {
	return fmt.Sprintf("%s#%d", repo, number)
}

func notFound() error {
	return &domain.DomainError{Code: domain.ErrorCodeNotFound, Message: "record not found", HTTPStatus: 404}
}

func (r *recRepoFake) Create(ctx context.Context, rec tracker.Record) error {
	r.recs[rec.Key()] = rec.Clone()
	return nil
}

func (r *recRepoFake) Get(ctx context.Context, repo string, number int) (tracker.Record, error) {
	rec, ok := r.recs[key(repo, number)]
	if !ok {
		return tracker.Record{}, notFound()
	}
	return rec.Clone(), nil
}

func (r *recRepoFake) GetByMessage(ctx context.Context, chatID, messageID int64) (tracker.Record, error) {
	for _, rec := range r.recs {
		if rec.ChatID == chatID && rec.MessageID == messageID {
			return rec.Clone(), nil
		}
	}
	return tracker.Record{}, notFound()
}

func (r *recRepoFake) Update(ctx context.Context, rec tracker.Record, expectedVersion int64) error {
	if r.staleTimes > 0 {
		r.staleTimes--
		return &domain.DomainError{Code: domain.ErrorCodeStaleWrite, Message: "stale", HTTPStatus: 409}
	}
	cur, ok := r.recs[rec.Key()]
	if !ok || cur.Version != expectedVersion {
		return &domain.DomainError{Code: domain.ErrorCodeStaleWrite, Message: "stale", HTTPStatus: 409}
	}
	r.recs[rec.Key()] = rec.Clone()
	return nil
}

func (r *recRepoFake) ListTracked(ctx context.Context) ([]tracker.Record, error) {
	var out []tracker.Record
	for _, rec := range r.recs {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *recRepoFake) Delete(ctx context.Context, repo string, number int) error {
	delete(r.recs, key(repo, number))
	return nil
}

func (r *recRepoFake) MarkSeen(ctx context.Context, repo string, number int) error {
	r.seen[key(repo, number)] = true
	return nil
}

func (r *recRepoFake) Seen(ctx context.Context, repo string, number int) (bool, error) {
	return r.seen[key(repo, number)], nil
}

type repoStoreFake struct {
	refs []tracker.RepoRef
}

func (r *repoStoreFake) Add(ctx context.Context, ref tracker.RepoRef) error {
	for _, cur := range r.refs {
		if cur == ref {
			return nil
		}
	}
	r.refs = append(r.refs, ref)
	return nil
}

func (r *repoStoreFake) List(ctx context.Context) ([]tracker.RepoRef, error) {
	return append([]tracker.RepoRef{}, r.refs...), nil
}

type forgeFake struct {
	snaps map[string]tracker.Snapshot
	open  map[string][]tracker.Snapshot
	errs  map[string]error
}

func newForgeFake() *forgeFake {
	return &forgeFake{
		snaps: map[string]tracker.Snapshot{},
		open:  map[string][]tracker.Snapshot{},
		errs:  map[string]error{},
	}
}

func (f *forgeFake) OpenPullRequests(ctx context.Context, ref tracker.RepoRef) ([]tracker.Snapshot, error) {
	return f.open[ref.String()], nil
}

func (f *forgeFake) PullRequest(ctx context.Context, ref tracker.RepoRef, number int) (tracker.Snapshot, error) {
	k := key(ref.String(), number)
	if err := f.errs[k]; err != nil {
		return tracker.Snapshot{}, err
	}
	snap, ok := f.snaps[k]
	if !ok {
		return tracker.Snapshot{}, notFound()
	}
	return snap, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type messengerFake struct {
	nextID  int64
	sent    []sentMessage
	edits   []sentMessage
	deleted []int64

	editErr error
}

func (m *messengerFake) Send(ctx context.Context, chatID int64, text string) (int64, error) {
	m.nextID++
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return m.nextID, nil
}

func (m *messengerFake) Edit(ctx context.Context, chatID, messageID int64, text string) error {
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *messengerFake) Delete(ctx context.Context, chatID, messageID int64) error {
	m.deleted = append(m.deleted, messageID)
	return nil
}

type fixture struct {
	recs   *recRepoFake
	repos  *repoStoreFake
	forge  *forgeFake
	chat   *messengerFake
	events *eventBusFake
	svc    tracker.Service
}

func newFixture() *fixture {
	f := &fixture{
		recs:   newRecRepoFake(),
		repos:  &repoStoreFake{},
		forge:  newForgeFake(),
		chat:   &messengerFake{},
		events: &eventBusFake{},
	}
	clock := fixedClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.svc = tracker.NewService(uowStub{}, f.recs, f.repos, f.forge, f.chat, f.events, clock, -100)
	return f
}

var apiRef = tracker.RepoRef{Owner: "acme", Name: "api"}

func openSnap(number int) tracker.Snapshot {
	return tracker.Snapshot{
		Repo:      "acme/api",
		Number:    number,
		Title:     "Add search",
		URL:       fmt.Sprintf("https://github.com/acme/api/pull/%d", number),
		Author:    "alice",
		Lifecycle: tracker.LifecycleOpen,
	}
}

func TestService_Track(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)

	rec, err := f.svc.Track(context.Background(), apiRef, 42)
	if err != nil {
		t.Fatalf("track error: %v", err)
	}
	if rec.MessageID == 0 {
		t.Fatal("record must be bound to the posted message")
	}
	if len(f.chat.sent) != 1 || f.chat.sent[0].chatID != -100 {
		t.Fatalf("expected one message in the target chat, got %+v", f.chat.sent)
	}
	if _, ok := f.recs.recs[rec.Key()]; !ok {
		t.Fatal("record not persisted")
	}
	if !f.recs.seen[rec.Key()] {
		t.Fatal("seen mark missing")
	}
	if len(f.repos.refs) != 1 || f.repos.refs[0] != apiRef {
		t.Fatalf("repository not registered, got %+v", f.repos.refs)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != domain.EventPRTracked {
		t.Fatalf("expected pr.tracked event, got %+v", f.events.events)
	}

	_, err = f.svc.Track(context.Background(), apiRef, 42)
	if !domain.IsCode(err, domain.ErrorCodeAlreadyTracked) {
		t.Fatalf("want ALREADY_TRACKED, got %v", err)
	}
}

func TestService_Track_TerminalPR(t *testing.T) {
	f := newFixture()
	snap := openSnap(42)
	snap.Lifecycle = tracker.LifecycleMerged
	f.forge.snaps[key("acme/api", 42)] = snap

	_, err := f.svc.Track(context.Background(), apiRef, 42)
	if !domain.IsCode(err, domain.ErrorCodeNotFound) {
		t.Fatalf("want NOT_FOUND for a merged PR, got %v", err)
	}
	if len(f.chat.sent) != 0 {
		t.Fatal("no message must be sent for a terminal PR")
	}
}

func TestService_ApplySignal(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, err := f.svc.Track(context.Background(), apiRef, 42)
	if err != nil {
		t.Fatalf("track error: %v", err)
	}
	f.events.events = nil

	next, err := f.svc.ApplySignal(context.Background(), rec.ChatID, rec.MessageID, "bob", tracker.SignalReview)
	if err != nil {
		t.Fatalf("signal error: %v", err)
	}
	if next.Reviewers["bob"] != tracker.StatusReviewing {
		t.Fatalf("expected REVIEWING, got %s", next.Reviewers["bob"])
	}
	if len(f.chat.edits) != 1 {
		t.Fatalf("expected one message edit, got %d", len(f.chat.edits))
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != domain.EventPRSignal {
		t.Fatalf("expected pr.signal event, got %+v", f.events.events)
	}

	// The same signal again changes nothing and must not touch the chat.
	f.events.events = nil
	_, err = f.svc.ApplySignal(context.Background(), rec.ChatID, rec.MessageID, "bob", tracker.SignalReview)
	if err != nil {
		t.Fatalf("idempotent signal error: %v", err)
	}
	if len(f.chat.edits) != 1 {
		t.Fatal("no-op signal must not edit the message")
	}
	if len(f.events.events) != 0 {
		t.Fatal("no-op signal must not publish an event")
	}
}

func TestService_ApplySignal_TwoUsers(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)

	if _, err := f.svc.ApplySignal(context.Background(), rec.ChatID, rec.MessageID, "bob", tracker.SignalApprove); err != nil {
		t.Fatalf("first signal error: %v", err)
	}
	if _, err := f.svc.ApplySignal(context.Background(), rec.ChatID, rec.MessageID, "eve", tracker.SignalComment); err != nil {
		t.Fatalf("second signal error: %v", err)
	}

	stored := f.recs.recs[rec.Key()]
	if stored.Reviewers["bob"] != tracker.StatusApproved || stored.Reviewers["eve"] != tracker.StatusCommented {
		t.Fatalf("both signals must land, got %+v", stored.Reviewers)
	}
}

func TestService_ApplySignal_RetriesOnStaleWrite(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)

	f.recs.staleTimes = 1
	next, err := f.svc.ApplySignal(context.Background(), rec.ChatID, rec.MessageID, "bob", tracker.SignalApprove)
	if err != nil {
		t.Fatalf("signal must succeed after a retry: %v", err)
	}
	if next.Reviewers["bob"] != tracker.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", next.Reviewers["bob"])
	}
}

func TestService_ApplySignal_DropsAfterRetriesExhausted(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)

	f.recs.staleTimes = 10
	_, err := f.svc.ApplySignal(context.Background(), rec.ChatID, rec.MessageID, "bob", tracker.SignalApprove)
	if !domain.IsCode(err, domain.ErrorCodeStaleWrite) {
		t.Fatalf("want STALE_WRITE after exhausted retries, got %v", err)
	}
}

func TestService_ApplySignal_MessageGonePurges(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)

	f.chat.editErr = &domain.DomainError{Code: domain.ErrorCodeMessageGone, Message: "gone", HTTPStatus: 410}
	_, err := f.svc.ApplySignal(context.Background(), rec.ChatID, rec.MessageID, "bob", tracker.SignalApprove)
	if err != nil {
		t.Fatalf("gone message must purge silently, got %v", err)
	}
	if _, ok := f.recs.recs[rec.Key()]; ok {
		t.Fatal("record must be purged when its message is gone")
	}
	if !f.recs.seen[rec.Key()] {
		t.Fatal("seen mark must survive the purge")
	}
}

func TestService_SyncRecord_MergedCleansUp(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)
	f.events.events = nil

	snap := openSnap(42)
	snap.Lifecycle = tracker.LifecycleMerged
	f.forge.snaps[key("acme/api", 42)] = snap

	stored := f.recs.recs[rec.Key()]
	if err := f.svc.SyncRecord(context.Background(), stored); err != nil {
		t.Fatalf("sync error: %v", err)
	}
	if len(f.chat.deleted) != 1 || f.chat.deleted[0] != rec.MessageID {
		t.Fatalf("expected exactly one message delete, got %v", f.chat.deleted)
	}
	if _, ok := f.recs.recs[rec.Key()]; ok {
		t.Fatal("terminal record must be purged")
	}
	if !f.recs.seen[rec.Key()] {
		t.Fatal("seen mark must survive so the PR is never re-announced")
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != domain.EventPRRemoved {
		t.Fatalf("expected pr.removed event, got %+v", f.events.events)
	}
}

func TestService_SyncRecord_EditsOnChange(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)

	snap := openSnap(42)
	snap.Reviews = []tracker.SnapshotReview{
		{User: "bob", Decision: tracker.DecisionApproved},
	}
	f.forge.snaps[key("acme/api", 42)] = snap

	stored := f.recs.recs[rec.Key()]
	if err := f.svc.SyncRecord(context.Background(), stored); err != nil {
		t.Fatalf("sync error: %v", err)
	}
	if len(f.chat.edits) != 1 {
		t.Fatalf("expected one edit, got %d", len(f.chat.edits))
	}

	// A second pass with the same snapshot must not edit again.
	stored = f.recs.recs[rec.Key()]
	if err := f.svc.SyncRecord(context.Background(), stored); err != nil {
		t.Fatalf("second sync error: %v", err)
	}
	if len(f.chat.edits) != 1 {
		t.Fatal("unchanged snapshot must not produce a redundant edit")
	}
}

func TestService_SyncRecord_ForgeUnavailableLeavesRecord(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)

	f.forge.errs[key("acme/api", 42)] = errors.New("503 service unavailable")

	stored := f.recs.recs[rec.Key()]
	before := stored.Clone()
	if err := f.svc.SyncRecord(context.Background(), stored); err == nil {
		t.Fatal("expected error when the forge is unavailable")
	}
	after := f.recs.recs[rec.Key()]
	if after.Version != before.Version {
		t.Fatal("record must stay untouched when the fetch fails")
	}
	if len(f.chat.edits) != 0 || len(f.chat.deleted) != 0 {
		t.Fatal("chat must stay untouched when the fetch fails")
	}
}

func TestService_SyncRecord_OrphanedPRPurged(t *testing.T) {
	f := newFixture()
	f.forge.snaps[key("acme/api", 42)] = openSnap(42)
	rec, _ := f.svc.Track(context.Background(), apiRef, 42)

	delete(f.forge.snaps, key("acme/api", 42))

	stored := f.recs.recs[rec.Key()]
	if err := f.svc.SyncRecord(context.Background(), stored); err != nil {
		t.Fatalf("sync error: %v", err)
	}
	if _, ok := f.recs.recs[rec.Key()]; ok {
		t.Fatal("record for an unresolvable PR must be purged")
	}
	if len(f.chat.deleted) != 1 {
		t.Fatalf("expected one message delete, got %v", f.chat.deleted)
	}
}

func TestService_Announce(t *testing.T) {
	f := newFixture()
	f.forge.open["acme/api"] = []tracker.Snapshot{openSnap(1), openSnap(2), openSnap(3)}
	f.forge.snaps[key("acme/api", 1)] = openSnap(1)
	f.forge.snaps[key("acme/api", 2)] = openSnap(2)
	f.forge.snaps[key("acme/api", 3)] = openSnap(3)

	// PR 2 was seen before (and possibly purged); it stays silent.
	f.recs.seen[key("acme/api", 2)] = true

	n, err := f.svc.Announce(context.Background(), apiRef)
	if err != nil {
		t.Fatalf("announce error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 announcements, got %d", n)
	}
	if len(f.chat.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(f.chat.sent))
	}
	if _, ok := f.recs.recs[key("acme/api", 2)]; ok {
		t.Fatal("seen PR must not be resurrected")
	}

	// A second pass announces nothing.
	n, err = f.svc.Announce(context.Background(), apiRef)
	if err != nil {
		t.Fatalf("second announce error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no repeat announcements, got %d", n)
	}
}

func TestService_Announce_SkipsFailedFetch(t *testing.T) {
	f := newFixture()
	f.forge.open["acme/api"] = []tracker.Snapshot{openSnap(1), openSnap(2)}
	f.forge.snaps[key("acme/api", 1)] = openSnap(1)
	f.forge.snaps[key("acme/api", 2)] = openSnap(2)
	f.forge.errs[key("acme/api", 1)] = errors.New("503 service unavailable")

	n, err := f.svc.Announce(context.Background(), apiRef)
	if err != nil {
		t.Fatalf("announce error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the healthy PR announced, got %d", n)
	}
	if f.recs.seen[key("acme/api", 1)] {
		t.Fatal("failed fetch must leave the PR unseen for the next cycle")
	}
}
