package tracker

import (
	"context"
	"net/http"

	"prmonitor/internal/domain"
)

// How many times a signal is retried against a freshly reloaded record
// before it is dropped with a STALE_WRITE failure.
const maxSignalRetries = 3

type Service interface {
	// Track converts a referenced pull request into a tracked record
	// bound to a new chat message, seeded with an initial forge fetch.
	Track(ctx context.Context, ref RepoRef, number int) (Record, error)

	// ApplySignal applies one normalized user signal to the record
	// behind a chat message. Unknown signals and signals that change
	// nothing are silent no-ops.
	ApplySignal(ctx context.Context, chatID, messageID int64, user string, kind SignalKind) (Record, error)

	// Announce posts tracked messages for open pull requests of the
	// repository that have not been seen before. Returns how many were
	// announced.
	Announce(ctx context.Context, ref RepoRef) (int, error)

	// SyncRecord reconciles one tracked record against the forge and
	// updates or cleans up its chat message.
	SyncRecord(ctx context.Context, rec Record) error

	ListTracked(ctx context.Context) ([]Record, error)
	Repositories(ctx context.Context) ([]RepoRef, error)
	AddRepository(ctx context.Context, ref RepoRef) error
}

type service struct {
	uow    domain.UnitOfWork
	recs   Repository
	repos  RepoStore
	forge  Forge
	chat   Messenger
	events domain.EventBus
	clock  domain.Clock

	targetChat int64
}

func NewService(
	uow domain.UnitOfWork,
	recs Repository,
	repos RepoStore,
	forge Forge,
	chat Messenger,
	events domain.EventBus,
	clock domain.Clock,
	targetChat int64,
) Service {
	return &service{
		uow:        uow,
		recs:       recs,
		repos:      repos,
		forge:      forge,
		chat:       chat,
		events:     events,
		clock:      clock,
		targetChat: targetChat,
	}
}

func (s *service) Track(ctx context.Context, ref RepoRef, number int) (Record, error) {
	if _, err := s.recs.Get(ctx, ref.String(), number); err == nil {
		return Record{}, &domain.DomainError{
			Code:       domain.ErrorCodeAlreadyTracked,
			Message:    "pull request is already tracked",
			HTTPStatus: http.StatusConflict,
		}
	} else if !domain.IsCode(err, domain.ErrorCodeNotFound) {
		return Record{}, err
	}

	snap, err := s.forge.PullRequest(ctx, ref, number)
	if err != nil {
		return Record{}, err
	}

	rec := NewRecord(snap, s.targetChat, s.clock.Now())
	if rec.Terminal() {
		return Record{}, &domain.DomainError{
			Code:       domain.ErrorCodeNotFound,
			Message:    "pull request is already merged or closed",
			HTTPStatus: http.StatusNotFound,
		}
	}

	msgID, err := s.chat.Send(ctx, s.targetChat, Render(rec))
	if err != nil {
		return Record{}, err
	}
	rec.MessageID = msgID

	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.recs.Create(ctx, rec); err != nil {
			return err
		}
		if err := s.recs.MarkSeen(ctx, rec.Repo, rec.Number); err != nil {
			return err
		}
		return s.repos.Add(ctx, ref)
	})
	if err != nil {
		return Record{}, err
	}

	if s.events != nil {
		s.events.Publish(ctx, domain.Event{
			Type: domain.EventPRTracked,
			Payload: map[string]any{
				"repo":   rec.Repo,
				"number": rec.Number,
			},
		})
	}

	return rec, nil
}

func (s *service) ApplySignal(ctx context.Context, chatID, messageID int64, user string, kind SignalKind) (Record, error) {
	rec, err := s.recs.GetByMessage(ctx, chatID, messageID)
	if err != nil {
		return Record{}, err
	}

	for attempt := 0; attempt < maxSignalRetries; attempt++ {
		next, changed := Transition(rec, user, kind)
		if !changed {
			return rec, nil
		}

		err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
			return s.recs.Update(ctx, next, rec.Version)
		})
		if domain.IsCode(err, domain.ErrorCodeStaleWrite) {
			rec, err = s.recs.GetByMessage(ctx, chatID, messageID)
			if err != nil {
				return Record{}, err
			}
			continue
		}
		if err != nil {
			return Record{}, err
		}

		if s.events != nil {
			s.events.Publish(ctx, domain.Event{
				Type: domain.EventPRSignal,
				Payload: map[string]any{
					"repo":   next.Repo,
					"number": next.Number,
					"user":   user,
					"signal": string(kind),
				},
			})
		}

		if err := s.refreshMessage(ctx, rec, next); err != nil {
			return Record{}, err
		}
		return next, nil
	}

	return Record{}, &domain.DomainError{
		Code:       domain.ErrorCodeStaleWrite,
		Message:    "signal dropped after retries on concurrent updates",
		HTTPStatus: http.StatusConflict,
	}
}

func (s *service) Announce(ctx context.Context, ref RepoRef) (int, error) {
	snaps, err := s.forge.OpenPullRequests(ctx, ref)
	if err != nil {
		return 0, err
	}

	announced := 0
	for _, snap := range snaps {
		seen, err := s.recs.Seen(ctx, snap.Repo, snap.Number)
		if err != nil {
			return announced, err
		}
		if seen {
			continue
		}

		// Listing carries no review detail; seed from a full fetch so
		// the first render already shows existing decisions.
		full, err := s.forge.PullRequest(ctx, ref, snap.Number)
		if err != nil {
			continue
		}

		rec := NewRecord(full, s.targetChat, s.clock.Now())
		if rec.Terminal() {
			continue
		}

		msgID, err := s.chat.Send(ctx, s.targetChat, Render(rec))
		if err != nil {
			continue
		}
		rec.MessageID = msgID

		err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.recs.Create(ctx, rec); err != nil {
				return err
			}
			return s.recs.MarkSeen(ctx, rec.Repo, rec.Number)
		})
		if err != nil {
			return announced, err
		}
		announced++

		if s.events != nil {
			s.events.Publish(ctx, domain.Event{
				Type: domain.EventPRTracked,
				Payload: map[string]any{
					"repo":   rec.Repo,
					"number": rec.Number,
				},
			})
		}
	}

	return announced, nil
}

func (s *service) SyncRecord(ctx context.Context, rec Record) error {
	owner, name, ok := SplitRepo(rec.Repo)
	if !ok {
		return s.remove(ctx, rec)
	}

	snap, err := s.forge.PullRequest(ctx, RepoRef{Owner: owner, Name: name}, rec.Number)
	if domain.IsCode(err, domain.ErrorCodeNotFound) {
		// The PR is no longer resolvable; the record is orphaned.
		return s.remove(ctx, rec)
	}
	if err != nil {
		// Unavailable forge: skip this PR for the cycle, the stored
		// record stays untouched.
		return err
	}

	next, changed := Reconcile(rec, snap, s.clock.Now())
	if next.Terminal() {
		return s.remove(ctx, next)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		return s.recs.Update(ctx, next, rec.Version)
	})
	if domain.IsCode(err, domain.ErrorCodeStaleWrite) {
		// A signal landed mid-pass; the next tick re-derives the merge.
		return nil
	}
	if err != nil {
		return err
	}

	if changed {
		return s.refreshMessage(ctx, rec, next)
	}
	return nil
}

func (s *service) ListTracked(ctx context.Context) ([]Record, error) {
	return s.recs.ListTracked(ctx)
}

func (s *service) Repositories(ctx context.Context) ([]RepoRef, error) {
	return s.repos.List(ctx)
}

func (s *service) AddRepository(ctx context.Context, ref RepoRef) error {
	return s.repos.Add(ctx, ref)
}

// refreshMessage edits the chat message when the rendered text actually
// changed. A message deleted by hand purges the record without error.
func (s *service) refreshMessage(ctx context.Context, old, next Record) error {
	if next.MessageID == 0 {
		return nil
	}
	text := Render(next)
	if text == Render(old) {
		return nil
	}

	err := s.chat.Edit(ctx, next.ChatID, next.MessageID, text)
	if domain.IsCode(err, domain.ErrorCodeMessageGone) {
		return s.remove(ctx, next)
	}
	return err
}

// remove deletes the chat message and purges the record. The seen mark
// stays behind so the PR is never announced again.
func (s *service) remove(ctx context.Context, rec Record) error {
	if rec.MessageID != 0 {
		err := s.chat.Delete(ctx, rec.ChatID, rec.MessageID)
		if err != nil && !domain.IsCode(err, domain.ErrorCodeMessageGone) {
			return err
		}
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		return s.recs.Delete(ctx, rec.Repo, rec.Number)
	})
	if err != nil {
		return err
	}

	if s.events != nil {
		s.events.Publish(ctx, domain.Event{
			Type: domain.EventPRRemoved,
			Payload: map[string]any{
				"repo":      rec.Repo,
				"number":    rec.Number,
				"lifecycle": string(rec.Lifecycle),
			},
		})
	}
	return nil
}
