// Package dashboard assembles the owner's landing view: the profile and the
// forms list, fetched in parallel, with a per-user forms cache that absorbs
// optimistic mutations from the builder.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"qrfeedback/internal/loader"
	"qrfeedback/internal/optimistic"
	"qrfeedback/internal/types"
)

// ProfileGetter is the profile access the dashboard needs.
// Implemented by db.ProfileRepository.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (*types.Profile, error)
}

// FormStore is the form access the dashboard needs.
// Implemented by db.FormRepository.
type FormStore interface {
	ListByUser(ctx context.Context, userID string) ([]types.Form, error)
	Create(ctx context.Context, form *types.Form) error
	Delete(ctx context.Context, id, userID string) error
}

// Snapshot is the combined dashboard payload. The two halves are fetched
// independently; there is no cross-entity consistency guarantee between them.
type Snapshot struct {
	Profile *types.Profile `json:"profile"`
	Forms   []types.Form   `json:"forms"`
}

// Service fetches dashboard snapshots and routes form mutations through a
// per-user optimistic cache: the cached list reflects a mutation before the
// database confirms it, and rolls back if the write fails.
type Service struct {
	profiles ProfileGetter
	forms    FormStore
	loadOpts loader.Options
	logger   *slog.Logger

	mu     sync.Mutex
	caches map[string]*optimistic.Controller[types.Form]
}

// NewService creates a dashboard service. loadOpts tunes the read timeout
// contract; the zero value uses the loader defaults.
func NewService(profiles ProfileGetter, forms FormStore, loadOpts loader.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles: profiles,
		forms:    forms,
		loadOpts: loadOpts,
		logger:   logger,
		caches:   make(map[string]*optimistic.Controller[types.Form]),
	}
}

// Snapshot loads the profile and forms list in parallel. Each read goes
// through the loader, so a slow database gets one retry before the request
// fails with a timeout. The forms cache is refreshed with the fetched list.
func (s *Service) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)

	var profile *types.Profile
	var forms []types.Form

	g.Go(func() error {
		opts := s.loadOpts
		opts.OnSlow = s.slowLogger(gctx, userID, "profile")
		p, err := loader.Load(gctx, func(ctx context.Context) (*types.Profile, error) {
			return s.profiles.GetByID(ctx, userID)
		}, opts)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})

	g.Go(func() error {
		opts := s.loadOpts
		opts.OnSlow = s.slowLogger(gctx, userID, "forms")
		f, err := loader.Load(gctx, func(ctx context.Context) ([]types.Form, error) {
			return s.forms.ListByUser(ctx, userID)
		}, opts)
		if err != nil {
			return err
		}
		forms = f
		return nil
	})

	if err := g.Wait(); err != nil {
		// Definitive outcomes (missing profile, rejected token) pass through
		// quietly; transient failures are worth an operator's attention.
		if !loader.IsDefinitive(err) {
			s.logger.WarnContext(ctx, "dashboard snapshot failed on a transient error",
				"user_id", userID,
				"error", err,
			)
		}
		return nil, err
	}

	s.cacheFor(userID).Replace(forms)
	return &Snapshot{Profile: profile, Forms: forms}, nil
}

// Forms returns the cached forms list for the user, newest first. The cache
// reflects optimistic mutations that the database may not have confirmed yet.
func (s *Service) Forms(userID string) []types.Form {
	return s.cacheFor(userID).Items()
}

// CreateForm inserts the form into the user's cached list immediately, then
// persists it. A failed insert removes it from the cache again and returns
// the error.
func (s *Service) CreateForm(ctx context.Context, form types.Form) error {
	return s.cacheFor(form.UserID).Add(ctx, form, func(ctx context.Context) error {
		return s.forms.Create(ctx, &form)
	})
}

// DeleteForm removes the form from the user's cached list immediately, then
// deletes it. A failed delete restores the cached entry (re-sorted newest
// first) and returns the error, so the caller can surface a recoverable
// failure.
func (s *Service) DeleteForm(ctx context.Context, userID, formID string) error {
	return s.cacheFor(userID).Remove(ctx, formID, func(ctx context.Context) error {
		return s.forms.Delete(ctx, formID, userID)
	})
}

func (s *Service) cacheFor(userID string) *optimistic.Controller[types.Form] {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[userID]
	if !ok {
		c = optimistic.NewController(
			func(f types.Form) string { return f.ID },
			func(f types.Form) time.Time { return f.CreatedAt },
		)
		s.caches[userID] = c
	}
	return c
}

func (s *Service) slowLogger(ctx context.Context, userID, what string) func() {
	return func() {
		s.logger.WarnContext(ctx, "dashboard load running slow, retrying",
			"user_id", userID,
			"resource", what,
		)
	}
}
