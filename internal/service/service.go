// Package service implements the StudyTrack business rules on top of store.Store.
//
// Every single-entity read and every mutation runs through guard first. Counter cascades
// across Book, Section and Chapter are sequential per-document updates; a failure partway
// leaves the earlier steps applied.
package service

import (
	"log/slog"
	"time"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
	"github.com/studytrackapp/studytrack-server/internal/validation"
)

// validate is the shared request validator.
var validate = validation.New()

// base carries the collaborators every study service uses.
type base struct {
	store  store.Store
	events store.EventEmitter
	clock  domain.Clock
	logger *slog.Logger
}

func newBase(s store.Store, events store.EventEmitter, clock domain.Clock, logger *slog.Logger) base {
	if events == nil {
		events = store.NewNoopEmitter()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return base{store: s, events: events, clock: clock, logger: logger}
}

func (b *base) now() time.Time {
	return b.clock.Now().UTC()
}

// stamp sets both timestamps from the service clock.
func (b *base) stamp(s *domain.Syncable) {
	now := b.now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// touch bumps UpdatedAt from the service clock.
func (b *base) touch(s *domain.Syncable) {
	s.UpdatedAt = b.now()
}

// applyString copies *src into dst when src is non-nil and reports whether it did.
func applyString(dst *string, src *string) bool {
	if src == nil {
		return false
	}
	*dst = *src
	return true
}
