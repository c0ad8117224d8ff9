package service

import (
	"fmt"
	"strings"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// Entity kinds named in guard errors.
const (
	kindBook    = "Book"
	kindSection = "Section"
	kindChapter = "Chapter"
	kindTopic   = "Topic"
	kindSlot    = "Slot"
	kindExam    = "Exam"
)

// guard turns a store lookup into an owned entity for callerID.
// A missing entity is NotFound; an entity owned by someone else is Forbidden.
func guard[T domain.Owned](entity T, err error, callerID, kind string) (T, error) {
	var zero T
	if err != nil {
		if store.IsNotFound(err) {
			return zero, domainerrors.NotFoundf("%s not found.", kind).WithCause(err)
		}
		return zero, fmt.Errorf("get %s: %w", strings.ToLower(kind), err)
	}
	if entity.OwnerID() != callerID {
		return zero, domainerrors.Forbiddenf("You do not have access to this %s.", strings.ToLower(kind))
	}
	return entity, nil
}
