// Package store keeps saved scores, in Postgres when a database is
// configured and in memory otherwise.
package store

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/Little6thingys/lyric-mind/internal/models"
)

const defaultListLimit = 50

// KindNotFound tags lookups of unknown score ids.
const KindNotFound ftag.Kind = "not_found"

// ScoreStore is the score library.
type ScoreStore interface {
	Save(ctx context.Context, s *models.SavedScore) error
	Get(ctx context.Context, id string) (*models.SavedScore, error)
	List(ctx context.Context, limit int) ([]models.ScoreSummary, error)
	Delete(ctx context.Context, id string) error
}

func notFound(id string) error {
	return fault.New("score not found: "+id, ftag.With(KindNotFound), fmsg.WithDesc("not found", "No saved score with that id"))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}

// IsNotFound reports whether err came from a missing score.
func IsNotFound(err error) bool {
	return ftag.Get(err) == KindNotFound
}
