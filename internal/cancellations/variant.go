package cancellations

import (
	"context"
	"crypto/rand"

	"github.com/google/uuid"

	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
)

// CoinFlipper yields uniform random booleans. Variant assignment and the
// found-job flow branch are pricing decisions, so the default source is
// crypto/rand; tests inject a seeded source.
type CoinFlipper interface {
	Flip() (bool, error)
}

// CryptoFlipper draws from crypto/rand.
type CryptoFlipper struct{}

func (CryptoFlipper) Flip() (bool, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return false, err
	}
	return b[0]&1 == 1, nil
}

type latestCancellationFinder interface {
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error)
}

// Assignor picks the downsell variant for a user. A user who has been through
// the flow before keeps the variant of their most recent attempt, whatever its
// resolution state, so repeated attempts always see the same pricing.
type Assignor struct {
	repo latestCancellationFinder
	rng  CoinFlipper
}

func NewAssignor(repo latestCancellationFinder, rng CoinFlipper) *Assignor {
	if rng == nil {
		rng = CryptoFlipper{}
	}
	return &Assignor{repo: repo, rng: rng}
}

// Assign returns the sticky variant for the user, drawing a fresh one only
// when no prior cancellation carries a valid variant. The second return is
// true when the variant was freshly drawn.
func (a *Assignor) Assign(ctx context.Context, userID uuid.UUID) (enums.DownsellVariant, bool, error) {
	latest, err := a.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up prior cancellation")
	}
	if latest != nil && latest.DownsellVariant.IsValid() {
		return latest.DownsellVariant, false, nil
	}
	heads, err := a.rng.Flip()
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drawing downsell variant")
	}
	if heads {
		return enums.DownsellVariantB, true, nil
	}
	return enums.DownsellVariantA, true, nil
}
