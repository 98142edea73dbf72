package cancellations

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
)

type stubLatestFinder struct {
	latest *models.Cancellation
	err    error
}

func (s *stubLatestFinder) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error) {
	return s.latest, s.err
}

type fixedFlipper struct {
	heads bool
}

func (f fixedFlipper) Flip() (bool, error) {
	return f.heads, nil
}

func TestAssignReusesPriorVariant(t *testing.T) {
	for _, variant := range []enums.DownsellVariant{enums.DownsellVariantA, enums.DownsellVariantB} {
		finder := &stubLatestFinder{latest: &models.Cancellation{DownsellVariant: variant}}
		// Flipper biased against the stored variant; it must never be consulted.
		assignor := NewAssignor(finder, fixedFlipper{heads: variant == enums.DownsellVariantA})

		for i := 0; i < 20; i++ {
			got, fresh, err := assignor.Assign(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("assign failed: %v", err)
			}
			if got != variant {
				t.Fatalf("expected sticky variant %s, got %s", variant, got)
			}
			if fresh {
				t.Fatalf("sticky assignment must not be reported as fresh")
			}
		}
	}
}

func TestAssignDrawsWhenNoHistory(t *testing.T) {
	finder := &stubLatestFinder{}

	got, fresh, err := NewAssignor(finder, fixedFlipper{heads: true}).Assign(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if got != enums.DownsellVariantB || !fresh {
		t.Fatalf("expected fresh variant B, got %s fresh=%v", got, fresh)
	}

	got, fresh, err = NewAssignor(finder, fixedFlipper{heads: false}).Assign(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if got != enums.DownsellVariantA || !fresh {
		t.Fatalf("expected fresh variant A, got %s fresh=%v", got, fresh)
	}
}

func TestAssignIgnoresInvalidStoredVariant(t *testing.T) {
	finder := &stubLatestFinder{latest: &models.Cancellation{DownsellVariant: ""}}
	got, fresh, err := NewAssignor(finder, fixedFlipper{heads: true}).Assign(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if got != enums.DownsellVariantB || !fresh {
		t.Fatalf("expected fresh draw when stored variant invalid, got %s fresh=%v", got, fresh)
	}
}

func TestCryptoFlipperProducesBothOutcomes(t *testing.T) {
	flipper := CryptoFlipper{}
	seen := map[bool]bool{}
	for i := 0; i < 256; i++ {
		v, err := flipper.Flip()
		if err != nil {
			t.Fatalf("flip failed: %v", err)
		}
		seen[v] = true
		if len(seen) == 2 {
			return
		}
	}
	t.Fatalf("expected both outcomes in 256 flips, saw %v", seen)
}
