package reviews

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"seatrail/services/marketplace"
)

// Rating is an aggregate over a set of reviews.
type Rating struct {
	Average   float64       `json:"average"`
	Count     int64         `json:"count"`
	Breakdown map[int]int64 `json:"breakdown"`
}

// Average returns sum/count rounded half up to two decimals, or 0 when count is 0.
// The arithmetic is done in integer hundredths so no binary rounding leaks in.
func Average(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	cents := (200*sum + count) / (2 * count)
	return float64(cents) / 100
}

func newRating(c marketplace.RatingCounts) Rating {
	r := Rating{
		Average:   Average(c.Sum(), c.Count()),
		Count:     c.Count(),
		Breakdown: make(map[int]int64, len(c)),
	}
	for i, n := range c {
		r.Breakdown[i+1] = n
	}
	return r
}

// RecomputeGuideRating rewrites the cached rating of a guide from its reviews.
// It must run in the same transaction as the review mutation it follows.
func RecomputeGuideRating(ctx context.Context, tx marketplace.Tx, guideID uuid.UUID) (marketplace.Guide, error) {
	guide, err := tx.LockGuide(ctx, guideID)
	if err != nil {
		return marketplace.Guide{}, err
	}

	counts, err := tx.RatingCounts(ctx, marketplace.ReviewFilter{GuideID: guideID})
	if err != nil {
		return marketplace.Guide{}, err
	}

	guide.AverageRating = Average(counts.Sum(), counts.Count())
	guide.TotalReviews = int(counts.Count())
	if err := tx.UpdateGuide(ctx, &guide); err != nil {
		return marketplace.Guide{}, fmt.Errorf("store rating for guide %s: %w", guideID, err)
	}
	return guide, nil
}
