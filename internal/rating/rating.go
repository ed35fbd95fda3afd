// Package rating keeps a torrent's average_rating in step with its comments.
package rating

import (
	"context"
	"fmt"
	"math"

	"torrents/internal/store"
)

// Recalculate stores the mean comment rating of torrentID, rounded to two
// decimals. A torrent without comments is rated 0.
func Recalculate(ctx context.Context, torrents store.TorrentRepository, torrentID string) (float64, error) {
	value, err := torrents.UpdateRating(ctx, torrentID, Mean)
	if err != nil {
		return 0, fmt.Errorf("recalculating rating: %w", err)
	}
	return value, nil
}

// Mean is the stored rating of count comments averaging avg.
func Mean(avg float64, count int64) float64 {
	if count == 0 {
		return 0
	}
	return Round2(avg)
}

func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
