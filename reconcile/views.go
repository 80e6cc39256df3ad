package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/model"
	"github.com/vsonglab/vtuber-catalog/store"
)

// ViewTracker rolls song view counters forward and prunes songs removed
// upstream.
type ViewTracker struct {
	api   client.API
	songs store.SongStore
	now   func() time.Time
}

// NewViewTracker wires a view-count update pass.
func NewViewTracker(api client.API, songs store.SongStore) *ViewTracker {
	return &ViewTracker{api: api, songs: songs, now: time.Now}
}

// ViewStats summarizes one view-count pass.
type ViewStats struct {
	Updated  int
	Deleted  int
	Skipped  int
	Promoted int
}

// RunViewCounts refreshes the view counter of every cataloged song. The
// daily delta is taken on each pass and may be negative; the weekly delta
// rolls over on Mondays only. A song upstream no longer knows is deleted.
// Per-song transient failures are skipped; quota exhaustion aborts.
func (t *ViewTracker) RunViewCounts(ctx context.Context) (ViewStats, error) {
	var stats ViewStats

	songs, err := t.songs.All(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list songs: %w", err)
	}

	now := t.now()
	weeklyRollover := now.Weekday() == time.Monday

	for _, s := range songs {
		count, found, err := t.api.VideoViewCount(ctx, s.VideoID)
		if err != nil {
			if errors.Is(err, client.ErrQuotaExhausted) {
				return stats, err
			}
			log.Warn().Err(err).Str("video_id", s.VideoID).Msg("View count fetch failed, skipping song")
			stats.Skipped++
			continue
		}

		if !found {
			log.Info().Str("video_id", s.VideoID).Msg("Song removed upstream, deleting")
			if err := t.songs.Delete(ctx, s.VideoID); err != nil {
				return stats, fmt.Errorf("failed to delete song %s: %w", s.VideoID, err)
			}
			stats.Deleted++
			continue
		}

		s.ViewsIncreaseDay = count - s.ViewCount
		s.ViewCount = count
		s.UpdateDayTime = now
		if weeklyRollover {
			s.ViewsIncreaseWeek = count - s.LastWeekViewCount
			s.LastWeekViewCount = count
			s.UpdateWeekTime = now
		}

		if err := t.songs.Save(ctx, s); err != nil {
			return stats, fmt.Errorf("failed to save song %s: %w", s.VideoID, err)
		}
		stats.Updated++
	}

	log.Info().
		Int("updated", stats.Updated).
		Int("deleted", stats.Deleted).
		Int("skipped", stats.Skipped).
		Bool("weekly_rollover", weeklyRollover).
		Msg("View count update complete")
	return stats, nil
}

// RunStatusPromotion flips songs out of status new once they have survived
// a full tracking cycle, so rankings stop treating them as just-arrived.
func (t *ViewTracker) RunStatusPromotion(ctx context.Context) (ViewStats, error) {
	var stats ViewStats

	fresh, err := t.songs.FindByStatus(ctx, model.SongStatusNew)
	if err != nil {
		return stats, fmt.Errorf("failed to list new songs: %w", err)
	}

	now := t.now()
	for _, s := range fresh {
		s.Status = model.SongStatusExisting
		s.UpdateDayTime = now
		if err := t.songs.Save(ctx, s); err != nil {
			return stats, fmt.Errorf("failed to promote song %s: %w", s.VideoID, err)
		}
		stats.Promoted++
	}

	log.Info().Int("promoted", stats.Promoted).Msg("Song status promotion complete")
	return stats, nil
}
