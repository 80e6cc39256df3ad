// Package reconcile keeps the catalog aligned with upstream: channels that
// disappeared are removed with their songs, surviving channels get fresh
// metadata, and song view counters are rolled forward.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/model"
	"github.com/vsonglab/vtuber-catalog/store"
)

const (
	// channelBatchSize matches the bulk-lookup limit of the upstream API.
	channelBatchSize = 50

	// DefaultWorkers is the batch fetch concurrency.
	DefaultWorkers = 5
)

// Reconciler verifies every cataloged channel against upstream.
type Reconciler struct {
	api        client.API
	channels   store.ChannelStore
	songs      store.SongStore
	exclusions store.ExclusionStore
	workers    int
}

// NewReconciler wires a channel reconciliation pass.
func NewReconciler(api client.API, channels store.ChannelStore, songs store.SongStore, exclusions store.ExclusionStore, workers int) *Reconciler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Reconciler{api: api, channels: channels, songs: songs, exclusions: exclusions, workers: workers}
}

// Stats summarizes one reconciliation pass.
type Stats struct {
	Checked  int
	Updated  int
	Removed  int
	Retained int
}

// Run fetches every cataloged channel in parallel batches, upserts fresh
// metadata for the ones upstream still knows, and removes the rest together
// with their songs. A batch whose fetch fails transiently retains all its
// channels untouched; quota exhaustion aborts the pass before any removal.
func (r *Reconciler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	ids, err := r.channelIDsToCheck(ctx)
	if err != nil {
		return stats, err
	}
	stats.Checked = len(ids)
	if len(ids) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	confirmed := make(map[string]struct{}, len(ids))
	retained := 0
	updated := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for start := 0; start < len(ids); start += channelBatchSize {
		end := start + channelBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		g.Go(func() error {
			details, err := r.api.ChannelsByIDs(gctx, batch)
			if err != nil {
				if errors.Is(err, client.ErrQuotaExhausted) {
					return err
				}
				// Retain the whole batch rather than removing channels on
				// the strength of a failed fetch.
				log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Reconcile batch fetch failed, retaining batch")
				mu.Lock()
				for _, id := range batch {
					confirmed[id] = struct{}{}
				}
				retained += len(batch)
				mu.Unlock()
				return nil
			}

			for _, detail := range details {
				if err := r.refresh(gctx, detail); err != nil {
					return err
				}
				mu.Lock()
				confirmed[detail.ID] = struct{}{}
				updated++
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Abort without removals: an incomplete pass cannot distinguish
		// unconfirmed from unchecked.
		return stats, err
	}
	stats.Updated = updated
	stats.Retained = retained

	for _, id := range ids {
		if _, ok := confirmed[id]; ok {
			continue
		}
		if err := r.remove(ctx, id); err != nil {
			return stats, err
		}
		stats.Removed++
	}

	log.Info().
		Int("checked", stats.Checked).
		Int("updated", stats.Updated).
		Int("removed", stats.Removed).
		Int("retained", stats.Retained).
		Msg("Channel reconciliation complete")
	return stats, nil
}

// channelIDsToCheck loads the catalog ID set minus the exclusion set;
// excluded channels are neither refreshed nor eligible for removal here.
func (r *Reconciler) channelIDsToCheck(ctx context.Context) ([]string, error) {
	ids, err := r.channels.AllChannelIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog channels: %w", err)
	}

	excluded, err := r.exclusions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list excluded channels: %w", err)
	}
	if len(excluded) == 0 {
		return ids, nil
	}

	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	kept := ids[:0]
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// refresh upserts fresh upstream metadata over the catalog record.
func (r *Reconciler) refresh(ctx context.Context, detail *client.ChannelDetail) error {
	ch, err := r.channels.FindByChannelID(ctx, detail.ID)
	if errors.Is(err, store.ErrNotFound) {
		ch = &model.Channel{ChannelID: detail.ID, AddedAt: time.Now()}
	} else if err != nil {
		return fmt.Errorf("failed to load channel %s: %w", detail.ID, err)
	}

	ch.Name = detail.Title
	ch.Description = model.TruncateDescription(detail.Description)
	ch.Subscribers = detail.Subscribers
	if detail.ThumbnailURL != "" {
		ch.ChannelImg = detail.ThumbnailURL
	}
	ch.Status = model.ChannelStatusUpdated

	if err := r.channels.Save(ctx, ch); err != nil {
		return fmt.Errorf("failed to save channel %s: %w", detail.ID, err)
	}
	return nil
}

// remove deletes a channel's songs first so a failure between the two
// deletes leaves the channel visible for the next pass.
func (r *Reconciler) remove(ctx context.Context, channelID string) error {
	log.Info().Str("channel_id", channelID).Msg("Removing channel no longer known upstream")
	if err := r.songs.DeleteByChannelID(ctx, channelID); err != nil {
		return fmt.Errorf("failed to delete songs of channel %s: %w", channelID, err)
	}
	if err := r.channels.DeleteByChannelID(ctx, channelID); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	return nil
}
