// Package ingest walks catalog channels and pulls their song content into
// the song store. New channels get a full uploads-playlist walk; existing
// channels get an incremental search sweep over the recent window.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsonglab/vtuber-catalog/classify"
	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/model"
	"github.com/vsonglab/vtuber-catalog/store"
)

const (
	// songSearchQuery is the OR-term search used for incremental sweeps.
	songSearchQuery = "music|cover|original|official"

	// recentWindow is how far back an incremental sweep looks.
	recentWindow = 7 * 24 * time.Hour

	// videoBatchSize matches the bulk-lookup limit of the upstream API.
	videoBatchSize = 50
)

// Ingestor pulls song content for catalog channels.
type Ingestor struct {
	api      client.API
	channels store.ChannelStore
	songs    store.SongStore
	now      func() time.Time
}

// NewIngestor wires an ingestion pipeline.
func NewIngestor(api client.API, channels store.ChannelStore, songs store.SongStore) *Ingestor {
	return &Ingestor{
		api:      api,
		channels: channels,
		songs:    songs,
		now:      time.Now,
	}
}

// Stats summarizes one ingestion cycle.
type Stats struct {
	Channels  int
	Inspected int
	Saved     int
}

// RunNewChannels performs a full uploads walk for every channel in status
// new and flips it to existing on success. A channel whose walk fails
// transiently is marked error and skipped; quota exhaustion aborts the
// cycle.
func (i *Ingestor) RunNewChannels(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := i.channels.FindByStatus(ctx, model.ChannelStatusNew)
	if err != nil {
		return stats, fmt.Errorf("failed to load new channels: %w", err)
	}

	for _, ch := range pending {
		ch.Status = model.ChannelStatusProcessing
		if err := i.channels.Save(ctx, ch); err != nil {
			return stats, fmt.Errorf("failed to mark channel %s processing: %w", ch.ChannelID, err)
		}

		chStats, err := i.fullWalk(ctx, ch)
		stats.Inspected += chStats.Inspected
		stats.Saved += chStats.Saved
		if err != nil {
			if errors.Is(err, client.ErrQuotaExhausted) {
				return stats, err
			}
			log.Warn().Err(err).Str("channel_id", ch.ChannelID).Msg("Full walk failed, marking channel error")
			ch.Status = model.ChannelStatusError
			if saveErr := i.channels.Save(ctx, ch); saveErr != nil {
				return stats, fmt.Errorf("failed to mark channel %s error: %w", ch.ChannelID, saveErr)
			}
			continue
		}

		ch.Status = model.ChannelStatusExisting
		if err := i.channels.Save(ctx, ch); err != nil {
			return stats, fmt.Errorf("failed to mark channel %s existing: %w", ch.ChannelID, err)
		}
		stats.Channels++
	}

	log.Info().
		Int("channels", stats.Channels).
		Int("inspected", stats.Inspected).
		Int("saved", stats.Saved).
		Msg("New channel ingestion complete")
	return stats, nil
}

// RunExistingChannels sweeps every existing channel for songs published in
// the recent window. Per-channel transient failures are skipped; quota
// exhaustion aborts the cycle.
func (i *Ingestor) RunExistingChannels(ctx context.Context) (Stats, error) {
	var stats Stats

	active, err := i.channels.FindByStatus(ctx, model.ChannelStatusExisting)
	if err != nil {
		return stats, fmt.Errorf("failed to load existing channels: %w", err)
	}

	publishedAfter := i.now().Add(-recentWindow)
	for _, ch := range active {
		chStats, err := i.recentSweep(ctx, ch, publishedAfter)
		stats.Inspected += chStats.Inspected
		stats.Saved += chStats.Saved
		if err != nil {
			if errors.Is(err, client.ErrQuotaExhausted) {
				return stats, err
			}
			log.Warn().Err(err).Str("channel_id", ch.ChannelID).Msg("Recent sweep failed, skipping channel")
			continue
		}
		stats.Channels++
	}

	log.Info().
		Int("channels", stats.Channels).
		Int("inspected", stats.Inspected).
		Int("saved", stats.Saved).
		Msg("Existing channel ingestion complete")
	return stats, nil
}

// fullWalk pages through the channel's uploads playlist end to end.
func (i *Ingestor) fullWalk(ctx context.Context, ch *model.Channel) (Stats, error) {
	var stats Stats

	playlistID, err := i.api.UploadsPlaylistID(ctx, ch.ChannelID)
	if err != nil {
		return stats, err
	}

	pageToken := ""
	for {
		ids, next, err := i.api.PlaylistVideoIDs(ctx, playlistID, pageToken)
		if err != nil {
			return stats, err
		}

		pageStats, err := i.processVideos(ctx, ch, ids)
		stats.Inspected += pageStats.Inspected
		stats.Saved += pageStats.Saved
		if err != nil {
			return stats, err
		}

		if next == "" {
			return stats, nil
		}
		pageToken = next
	}
}

// recentSweep searches the channel for song-term uploads in the window.
func (i *Ingestor) recentSweep(ctx context.Context, ch *model.Channel, publishedAfter time.Time) (Stats, error) {
	var stats Stats

	pageToken := ""
	for {
		ids, next, err := i.api.SearchVideoIDs(ctx, ch.ChannelID, songSearchQuery, publishedAfter, pageToken)
		if err != nil {
			return stats, err
		}

		pageStats, err := i.processVideos(ctx, ch, ids)
		stats.Inspected += pageStats.Inspected
		stats.Saved += pageStats.Saved
		if err != nil {
			return stats, err
		}

		if next == "" {
			return stats, nil
		}
		pageToken = next
	}
}

// processVideos bulk-fetches video metadata and persists every song-related
// video with a keep classification. Already-cataloged videos and videos
// attributed to another channel are skipped.
func (i *Ingestor) processVideos(ctx context.Context, ch *model.Channel, videoIDs []string) (Stats, error) {
	var stats Stats

	for start := 0; start < len(videoIDs); start += videoBatchSize {
		end := start + videoBatchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		details, err := i.api.VideosByIDs(ctx, videoIDs[start:end])
		if err != nil {
			return stats, err
		}

		for _, v := range details {
			stats.Inspected++
			if v.ChannelID != ch.ChannelID {
				continue
			}
			if !classify.IsSongRelated(v) {
				continue
			}
			classification := classify.ClassifyMedia(v)
			if classification == model.ClassificationIgnore {
				continue
			}

			exists, err := i.songs.ExistsByVideoID(ctx, v.ID)
			if err != nil {
				return stats, fmt.Errorf("failed to check song %s: %w", v.ID, err)
			}
			if exists {
				continue
			}

			song := &model.Song{
				VideoID:        v.ID,
				ChannelID:      ch.ChannelID,
				ChannelName:    ch.Name,
				Title:          v.Title,
				Description:    model.TruncateDescription(v.Description),
				Classification: classification,
				Status:         model.SongStatusNew,
				PublishedAt:    v.PublishedAt,
				AddedAt:        i.now(),
				ViewCount:      v.ViewCount,
			}
			if err := i.songs.Save(ctx, song); err != nil {
				return stats, fmt.Errorf("failed to save song %s: %w", v.ID, err)
			}
			stats.Saved++

			log.Debug().
				Str("video_id", v.ID).
				Str("channel_id", ch.ChannelID).
				Str("classification", string(classification)).
				Msg("Song ingested")
		}
	}
	return stats, nil
}
