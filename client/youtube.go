// Package client provides quota-aware access to the YouTube Data API.
// Every upstream call goes through a shared rate limiter and the
// credential pool; quota-exceeded rejections rotate credentials and retry
// until the pool is exhausted.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	ytapi "google.golang.org/api/youtube/v3"
)

// DefaultRatePerSecond throttles below the platform's burst limits
// independently of the daily quota.
const DefaultRatePerSecond = 5.0

const maxSearchResults = 50

// DataClient implements API against the YouTube Data API v3.
type DataClient struct {
	pool    *Pool
	limiter *rate.Limiter
}

// NewDataClient wraps a credential pool. The rate limiter is shared by all
// goroutines calling through this client.
func NewDataClient(pool *Pool, perSecond float64) *DataClient {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	return &DataClient{
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// execute runs call under the rate limiter with quota-rotation retry.
// Quota rejections mark the active credential unavailable and retry on the
// next one, at most once per credential; transient errors are retried once
// on the same credential and then surfaced to the caller.
func (c *DataClient) execute(ctx context.Context, call func(svc *ytapi.Service) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	retriedTransient := false
	for attempts := 0; attempts < c.pool.Size(); {
		service, index := c.pool.Active()
		err := call(service)
		if err == nil {
			c.pool.RecordUse()
			return nil
		}

		if IsQuotaExceeded(err) {
			attempts++
			log.Warn().
				Int("credential_index", index).
				Int("attempt", attempts).
				Msg("API quota exceeded, rotating credential and retrying")
			if rotErr := c.pool.MarkExhausted(index); rotErr != nil {
				return ErrQuotaExhausted
			}
			continue
		}

		if !retriedTransient {
			retriedTransient = true
			log.Warn().Err(err).Msg("Transient API error, retrying once on same credential")
			continue
		}
		return err
	}
	return ErrQuotaExhausted
}

// SearchChannelIDs implements API.
func (c *DataClient) SearchChannelIDs(ctx context.Context, query, pageToken string) ([]string, string, error) {
	var ids []string
	var next string

	err := c.execute(ctx, func(svc *ytapi.Service) error {
		call := svc.Search.List([]string{"id", "snippet"}).
			Q(query).
			Type("channel").
			MaxResults(maxSearchResults).
			Fields(googleapi.Field("nextPageToken,items(id/channelId,snippet/title,snippet/description)")).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return err
		}

		ids = ids[:0]
		for _, item := range resp.Items {
			if item.Id != nil && item.Id.ChannelId != "" {
				ids = append(ids, item.Id.ChannelId)
			}
		}
		next = resp.NextPageToken
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("channel search for %q failed: %w", query, err)
	}

	log.Debug().Str("query", query).Int("channel_count", len(ids)).Msg("Channel search page retrieved")
	return ids, next, nil
}

// ChannelsByIDs implements API.
func (c *DataClient) ChannelsByIDs(ctx context.Context, ids []string) ([]*ChannelDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var details []*ChannelDetail
	err := c.execute(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Channels.List([]string{"snippet", "statistics"}).
			Id(ids...).
			Fields(googleapi.Field("items(id,snippet/title,snippet/description,snippet/thumbnails/default/url,statistics/subscriberCount)")).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		details = details[:0]
		for _, item := range resp.Items {
			detail := &ChannelDetail{
				ID:          item.Id,
				Title:       item.Snippet.Title,
				Description: item.Snippet.Description,
			}
			if item.Statistics != nil {
				detail.Subscribers = int64(item.Statistics.SubscriberCount)
			}
			if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Default != nil {
				detail.ThumbnailURL = item.Snippet.Thumbnails.Default.Url
			}
			details = append(details, detail)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("channel lookup for %d ids failed: %w", len(ids), err)
	}
	return details, nil
}

// UploadsPlaylistID implements API.
func (c *DataClient) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	var playlistID string
	err := c.execute(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("channel not found on YouTube: %s", channelID)
		}
		playlistID = resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
		return nil
	})
	if err != nil {
		return "", err
	}
	return playlistID, nil
}

// PlaylistVideoIDs implements API.
func (c *DataClient) PlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) ([]string, string, error) {
	var ids []string
	var next string

	err := c.execute(ctx, func(svc *ytapi.Service) error {
		call := svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(maxSearchResults).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return err
		}

		ids = ids[:0]
		for _, item := range resp.Items {
			ids = append(ids, item.ContentDetails.VideoId)
		}
		next = resp.NextPageToken
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("playlist page for %s failed: %w", playlistID, err)
	}
	return ids, next, nil
}

// VideosByIDs implements API.
func (c *DataClient) VideosByIDs(ctx context.Context, ids []string) ([]*VideoDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var details []*VideoDetail
	err := c.execute(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Videos.List([]string{"id", "snippet", "contentDetails", "statistics"}).
			Id(ids...).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		details = details[:0]
		for _, item := range resp.Items {
			publishedAt, perr := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			if perr != nil {
				log.Warn().Err(perr).Str("video_id", item.Id).Msg("Failed to parse video published date")
			}

			detail := &VideoDetail{
				ID:          item.Id,
				ChannelID:   item.Snippet.ChannelId,
				Title:       item.Snippet.Title,
				Description: item.Snippet.Description,
				CategoryID:  item.Snippet.CategoryId,
				PublishedAt: publishedAt,
			}
			if item.ContentDetails != nil {
				detail.Duration = item.ContentDetails.Duration
			}
			if item.Statistics != nil {
				detail.ViewCount = int64(item.Statistics.ViewCount)
			}
			details = append(details, detail)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("video lookup for %d ids failed: %w", len(ids), err)
	}
	return details, nil
}

// SearchVideoIDs implements API.
func (c *DataClient) SearchVideoIDs(ctx context.Context, channelID, query string, publishedAfter time.Time, pageToken string) ([]string, string, error) {
	var ids []string
	var next string

	err := c.execute(ctx, func(svc *ytapi.Service) error {
		call := svc.Search.List([]string{"id", "snippet"}).
			ChannelId(channelID).
			Q(query).
			Type("video").
			Order("date").
			MaxResults(maxSearchResults).
			Fields(googleapi.Field("nextPageToken,items(id/videoId)")).
			Context(ctx)
		if !publishedAfter.IsZero() {
			call = call.PublishedAfter(publishedAfter.Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return err
		}

		ids = ids[:0]
		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				ids = append(ids, item.Id.VideoId)
			}
		}
		next = resp.NextPageToken
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("video search on channel %s failed: %w", channelID, err)
	}
	return ids, next, nil
}

// RecentVideoTitles implements API.
func (c *DataClient) RecentVideoTitles(ctx context.Context, channelID string, limit int64) ([]string, error) {
	var titles []string
	err := c.execute(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			Type("video").
			Order("date").
			MaxResults(limit).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		titles = titles[:0]
		for _, item := range resp.Items {
			if item.Snippet != nil {
				titles = append(titles, item.Snippet.Title)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recent uploads for channel %s failed: %w", channelID, err)
	}
	return titles, nil
}

// VideoViewCount implements API. A response with no items means the video
// was removed upstream.
func (c *DataClient) VideoViewCount(ctx context.Context, videoID string) (int64, bool, error) {
	var count int64
	var found bool

	err := c.execute(ctx, func(svc *ytapi.Service) error {
		resp, err := svc.Videos.List([]string{"statistics"}).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			found = false
			return nil
		}
		found = true
		if resp.Items[0].Statistics != nil {
			count = int64(resp.Items[0].Statistics.ViewCount)
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("view count fetch for %s failed: %w", videoID, err)
	}
	return count, found, nil
}
