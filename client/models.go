package client

import (
	"context"
	"time"
)

// ChannelDetail is the channel metadata subset the classifier and the
// reconciler consume.
type ChannelDetail struct {
	ID           string
	Title        string
	Description  string
	Subscribers  int64
	ThumbnailURL string
}

// VideoDetail is the video metadata subset the media classifier and the
// ingestion pipeline consume. Duration is the raw ISO-8601 string as
// returned by the platform.
type VideoDetail struct {
	ID          string
	ChannelID   string
	Title       string
	Description string
	Duration    string
	CategoryID  string
	PublishedAt time.Time
	ViewCount   int64
}

// API is the upstream surface the crawler depends on. The production
// implementation is DataClient; tests substitute fakes.
type API interface {
	// SearchChannelIDs returns one page of channel IDs matching query.
	SearchChannelIDs(ctx context.Context, query, pageToken string) ([]string, string, error)

	// ChannelsByIDs bulk-fetches metadata for up to 50 channel IDs.
	ChannelsByIDs(ctx context.Context, ids []string) ([]*ChannelDetail, error)

	// UploadsPlaylistID resolves a channel's uploads playlist.
	UploadsPlaylistID(ctx context.Context, channelID string) (string, error)

	// PlaylistVideoIDs returns one page of video IDs from a playlist.
	PlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) ([]string, string, error)

	// VideosByIDs bulk-fetches metadata for up to 50 video IDs.
	VideosByIDs(ctx context.Context, ids []string) ([]*VideoDetail, error)

	// SearchVideoIDs returns one page of a channel's video IDs matching
	// query, newest first, published after the given time.
	SearchVideoIDs(ctx context.Context, channelID, query string, publishedAfter time.Time, pageToken string) ([]string, string, error)

	// RecentVideoTitles returns the titles of a channel's most recent
	// uploads, used by the content-pattern heuristic.
	RecentVideoTitles(ctx context.Context, channelID string, limit int64) ([]string, error)

	// VideoViewCount fetches the current view count for a single video.
	// found is false when upstream no longer knows the video.
	VideoViewCount(ctx context.Context, videoID string) (count int64, found bool, err error)
}
