// Package model defines the catalog data model shared by the crawler components.
package model

import (
	"time"
)

// ChannelStatus tracks a channel's position in the ingestion lifecycle.
type ChannelStatus string

const (
	ChannelStatusNew        ChannelStatus = "new"
	ChannelStatusExisting   ChannelStatus = "existing"
	ChannelStatusProcessing ChannelStatus = "processing"
	ChannelStatusProcessed  ChannelStatus = "processed"
	ChannelStatusUpdated    ChannelStatus = "updated"
	ChannelStatusError      ChannelStatus = "error"
)

// SongStatus tracks whether a song has been through the weekly promotion sweep.
type SongStatus string

const (
	SongStatusNew      SongStatus = "new"
	SongStatusExisting SongStatus = "existing"
)

// Classification buckets a video by format. Items classified ignore are
// never persisted.
type Classification string

const (
	ClassificationVideos Classification = "videos"
	ClassificationShorts Classification = "shorts"
	ClassificationIgnore Classification = "ignore"
)

// MaxDescriptionLen is the write-time cap on channel descriptions.
const MaxDescriptionLen = 255

// Channel is a catalog record mirroring a creator's account on the platform.
// Exactly one Channel exists per external channel ID.
type Channel struct {
	ChannelID   string
	Name        string
	Description string
	Subscribers int64
	ChannelImg  string
	Gender      string
	Status      ChannelStatus
	AddedAt     time.Time
}

// Song is a video or short classified as a song and retained for
// popularity tracking. At most one Song exists per external video ID.
// ChannelID is a loose reference; orphaned songs are tolerated.
type Song struct {
	VideoID        string
	ChannelID      string
	ChannelName    string
	Title          string
	Description    string
	Classification Classification
	Status         SongStatus
	PublishedAt    time.Time
	AddedAt        time.Time

	ViewCount         int64
	LastWeekViewCount int64
	ViewsIncreaseDay  int64
	ViewsIncreaseWeek int64
	UpdateDayTime     time.Time
	UpdateWeekTime    time.Time
}

// TruncateDescription caps a description at MaxDescriptionLen runes.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxDescriptionLen {
		return s
	}
	return string(runes[:MaxDescriptionLen])
}
