// Package store defines the persistence contracts for the catalog and
// provides a Postgres implementation alongside an in-memory one used for
// tests and for running without a database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vsonglab/vtuber-catalog/model"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("record not found")

// ChannelStore persists catalog channels keyed by external channel ID.
// Save is an upsert.
type ChannelStore interface {
	Save(ctx context.Context, ch *model.Channel) error
	FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error)
	ExistsByChannelID(ctx context.Context, channelID string) (bool, error)
	DeleteByChannelID(ctx context.Context, channelID string) error
	AllChannelIDs(ctx context.Context) ([]string, error)
	FindByStatus(ctx context.Context, status model.ChannelStatus) ([]*model.Channel, error)
	FindMissingImage(ctx context.Context) ([]*model.Channel, error)
	ChannelIDsByGender(ctx context.Context, gender string) ([]string, error)
}

// SongStore persists catalog songs keyed by external video ID. Save is an
// upsert.
type SongStore interface {
	Save(ctx context.Context, s *model.Song) error
	FindByVideoID(ctx context.Context, videoID string) (*model.Song, error)
	ExistsByVideoID(ctx context.Context, videoID string) (bool, error)
	Delete(ctx context.Context, videoID string) error
	DeleteByChannelID(ctx context.Context, channelID string) error
	All(ctx context.Context) ([]*model.Song, error)
	FindByStatus(ctx context.Context, status model.SongStatus) ([]*model.Song, error)
	FindByChannelID(ctx context.Context, channelID string) ([]*model.Song, error)
	CountByChannelID(ctx context.Context, channelID string) (int64, error)
	RandomByClassification(ctx context.Context, c model.Classification, limit int) ([]*model.Song, error)
	RecentlyPublished(ctx context.Context, since time.Time, limit int) ([]*model.Song, error)
	TopDailyRisers(ctx context.Context, limit int) ([]*model.Song, error)
	TopWeeklyRisers(ctx context.Context, limit int) ([]*model.Song, error)
}

// ExclusionStore records channels that must never re-enter the catalog,
// regardless of what the classifiers decide.
type ExclusionStore interface {
	Add(ctx context.Context, channelID string) error
	IsExcluded(ctx context.Context, channelID string) (bool, error)
	All(ctx context.Context) ([]string, error)
}
