package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vsonglab/vtuber-catalog/model"
)

// Postgres backs the store contracts with a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Connected to Postgres")
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Migrate creates the catalog tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel_id   TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			subscribers  BIGINT NOT NULL DEFAULT 0,
			channel_img  TEXT NOT NULL DEFAULT '',
			gender       TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			added_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS songs (
			video_id             TEXT PRIMARY KEY,
			channel_id           TEXT NOT NULL,
			channel_name         TEXT NOT NULL DEFAULT '',
			title                TEXT NOT NULL,
			description          TEXT NOT NULL DEFAULT '',
			classification       TEXT NOT NULL,
			status               TEXT NOT NULL,
			published_at         TIMESTAMPTZ NOT NULL,
			added_at             TIMESTAMPTZ NOT NULL,
			view_count           BIGINT NOT NULL DEFAULT 0,
			last_week_view_count BIGINT NOT NULL DEFAULT 0,
			views_increase_day   BIGINT NOT NULL DEFAULT 0,
			views_increase_week  BIGINT NOT NULL DEFAULT 0,
			update_day_time      TIMESTAMPTZ,
			update_week_time     TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_songs_channel_id ON songs (channel_id)`,
		`CREATE TABLE IF NOT EXISTS excluded_channels (
			channel_id TEXT PRIMARY KEY
		)`,
	}
	for _, stmt := range ddl {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Channels returns the ChannelStore view.
func (p *Postgres) Channels() ChannelStore { return pgChannels{p.pool} }

// Songs returns the SongStore view.
func (p *Postgres) Songs() SongStore { return pgSongs{p.pool} }

// Exclusions returns the ExclusionStore view.
func (p *Postgres) Exclusions() ExclusionStore { return pgExclusions{p.pool} }

type pgChannels struct {
	pool *pgxpool.Pool
}

const channelColumns = `channel_id, name, description, subscribers, channel_img, gender, status, added_at`

func scanChannel(row pgx.Row) (*model.Channel, error) {
	var ch model.Channel
	err := row.Scan(&ch.ChannelID, &ch.Name, &ch.Description, &ch.Subscribers,
		&ch.ChannelImg, &ch.Gender, &ch.Status, &ch.AddedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (p pgChannels) Save(ctx context.Context, ch *model.Channel) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO channels (channel_id, name, description, subscribers, channel_img, gender, status, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (channel_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			subscribers = EXCLUDED.subscribers,
			channel_img = EXCLUDED.channel_img,
			gender = EXCLUDED.gender,
			status = EXCLUDED.status`,
		ch.ChannelID, ch.Name, ch.Description, ch.Subscribers, ch.ChannelImg, ch.Gender, ch.Status, ch.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to save channel %s: %w", ch.ChannelID, err)
	}
	return nil
}

func (p pgChannels) FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error) {
	ch, err := scanChannel(p.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE channel_id = $1`, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load channel %s: %w", channelID, err)
	}
	return ch, nil
}

func (p pgChannels) ExistsByChannelID(ctx context.Context, channelID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM channels WHERE channel_id = $1)`, channelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check channel %s: %w", channelID, err)
	}
	return exists, nil
}

func (p pgChannels) DeleteByChannelID(ctx context.Context, channelID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM channels WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	return nil
}

func (p pgChannels) AllChannelIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT channel_id FROM channels ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p pgChannels) FindByStatus(ctx context.Context, status model.ChannelStatus) ([]*model.Channel, error) {
	return p.queryChannels(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE status = $1 ORDER BY channel_id`, status)
}

func (p pgChannels) FindMissingImage(ctx context.Context) ([]*model.Channel, error) {
	return p.queryChannels(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE channel_img = '' ORDER BY channel_id`)
}

func (p pgChannels) ChannelIDsByGender(ctx context.Context, gender string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT channel_id FROM channels WHERE gender = $1 ORDER BY channel_id`, gender)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels by gender: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p pgChannels) queryChannels(ctx context.Context, sql string, args ...any) ([]*model.Channel, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("channel query failed: %w", err)
	}
	defer rows.Close()

	var out []*model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

type pgSongs struct {
	pool *pgxpool.Pool
}

const songColumns = `video_id, channel_id, channel_name, title, description, classification, status,
	published_at, added_at, view_count, last_week_view_count, views_increase_day, views_increase_week,
	update_day_time, update_week_time`

func scanSong(row pgx.Row) (*model.Song, error) {
	var s model.Song
	err := row.Scan(&s.VideoID, &s.ChannelID, &s.ChannelName, &s.Title, &s.Description,
		&s.Classification, &s.Status, &s.PublishedAt, &s.AddedAt, &s.ViewCount,
		&s.LastWeekViewCount, &s.ViewsIncreaseDay, &s.ViewsIncreaseWeek,
		&s.UpdateDayTime, &s.UpdateWeekTime)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p pgSongs) Save(ctx context.Context, s *model.Song) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO songs (video_id, channel_id, channel_name, title, description, classification,
			status, published_at, added_at, view_count, last_week_view_count,
			views_increase_day, views_increase_week, update_day_time, update_week_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (video_id) DO UPDATE SET
			channel_name = EXCLUDED.channel_name,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			classification = EXCLUDED.classification,
			status = EXCLUDED.status,
			view_count = EXCLUDED.view_count,
			last_week_view_count = EXCLUDED.last_week_view_count,
			views_increase_day = EXCLUDED.views_increase_day,
			views_increase_week = EXCLUDED.views_increase_week,
			update_day_time = EXCLUDED.update_day_time,
			update_week_time = EXCLUDED.update_week_time`,
		s.VideoID, s.ChannelID, s.ChannelName, s.Title, s.Description, s.Classification,
		s.Status, s.PublishedAt, s.AddedAt, s.ViewCount, s.LastWeekViewCount,
		s.ViewsIncreaseDay, s.ViewsIncreaseWeek, s.UpdateDayTime, s.UpdateWeekTime)
	if err != nil {
		return fmt.Errorf("failed to save song %s: %w", s.VideoID, err)
	}
	return nil
}

func (p pgSongs) FindByVideoID(ctx context.Context, videoID string) (*model.Song, error) {
	s, err := scanSong(p.pool.QueryRow(ctx,
		`SELECT `+songColumns+` FROM songs WHERE video_id = $1`, videoID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load song %s: %w", videoID, err)
	}
	return s, nil
}

func (p pgSongs) ExistsByVideoID(ctx context.Context, videoID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM songs WHERE video_id = $1)`, videoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check song %s: %w", videoID, err)
	}
	return exists, nil
}

func (p pgSongs) Delete(ctx context.Context, videoID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM songs WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("failed to delete song %s: %w", videoID, err)
	}
	return nil
}

func (p pgSongs) DeleteByChannelID(ctx context.Context, channelID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM songs WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("failed to delete songs of channel %s: %w", channelID, err)
	}
	return nil
}

func (p pgSongs) All(ctx context.Context) ([]*model.Song, error) {
	return p.querySongs(ctx, `SELECT `+songColumns+` FROM songs ORDER BY video_id`)
}

func (p pgSongs) FindByStatus(ctx context.Context, status model.SongStatus) ([]*model.Song, error) {
	return p.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE status = $1 ORDER BY video_id`, status)
}

func (p pgSongs) FindByChannelID(ctx context.Context, channelID string) ([]*model.Song, error) {
	return p.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE channel_id = $1 ORDER BY video_id`, channelID)
}

func (p pgSongs) CountByChannelID(ctx context.Context, channelID string) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM songs WHERE channel_id = $1`, channelID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count songs of channel %s: %w", channelID, err)
	}
	return n, nil
}

func (p pgSongs) RandomByClassification(ctx context.Context, c model.Classification, limit int) ([]*model.Song, error) {
	return p.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE classification = $1 ORDER BY random() LIMIT $2`, c, limit)
}

func (p pgSongs) RecentlyPublished(ctx context.Context, since time.Time, limit int) ([]*model.Song, error) {
	return p.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs WHERE published_at >= $1 ORDER BY published_at DESC, video_id LIMIT $2`,
		since, limit)
}

func (p pgSongs) TopDailyRisers(ctx context.Context, limit int) ([]*model.Song, error) {
	return p.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs ORDER BY views_increase_day DESC, video_id LIMIT $1`, limit)
}

func (p pgSongs) TopWeeklyRisers(ctx context.Context, limit int) ([]*model.Song, error) {
	return p.querySongs(ctx,
		`SELECT `+songColumns+` FROM songs ORDER BY views_increase_week DESC, video_id LIMIT $1`, limit)
}

func (p pgSongs) querySongs(ctx context.Context, sql string, args ...any) ([]*model.Song, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("song query failed: %w", err)
	}
	defer rows.Close()

	var out []*model.Song
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type pgExclusions struct {
	pool *pgxpool.Pool
}

func (p pgExclusions) Add(ctx context.Context, channelID string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO excluded_channels (channel_id) VALUES ($1) ON CONFLICT DO NOTHING`, channelID)
	if err != nil {
		return fmt.Errorf("failed to exclude channel %s: %w", channelID, err)
	}
	return nil
}

func (p pgExclusions) IsExcluded(ctx context.Context, channelID string) (bool, error) {
	var excluded bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM excluded_channels WHERE channel_id = $1)`, channelID).Scan(&excluded)
	if err != nil {
		return false, fmt.Errorf("failed to check exclusion for %s: %w", channelID, err)
	}
	return excluded, nil
}

func (p pgExclusions) All(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT channel_id FROM excluded_channels ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list excluded channels: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
