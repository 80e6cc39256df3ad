package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/model"
	"github.com/vsonglab/vtuber-catalog/store"
)

type fakeAPI struct {
	mu       sync.Mutex
	channels map[string]*client.ChannelDetail
	chanErr  error

	viewCounts map[string]int64
	viewErrs   map[string]error
}

func (f *fakeAPI) SearchChannelIDs(context.Context, string, string) ([]string, string, error) {
	return nil, "", errors.New("not scripted")
}

func (f *fakeAPI) ChannelsByIDs(_ context.Context, ids []string) ([]*client.ChannelDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chanErr != nil {
		return nil, f.chanErr
	}
	var out []*client.ChannelDetail
	for _, id := range ids {
		if ch, ok := f.channels[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeAPI) UploadsPlaylistID(context.Context, string) (string, error) {
	return "", errors.New("not scripted")
}

func (f *fakeAPI) PlaylistVideoIDs(context.Context, string, string) ([]string, string, error) {
	return nil, "", errors.New("not scripted")
}

func (f *fakeAPI) VideosByIDs(context.Context, []string) ([]*client.VideoDetail, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeAPI) SearchVideoIDs(context.Context, string, string, time.Time, string) ([]string, string, error) {
	return nil, "", errors.New("not scripted")
}

func (f *fakeAPI) RecentVideoTitles(context.Context, string, int64) ([]string, error) {
	return nil, nil
}

func (f *fakeAPI) VideoViewCount(_ context.Context, videoID string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.viewErrs[videoID]; ok {
		return 0, false, err
	}
	count, ok := f.viewCounts[videoID]
	return count, ok, nil
}

func seedChannel(t *testing.T, mem *store.Memory, id string) {
	t.Helper()
	require.NoError(t, mem.Channels().Save(context.Background(), &model.Channel{
		ChannelID:   id,
		Name:        "stale name",
		Subscribers: 1,
		Status:      model.ChannelStatusExisting,
	}))
}

func seedSong(t *testing.T, mem *store.Memory, videoID, channelID string) {
	t.Helper()
	require.NoError(t, mem.Songs().Save(context.Background(), &model.Song{
		VideoID:        videoID,
		ChannelID:      channelID,
		Classification: model.ClassificationVideos,
		Status:         model.SongStatusExisting,
	}))
}

func TestRunUpdatesConfirmedAndRemovesUnconfirmed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, "UC-alive")
	seedChannel(t, mem, "UC-gone")
	seedSong(t, mem, "v-alive", "UC-alive")
	seedSong(t, mem, "v-gone-1", "UC-gone")
	seedSong(t, mem, "v-gone-2", "UC-gone")

	api := &fakeAPI{channels: map[string]*client.ChannelDetail{
		"UC-alive": {
			ID:           "UC-alive",
			Title:        "fresh name",
			Description:  "fresh description",
			Subscribers:  8000,
			ThumbnailURL: "https://example.com/new.jpg",
		},
	}}

	stats, err := NewReconciler(api, mem.Channels(), mem.Songs(), mem.Exclusions(), 2).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Checked)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Removed)

	alive, err := mem.Channels().FindByChannelID(ctx, "UC-alive")
	require.NoError(t, err)
	assert.Equal(t, "fresh name", alive.Name)
	assert.Equal(t, int64(8000), alive.Subscribers)
	assert.Equal(t, model.ChannelStatusUpdated, alive.Status)

	_, err = mem.Channels().FindByChannelID(ctx, "UC-gone")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Songs cascade with their channel; other channels' songs survive.
	all, err := mem.Songs().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v-alive", all[0].VideoID)
}

func TestRunRetainsBatchOnTransientError(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, "UC1")
	seedChannel(t, mem, "UC2")

	api := &fakeAPI{chanErr: errors.New("connection reset")}

	stats, err := NewReconciler(api, mem.Channels(), mem.Songs(), mem.Exclusions(), 2).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Removed)
	assert.Equal(t, 2, stats.Retained)

	// Retained channels keep their stale record untouched.
	ch, err := mem.Channels().FindByChannelID(ctx, "UC1")
	require.NoError(t, err)
	assert.Equal(t, "stale name", ch.Name)
}

func TestRunAbortsWithoutRemovalOnQuotaExhaustion(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, "UC1")
	seedChannel(t, mem, "UC2")

	api := &fakeAPI{chanErr: client.ErrQuotaExhausted}

	_, err := NewReconciler(api, mem.Channels(), mem.Songs(), mem.Exclusions(), 2).Run(ctx)
	assert.ErrorIs(t, err, client.ErrQuotaExhausted)

	ids, err2 := mem.Channels().AllChannelIDs(ctx)
	require.NoError(t, err2)
	assert.Len(t, ids, 2)
}

func TestRunLeavesExcludedChannelsUntouched(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedChannel(t, mem, "UC-alive")
	seedChannel(t, mem, "UC-excluded")
	require.NoError(t, mem.Exclusions().Add(ctx, "UC-excluded"))

	// Upstream knows neither channel; only the non-excluded one may go.
	api := &fakeAPI{channels: map[string]*client.ChannelDetail{}}

	stats, err := NewReconciler(api, mem.Channels(), mem.Songs(), mem.Exclusions(), 2).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Checked)
	assert.Equal(t, 1, stats.Removed)

	ch, err := mem.Channels().FindByChannelID(ctx, "UC-excluded")
	require.NoError(t, err)
	assert.Equal(t, "stale name", ch.Name)
}

func TestRunEmptyCatalog(t *testing.T) {
	mem := store.NewMemory()
	stats, err := NewReconciler(&fakeAPI{}, mem.Channels(), mem.Songs(), mem.Exclusions(), 2).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
}
