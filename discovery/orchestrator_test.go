package discovery

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

// fakeAPI implements client.API for pipeline tests. Only the methods the
// discovery path touches are scripted.
type fakeAPI struct {
	mu sync.Mutex

	searchResults map[string][]string
	searchErr     error
	channels      map[string]*client.ChannelDetail
	channelsErr   error

	searchCalls   int
	channelsCalls int
}

func (f *fakeAPI) SearchChannelIDs(_ context.Context, query, _ string) ([]string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, "", f.searchErr
	}
	return f.searchResults[query], "", nil
}

func (f *fakeAPI) ChannelsByIDs(_ context.Context, ids []string) ([]*client.ChannelDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelsCalls++
	if f.channelsErr != nil {
		return nil, f.channelsErr
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

func (f *fakeAPI) VideoViewCount(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("not scripted")
}

type fakeSource struct {
	ids []string
	err error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) CandidateChannelIDs(context.Context) ([]string, error) {
	return f.ids, f.err
}

func acceptableChannel(id string) *client.ChannelDetail {
	return &client.ChannelDetail{
		ID:          id,
		Title:       "소연",
		Description: "버츄얼 유튜버 소연입니다",
		Subscribers: 5000,
	}
}

func rejectableChannel(id string) *client.ChannelDetail {
	return &client.ChannelDetail{
		ID:          id,
		Title:       "소연",
		Description: "안녕하세요",
		Subscribers: 100,
	}
}

func TestRunPersistsAcceptedChannels(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	api := &fakeAPI{
		searchResults: map[string][]string{"버튜버": {"UC1", "UC2"}},
		channels: map[string]*client.ChannelDetail{
			"UC1": acceptableChannel("UC1"),
			"UC2": rejectableChannel("UC2"),
		},
	}

	o := NewOrchestrator(api, mem.Channels(), mem.Exclusions(), Options{Queries: []string{"버튜버"}})
	stats, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 2, stats.Classified)
	assert.Equal(t, 1, stats.Accepted)

	saved, err := mem.Channels().FindByChannelID(ctx, "UC1")
	require.NoError(t, err)
	assert.Equal(t, model.ChannelStatusNew, saved.Status)
	assert.Equal(t, "소연", saved.Name)

	_, err = mem.Channels().FindByChannelID(ctx, "UC2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunSkipsKnownExcludedAndCachedChannels(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Channels().Save(ctx, &model.Channel{ChannelID: "UC-known", Status: model.ChannelStatusExisting}))
	require.NoError(t, mem.Exclusions().Add(ctx, "UC-excluded"))

	api := &fakeAPI{
		searchResults: map[string][]string{"버튜버": {"UC-known", "UC-excluded", "UC-new"}},
		channels:      map[string]*client.ChannelDetail{"UC-new": acceptableChannel("UC-new")},
	}

	o := NewOrchestrator(api, mem.Channels(), mem.Exclusions(), Options{Queries: []string{"버튜버"}})
	stats, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Candidates)
	assert.Equal(t, 1, stats.Classified)
	assert.Equal(t, 1, stats.Accepted)

	// Second run: the classified channel is cache-hit, nothing to fetch.
	second, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Classified)
}

func TestRunAbortsOnQuotaExhaustion(t *testing.T) {
	mem := store.NewMemory()
	api := &fakeAPI{searchErr: client.ErrQuotaExhausted}

	o := NewOrchestrator(api, mem.Channels(), mem.Exclusions(), Options{Queries: []string{"버튜버", "Vtuber"}})
	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, client.ErrQuotaExhausted)
	// The first query's failure aborts before the second is attempted.
	assert.Equal(t, 1, api.searchCalls)
}

func TestRunSkipsFailingQueryOnTransientError(t *testing.T) {
	mem := store.NewMemory()
	api := &fakeAPI{searchErr: errors.New("connection reset")}

	o := NewOrchestrator(api, mem.Channels(), mem.Exclusions(), Options{Queries: []string{"버튜버", "Vtuber"}})
	stats, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Candidates)
	assert.Equal(t, 2, api.searchCalls)
}

func TestRunMergesCandidateSources(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	api := &fakeAPI{
		searchResults: map[string][]string{"버튜버": {"UC1"}},
		channels: map[string]*client.ChannelDetail{
			"UC1": acceptableChannel("UC1"),
			"UC2": acceptableChannel("UC2"),
		},
	}
	working := &fakeSource{ids: []string{"UC1", "UC2"}}
	broken := &fakeSource{err: errors.New("fetch failed")}

	o := NewOrchestrator(api, mem.Channels(), mem.Exclusions(), Options{
		Queries: []string{"버튜버"},
		Sources: []CandidateSource{working, broken},
	})
	stats, err := o.Run(ctx)
	require.NoError(t, err)
	// UC1 deduplicated across search and source; broken source skipped.
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 2, stats.Accepted)
}

func TestRunRepairsMissingImages(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Channels().Save(ctx, &model.Channel{
		ChannelID: "UC-bare",
		Name:      "소연",
		Status:    model.ChannelStatusExisting,
	}))

	detail := acceptableChannel("UC-bare")
	detail.ThumbnailURL = "https://example.com/thumb.jpg"
	api := &fakeAPI{
		searchResults: map[string][]string{},
		channels:      map[string]*client.ChannelDetail{"UC-bare": detail},
	}

	o := NewOrchestrator(api, mem.Channels(), mem.Exclusions(), Options{Queries: []string{"버튜버"}})
	_, err := o.Run(ctx)
	require.NoError(t, err)

	repaired, err := mem.Channels().FindByChannelID(ctx, "UC-bare")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/thumb.jpg", repaired.ChannelImg)
}
