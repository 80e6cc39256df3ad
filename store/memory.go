package store

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vsonglab/vtuber-catalog/model"
)

// Memory is a map-backed database implementing all three store contracts
// through its Channels, Songs and Exclusions views. It is the default
// backend when no database is configured and the fixture backend in tests.
type Memory struct {
	mu        sync.RWMutex
	channels  map[string]*model.Channel
	songs     map[string]*model.Song
	exclusion map[string]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		channels:  make(map[string]*model.Channel),
		songs:     make(map[string]*model.Song),
		exclusion: make(map[string]struct{}),
	}
}

// Channels returns the ChannelStore view.
func (m *Memory) Channels() ChannelStore { return memoryChannels{m} }

// Songs returns the SongStore view.
func (m *Memory) Songs() SongStore { return memorySongs{m} }

// Exclusions returns the ExclusionStore view.
func (m *Memory) Exclusions() ExclusionStore { return memoryExclusions{m} }

type memoryChannels struct{ *Memory }

func (m memoryChannels) Save(_ context.Context, ch *model.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ch
	m.channels[ch.ChannelID] = &cp
	return nil
}

func (m memoryChannels) FindByChannelID(_ context.Context, channelID string) (*model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (m memoryChannels) ExistsByChannelID(_ context.Context, channelID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[channelID]
	return ok, nil
}

func (m memoryChannels) DeleteByChannelID(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, channelID)
	return nil
}

func (m memoryChannels) AllChannelIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.channels))
	for id := range m.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m memoryChannels) FindByStatus(_ context.Context, status model.ChannelStatus) ([]*model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Channel
	for _, ch := range m.channels {
		if ch.Status == status {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sortChannels(out)
	return out, nil
}

func (m memoryChannels) FindMissingImage(_ context.Context) ([]*model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Channel
	for _, ch := range m.channels {
		if ch.ChannelImg == "" {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sortChannels(out)
	return out, nil
}

func (m memoryChannels) ChannelIDsByGender(_ context.Context, gender string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, ch := range m.channels {
		if ch.Gender == gender {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memorySongs struct{ *Memory }

func (m memorySongs) Save(_ context.Context, s *model.Song) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.songs[s.VideoID] = &cp
	return nil
}

func (m memorySongs) FindByVideoID(_ context.Context, videoID string) (*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.songs[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m memorySongs) ExistsByVideoID(_ context.Context, videoID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.songs[videoID]
	return ok, nil
}

func (m memorySongs) Delete(_ context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.songs, videoID)
	return nil
}

func (m memorySongs) DeleteByChannelID(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.songs {
		if s.ChannelID == channelID {
			delete(m.songs, id)
		}
	}
	return nil
}

func (m memorySongs) All(_ context.Context) ([]*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Song, 0, len(m.songs))
	for _, s := range m.songs {
		cp := *s
		out = append(out, &cp)
	}
	sortSongs(out)
	return out, nil
}

func (m memorySongs) FindByStatus(_ context.Context, status model.SongStatus) ([]*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Song
	for _, s := range m.songs {
		if s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSongs(out)
	return out, nil
}

func (m memorySongs) FindByChannelID(_ context.Context, channelID string) ([]*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Song
	for _, s := range m.songs {
		if s.ChannelID == channelID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSongs(out)
	return out, nil
}

func (m memorySongs) CountByChannelID(_ context.Context, channelID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, s := range m.songs {
		if s.ChannelID == channelID {
			n++
		}
	}
	return n, nil
}

func (m memorySongs) RandomByClassification(_ context.Context, c model.Classification, limit int) ([]*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*model.Song
	for _, s := range m.songs {
		if s.Classification == c {
			cp := *s
			matched = append(matched, &cp)
		}
	}
	rand.Shuffle(len(matched), func(i, j int) { matched[i], matched[j] = matched[j], matched[i] })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m memorySongs) RecentlyPublished(_ context.Context, since time.Time, limit int) ([]*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Song
	for _, s := range m.songs {
		if !s.PublishedAt.Before(since) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].VideoID < out[j].VideoID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memorySongs) TopDailyRisers(_ context.Context, limit int) ([]*model.Song, error) {
	return m.topRisers(limit, func(s *model.Song) int64 { return s.ViewsIncreaseDay })
}

func (m memorySongs) TopWeeklyRisers(_ context.Context, limit int) ([]*model.Song, error) {
	return m.topRisers(limit, func(s *model.Song) int64 { return s.ViewsIncreaseWeek })
}

func (m memorySongs) topRisers(limit int, delta func(*model.Song) int64) ([]*model.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Song, 0, len(m.songs))
	for _, s := range m.songs {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if delta(out[i]) != delta(out[j]) {
			return delta(out[i]) > delta(out[j])
		}
		return out[i].VideoID < out[j].VideoID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryExclusions struct{ *Memory }

func (m memoryExclusions) Add(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exclusion[channelID] = struct{}{}
	return nil
}

func (m memoryExclusions) IsExcluded(_ context.Context, channelID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.exclusion[channelID]
	return ok, nil
}

func (m memoryExclusions) All(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.exclusion))
	for id := range m.exclusion {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func sortChannels(chs []*model.Channel) {
	sort.Slice(chs, func(i, j int) bool { return chs[i].ChannelID < chs[j].ChannelID })
}

func sortSongs(songs []*model.Song) {
	sort.Slice(songs, func(i, j int) bool { return songs[i].VideoID < songs[j].VideoID })
}
