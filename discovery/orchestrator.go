// Package discovery finds new catalog channels. A cycle fans search queries
// and external candidate sources into a deduplicated candidate set, filters
// out known and excluded channels, classifies the rest in parallel batches
// and persists the accepted ones.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vsonglab/vtuber-catalog/classify"
	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/model"
	"github.com/vsonglab/vtuber-catalog/store"
)

const (
	// DefaultMaxPagesPerQuery bounds how deep a single search query pages.
	DefaultMaxPagesPerQuery = 3

	// DefaultWorkers is the classification batch concurrency.
	DefaultWorkers = 5

	// detailBatchSize matches the bulk-lookup limit of the upstream API.
	detailBatchSize = 50
)

// CandidateSource supplies channel IDs from outside the search API, such as
// a rankings page scraper. Source failures skip the source, not the cycle.
type CandidateSource interface {
	Name() string
	CandidateChannelIDs(ctx context.Context) ([]string, error)
}

// Orchestrator drives one discovery cycle at a time.
type Orchestrator struct {
	api        client.API
	channels   store.ChannelStore
	exclusions store.ExclusionStore
	classifier *classify.ChannelClassifier
	cache      *ProcessedCache
	sources    []CandidateSource

	queries  []string
	maxPages int
	workers  int
	now      func() time.Time
}

// Options tunes an Orchestrator; zero values fall back to defaults.
type Options struct {
	Queries  []string
	MaxPages int
	Workers  int
	Sources  []CandidateSource
	CacheTTL time.Duration
}

// NewOrchestrator wires a discovery pipeline.
func NewOrchestrator(api client.API, channels store.ChannelStore, exclusions store.ExclusionStore, opts Options) *Orchestrator {
	queries := opts.Queries
	if len(queries) == 0 {
		queries = classify.DefaultQueries
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPagesPerQuery
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		api:        api,
		channels:   channels,
		exclusions: exclusions,
		classifier: classify.NewChannelClassifier(api),
		cache:      NewProcessedCache(opts.CacheTTL),
		sources:    opts.Sources,
		queries:    queries,
		maxPages:   maxPages,
		workers:    workers,
		now:        time.Now,
	}
}

// Stats summarizes one discovery cycle.
type Stats struct {
	Candidates int
	Classified int
	Accepted   int
}

// Run executes one discovery cycle. Quota exhaustion aborts the cycle and
// is returned as client.ErrQuotaExhausted; per-query transient failures
// skip the query.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	candidates, err := o.collectCandidates(ctx)
	if err != nil {
		return stats, err
	}
	stats.Candidates = len(candidates)

	fresh, err := o.filterKnown(ctx, candidates)
	if err != nil {
		return stats, err
	}
	log.Info().
		Int("candidates", len(candidates)).
		Int("to_classify", len(fresh)).
		Msg("Discovery candidate set collected")

	accepted, classified, err := o.classifyBatches(ctx, fresh)
	stats.Classified = classified
	stats.Accepted = accepted
	if err != nil {
		return stats, err
	}

	if err := o.repairMissingImages(ctx); err != nil {
		if errors.Is(err, client.ErrQuotaExhausted) {
			return stats, err
		}
		log.Warn().Err(err).Msg("Missing image repair failed, continuing")
	}

	log.Info().
		Int("candidates", stats.Candidates).
		Int("classified", stats.Classified).
		Int("accepted", stats.Accepted).
		Msg("Discovery cycle complete")
	return stats, nil
}

// collectCandidates merges search results across all queries and the
// external candidate sources into a deduplicated ID list.
func (o *Orchestrator) collectCandidates(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ordered []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	for _, query := range o.queries {
		pageToken := ""
		for page := 0; page < o.maxPages; page++ {
			ids, next, err := o.api.SearchChannelIDs(ctx, query, pageToken)
			if err != nil {
				if errors.Is(err, client.ErrQuotaExhausted) {
					return nil, err
				}
				log.Warn().Err(err).Str("query", query).Msg("Search query failed, skipping")
				break
			}
			for _, id := range ids {
				add(id)
			}
			if next == "" {
				break
			}
			pageToken = next
		}
	}

	for _, source := range o.sources {
		ids, err := source.CandidateChannelIDs(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", source.Name()).Msg("Candidate source failed, skipping")
			continue
		}
		for _, id := range ids {
			add(id)
		}
	}
	return ordered, nil
}

// filterKnown drops candidates already cataloged, excluded, or classified
// within the cache TTL.
func (o *Orchestrator) filterKnown(ctx context.Context, candidates []string) ([]string, error) {
	var fresh []string
	for _, id := range candidates {
		if o.cache.Seen(id) {
			continue
		}
		excluded, err := o.exclusions.IsExcluded(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("exclusion check for %s failed: %w", id, err)
		}
		if excluded {
			continue
		}
		exists, err := o.channels.ExistsByChannelID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("catalog check for %s failed: %w", id, err)
		}
		if exists {
			continue
		}
		fresh = append(fresh, id)
	}
	return fresh, nil
}

// classifyBatches fetches candidate metadata in bulk batches and classifies
// each channel, persisting the accepted ones. Batches run concurrently
// under a worker limit; the first quota or store error cancels the rest.
func (o *Orchestrator) classifyBatches(ctx context.Context, ids []string) (accepted, classified int, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	results := make(chan Stats, (len(ids)/detailBatchSize)+1)
	for start := 0; start < len(ids); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		g.Go(func() error {
			stats, err := o.classifyBatch(gctx, batch)
			if err != nil {
				return err
			}
			results <- stats
			return nil
		})
	}

	err = g.Wait()
	close(results)
	for stats := range results {
		accepted += stats.Accepted
		classified += stats.Classified
	}
	return accepted, classified, err
}

func (o *Orchestrator) classifyBatch(ctx context.Context, ids []string) (Stats, error) {
	var stats Stats

	details, err := o.api.ChannelsByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, client.ErrQuotaExhausted) {
			return stats, err
		}
		log.Warn().Err(err).Int("batch_size", len(ids)).Msg("Channel batch fetch failed, skipping batch")
		return stats, nil
	}

	for _, detail := range details {
		decision := o.classifier.Classify(ctx, detail)
		o.cache.Mark(detail.ID)
		stats.Classified++
		if !decision.Accepted {
			continue
		}

		ch := &model.Channel{
			ChannelID:   detail.ID,
			Name:        detail.Title,
			Description: model.TruncateDescription(detail.Description),
			Subscribers: detail.Subscribers,
			ChannelImg:  detail.ThumbnailURL,
			Status:      model.ChannelStatusNew,
			AddedAt:     o.now(),
		}
		if err := o.channels.Save(ctx, ch); err != nil {
			return stats, fmt.Errorf("failed to save discovered channel %s: %w", detail.ID, err)
		}
		stats.Accepted++
	}
	return stats, nil
}

// repairMissingImages backfills thumbnail URLs for channels saved without
// one, e.g. candidates that arrived through a non-API source.
func (o *Orchestrator) repairMissingImages(ctx context.Context) error {
	missing, err := o.channels.FindMissingImage(ctx)
	if err != nil {
		return fmt.Errorf("missing image lookup failed: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	byID := make(map[string]*model.Channel, len(missing))
	ids := make([]string, 0, len(missing))
	for _, ch := range missing {
		byID[ch.ChannelID] = ch
		ids = append(ids, ch.ChannelID)
	}

	repaired := 0
	for start := 0; start < len(ids); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		details, err := o.api.ChannelsByIDs(ctx, ids[start:end])
		if err != nil {
			return err
		}
		for _, detail := range details {
			ch, ok := byID[detail.ID]
			if !ok || detail.ThumbnailURL == "" {
				continue
			}
			ch.ChannelImg = detail.ThumbnailURL
			if err := o.channels.Save(ctx, ch); err != nil {
				return fmt.Errorf("failed to save repaired channel %s: %w", ch.ChannelID, err)
			}
			repaired++
		}
	}
	if repaired > 0 {
		log.Info().Int("repaired", repaired).Msg("Backfilled missing channel images")
	}
	return nil
}
