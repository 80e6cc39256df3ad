// Package rankings scrapes public VTuber ranking pages for channel IDs and
// feeds them into discovery as an extra candidate source, catching channels
// the search API never surfaces.
package rankings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0 (compatible; vtuber-catalog/1.0)"

	channelPathPrefix = "/channel/"
	channelIDPrefix   = "UC"
)

// Scraper extracts channel IDs from a fixed list of ranking page URLs.
// It implements discovery.CandidateSource.
type Scraper struct {
	urls   []string
	client *http.Client
}

// NewScraper builds a scraper over the given ranking pages.
func NewScraper(urls []string) *Scraper {
	return &Scraper{
		urls:   urls,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// Name implements discovery.CandidateSource.
func (s *Scraper) Name() string { return "rankings" }

// CandidateChannelIDs fetches every configured page and collects the
// channel IDs linked from it. Pages that fail to fetch or parse are
// skipped; an error is returned only when every page failed.
func (s *Scraper) CandidateChannelIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	failures := 0

	for _, url := range s.urls {
		pageIDs, err := s.scrapePage(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Ranking page scrape failed, skipping")
			failures++
			continue
		}
		for _, id := range pageIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if failures > 0 && failures == len(s.urls) {
		return nil, fmt.Errorf("all %d ranking pages failed", failures)
	}
	log.Debug().Int("channel_count", len(ids)).Msg("Ranking pages scraped")
	return ids, nil
}

func (s *Scraper) scrapePage(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return ExtractChannelIDs(resp.Body)
}

// ExtractChannelIDs parses an HTML document and returns the channel IDs
// found in channel links, in document order without duplicates.
func ExtractChannelIDs(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		id, ok := channelIDFromHref(href)
		if !ok {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	})
	return ids, nil
}

// channelIDFromHref pulls the channel ID out of hrefs like
// "/channel/UCxxxx", "https://youtube.com/channel/UCxxxx?sub_confirmation=1".
func channelIDFromHref(href string) (string, bool) {
	idx := strings.Index(href, channelPathPrefix)
	if idx < 0 {
		return "", false
	}
	id := href[idx+len(channelPathPrefix):]
	if cut := strings.IndexAny(id, "/?#"); cut >= 0 {
		id = id[:cut]
	}
	if !strings.HasPrefix(id, channelIDPrefix) || len(id) < len(channelIDPrefix)+10 {
		return "", false
	}
	return id, true
}
