// Package classify implements the deterministic heuristics that decide
// whether a discovered channel belongs in the catalog and how a video is
// bucketed. The classifiers hold no persistence state; the channel ladder's
// only collaborator is a lister for the recent-uploads content check.
package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vsonglab/vtuber-catalog/client"
)

var koreanScript = regexp.MustCompile(`[ㄱ-ㅎㅏ-ㅣ가-힣]`)

// recentUploadsForPattern is how many of a channel's latest videos the
// content-pattern check inspects.
const recentUploadsForPattern = 10

// minContentPatternMatches is the hit count at which recent upload titles
// count as a positive signal.
const minContentPatternMatches = 3

// Decision is the structured outcome of the channel ladder. Rule names the
// predicate that decided; Reason is empty on acceptance.
type Decision struct {
	Accepted bool
	Rule     string
	Reason   string
}

// RecentUploadsLister is the single upstream dependency of the ladder. It
// may be nil, in which case the content-pattern rule contributes nothing.
type RecentUploadsLister interface {
	RecentVideoTitles(ctx context.Context, channelID string, limit int64) ([]string, error)
}

// ChannelClassifier evaluates an ordered list of named rules, first match
// wins. The ordering is load-bearing: a priority-keyword match must win
// over an exclusion-keyword match on the same input, and the
// content-pattern check runs last because it costs an upstream call.
type ChannelClassifier struct {
	uploads RecentUploadsLister
	rules   []namedRule
}

type namedRule struct {
	name string
	eval func(ctx context.Context, ch *client.ChannelDetail) *Decision
}

// NewChannelClassifier builds the rule ladder. uploads may be nil.
func NewChannelClassifier(uploads RecentUploadsLister) *ChannelClassifier {
	c := &ChannelClassifier{uploads: uploads}
	c.rules = []namedRule{
		{name: "min-subscribers", eval: c.minSubscribersRule},
		{name: "priority-keyword", eval: c.priorityKeywordRule},
		{name: "exclusion-keyword", eval: c.exclusionKeywordRule},
		{name: "korean-script", eval: c.koreanScriptRule},
		{name: "positive-signal", eval: c.positiveSignalRule},
	}
	return c
}

// Classify runs the ladder over channel metadata. Same input always yields
// the same decision.
func (c *ChannelClassifier) Classify(ctx context.Context, ch *client.ChannelDetail) Decision {
	for _, rule := range c.rules {
		if d := rule.eval(ctx, ch); d != nil {
			d.Rule = rule.name
			if d.Accepted {
				log.Info().
					Str("channel_id", ch.ID).
					Str("title", ch.Title).
					Str("rule", d.Rule).
					Msg("Channel accepted")
			} else {
				log.Info().
					Str("channel_id", ch.ID).
					Str("title", ch.Title).
					Str("rule", d.Rule).
					Str("reason", d.Reason).
					Msg("Channel rejected")
			}
			return *d
		}
	}

	d := Decision{Accepted: false, Rule: "no-positive-signal", Reason: "no positive signal found"}
	log.Info().
		Str("channel_id", ch.ID).
		Str("title", ch.Title).
		Str("reason", d.Reason).
		Msg("Channel rejected")
	return d
}

func (c *ChannelClassifier) minSubscribersRule(_ context.Context, ch *client.ChannelDetail) *Decision {
	if ch.Subscribers < MinSubscribers {
		return &Decision{Accepted: false, Reason: fmt.Sprintf("subscriber count below minimum (%d)", ch.Subscribers)}
	}
	return nil
}

func (c *ChannelClassifier) priorityKeywordRule(_ context.Context, ch *client.ChannelDetail) *Decision {
	for _, keyword := range priorityKeywords {
		if strings.Contains(ch.Title, keyword) || strings.Contains(ch.Description, keyword) {
			return &Decision{Accepted: true}
		}
	}
	return nil
}

func (c *ChannelClassifier) exclusionKeywordRule(_ context.Context, ch *client.ChannelDetail) *Decision {
	if keyword, ok := firstContained(ch.Title, excludeTitleKeywords); ok {
		return &Decision{Accepted: false, Reason: "exclusion keyword in title: " + keyword}
	}
	if keyword, ok := firstContained(ch.Description, excludeDescriptionKeywords); ok {
		return &Decision{Accepted: false, Reason: "exclusion keyword in description: " + keyword}
	}
	return nil
}

func (c *ChannelClassifier) koreanScriptRule(_ context.Context, ch *client.ChannelDetail) *Decision {
	if !koreanScript.MatchString(ch.Title) && !koreanScript.MatchString(ch.Description) {
		return &Decision{Accepted: false, Reason: "no Korean text in title or description"}
	}
	return nil
}

// positiveSignalRule accepts on the first of the positive signals, cheapest
// first. Falls through to the final rejection when none match.
func (c *ChannelClassifier) positiveSignalRule(ctx context.Context, ch *client.ChannelDetail) *Decision {
	if containsAny(ch.Title, vtuberKeywords) || containsAny(ch.Description, vtuberKeywords) {
		return &Decision{Accepted: true}
	}
	if containsAnyFold(ch.Title, avatarKeywords) || containsAnyFold(ch.Description, avatarKeywords) {
		return &Decision{Accepted: true}
	}
	if containsAnyFold(ch.Title, activityKeywords) || containsAnyFold(ch.Description, activityKeywords) {
		return &Decision{Accepted: true}
	}
	if containsAnyFold(ch.Description, vtuberCompanies) {
		return &Decision{Accepted: true}
	}
	if c.hasContentPattern(ctx, ch.ID) {
		return &Decision{Accepted: true}
	}
	return nil
}

// hasContentPattern checks the channel's recent upload titles against the
// activity-pattern list. This is the most expensive, least reliable signal;
// a lookup failure contributes false rather than failing classification.
func (c *ChannelClassifier) hasContentPattern(ctx context.Context, channelID string) bool {
	if c.uploads == nil {
		return false
	}

	titles, err := c.uploads.RecentVideoTitles(ctx, channelID, recentUploadsForPattern)
	if err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("Content pattern analysis failed")
		return false
	}

	matches := 0
	for _, title := range titles {
		lower := strings.ToLower(title)
		for _, pattern := range contentPatterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				matches++
			}
		}
	}
	return matches >= minContentPatternMatches
}

func firstContained(s string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return keyword, true
		}
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, keyword := range keywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
