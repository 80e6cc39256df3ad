package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/model"
)

// MusicCategoryID is YouTube's category for music content.
const MusicCategoryID = "10"

// maxVideoDuration is the cutoff above which a video is assumed to be a
// stream archive or compilation rather than a song.
const maxVideoDuration = 8 * time.Minute

// shortDuration is the cutoff at or below which a video counts as a short.
const shortDuration = time.Minute

// shortTitleMarker flags shorts regardless of duration.
const shortTitleMarker = "short"

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration as returned by the video
// API (e.g. "PT4M13S", "P1DT2H") into a time.Duration. Year, month and week
// designators are not supported; the API never emits them for videos.
func ParseISODuration(s string) (time.Duration, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "") {
		return 0, fmt.Errorf("malformed ISO-8601 duration: %q", s)
	}

	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("malformed ISO-8601 duration: %q", s)
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}

// ClassifyMedia buckets a video into videos, shorts or ignore. Shorts are
// kept only when the video carries the music category; everything longer
// than the cutoff is ignored as non-song content.
func ClassifyMedia(v *client.VideoDetail) model.Classification {
	d, err := ParseISODuration(v.Duration)
	if err != nil {
		log.Warn().Err(err).Str("video_id", v.ID).Msg("Unparseable video duration, ignoring video")
		return model.ClassificationIgnore
	}

	if d > maxVideoDuration {
		return model.ClassificationIgnore
	}

	if d <= shortDuration || strings.Contains(strings.ToLower(v.Title), shortTitleMarker) {
		if v.CategoryID != MusicCategoryID {
			return model.ClassificationIgnore
		}
		return model.ClassificationShorts
	}

	return model.ClassificationVideos
}

// IsSongRelated reports whether a video looks like song content: a song
// keyword in the title, the music category, or production vocabulary in
// the description.
func IsSongRelated(v *client.VideoDetail) bool {
	if containsAnyFold(v.Title, songTitleKeywords) {
		return true
	}
	if v.CategoryID == MusicCategoryID {
		return true
	}
	return containsAnyFold(v.Description, songDescriptionKeywords)
}
