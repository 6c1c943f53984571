package twitter

import (
	"sort"

	"github.com/pagepeek/pagepeek-go/internal/types"
)

// variant is one downloadable rendition of a video.
type variant struct {
	url       string
	bitrate   int
	thumbnail string
	kind      types.MediaKind
}

// dedupeVariants drops repeated URLs, keeping the first occurrence. The
// syndication envelope repeats the same variant list in several shapes.
func dedupeVariants(variants []variant) []variant {
	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if v.url == "" || seen[v.url] {
			continue
		}
		seen[v.url] = true
		out = append(out, v)
	}
	return out
}

// labelVariants sorts variants by bitrate descending and assigns quality
// buckets. The top variant is always "high"; "medium" exists only when three
// or more variants are present; everything after the second is "low".
func labelVariants(variants []variant) []types.MediaItem {
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].bitrate > variants[j].bitrate
	})

	items := make([]types.MediaItem, 0, len(variants))
	for i, v := range variants {
		items = append(items, types.MediaItem{
			Kind:      v.kind,
			URL:       v.url,
			Thumbnail: v.thumbnail,
			Quality:   qualityLabel(i, len(variants)),
			Bitrate:   v.bitrate,
		})
	}
	return items
}

func qualityLabel(index, total int) string {
	switch {
	case index == 0:
		return "high"
	case index == 1 && total > 2:
		return "medium"
	default:
		return "low"
	}
}

// BestVideoURL picks the URL of the preferred-quality video from the media
// list. An exact quality label match wins; otherwise the highest-bitrate
// video is returned. Empty string when the list has no videos.
func BestVideoURL(media []types.MediaItem, preferred string) string {
	var best *types.MediaItem
	for i := range media {
		m := &media[i]
		if m.Kind != types.MediaVideo && m.Kind != types.MediaGIF {
			continue
		}
		if preferred != "" && m.Quality == preferred {
			return m.URL
		}
		if best == nil || m.Bitrate > best.Bitrate {
			best = m
		}
	}
	if best == nil {
		return ""
	}
	return best.URL
}
