package instagram

import (
	"github.com/pagepeek/pagepeek-go/internal/types"
)

// mediaNode is one node of the embedded post JSON. A sidecar node carries its
// items in child edges; leaf nodes carry the media URLs directly.
type mediaNode struct {
	Typename   string `json:"__typename"`
	DisplayURL string `json:"display_url"`
	VideoURL   string `json:"video_url"`
	IsVideo    bool   `json:"is_video"`

	EdgeSidecarToChildren struct {
		Edges []struct {
			Node mediaNode `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`

	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
}

// maxFlattenNodes bounds traversal of untrusted nested JSON.
const maxFlattenNodes = 64

// flatten walks the node tree with an explicit worklist and returns media
// items in carousel order. Sidecar children replace their parent; a sidecar
// with no children degrades to its own display URL.
func flatten(root *mediaNode) []types.MediaItem {
	var items []types.MediaItem
	seen := make(map[string]bool)

	work := []*mediaNode{root}
	visited := 0
	for len(work) > 0 && visited < maxFlattenNodes {
		node := work[0]
		work = work[1:]
		visited++

		if edges := node.EdgeSidecarToChildren.Edges; len(edges) > 0 {
			for i := range edges {
				work = append(work, &edges[i].Node)
			}
			continue
		}

		item, ok := leafItem(node)
		if !ok || seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		items = append(items, item)
	}
	return items
}

func leafItem(node *mediaNode) (types.MediaItem, bool) {
	if node.IsVideo || node.VideoURL != "" || isVideoTypename(node.Typename) {
		if node.VideoURL == "" {
			// Video without a recoverable file URL: keep the thumbnail.
			if node.DisplayURL == "" {
				return types.MediaItem{}, false
			}
			return types.MediaItem{
				Kind:      types.MediaImage,
				URL:       node.DisplayURL,
				Thumbnail: node.DisplayURL,
			}, true
		}
		return types.MediaItem{
			Kind:      types.MediaVideo,
			URL:       node.VideoURL,
			Thumbnail: node.DisplayURL,
		}, true
	}

	if node.DisplayURL == "" {
		return types.MediaItem{}, false
	}
	return types.MediaItem{Kind: types.MediaImage, URL: node.DisplayURL}, true
}

func isVideoTypename(typename string) bool {
	switch typename {
	case "GraphVideo", "XDTGraphVideo":
		return true
	}
	return false
}

// caption returns the first caption text on the node, if any.
func (n *mediaNode) caption() string {
	if edges := n.EdgeMediaToCaption.Edges; len(edges) > 0 {
		return edges[0].Node.Text
	}
	return ""
}
