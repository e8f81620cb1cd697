package fallback

import (
	"context"

	"github.com/ppalone/ytsearch"
)

// ytSearchIndex backs SearchIndex with the public YouTube search index
type ytSearchIndex struct{}

// NewYTSearchIndex returns the production search index
func NewYTSearchIndex() SearchIndex {
	return &ytSearchIndex{}
}

func (y *ytSearchIndex) Search(ctx context.Context, query string) ([]VideoInfo, error) {
	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	hits := make([]VideoInfo, 0, len(res.Results))
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		hits = append(hits, VideoInfo{
			ID:       r.VideoID,
			Title:    r.Title,
			Channel:  r.Channel,
			Duration: r.Duration,
		})
	}
	return hits, nil
}
