// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package youtube

import (
	"github.com/chroniclehq/chronicle/timeline"
)

// Normalize maps stored uploads to timeline video items.
func Normalize(data Result) []timeline.Item {
	var items []timeline.Item

	for _, video := range data.Videos {
		items = append(items, timeline.Item{
			ID:        "youtube:video:" + video.ID,
			Platform:  "youtube",
			Type:      timeline.TypeVideo,
			Timestamp: video.PublishedAt.UTC(),
			Title:     timeline.MakeTitle(video.Title),
			URL:       "https://www.youtube.com/watch?v=" + video.ID,
			Payload: timeline.VideoPayload{
				VideoID:     video.ID,
				Channel:     video.Channel,
				Description: video.Description,
				Views:       video.Views,
				Likes:       video.Likes,
				Duration:    video.Duration,
			},
		})
	}

	return items
}
