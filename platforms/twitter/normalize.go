// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package twitter

import (
	"github.com/chroniclehq/chronicle/timeline"
)

// Normalize maps stored tweets to timeline post items.
func Normalize(data StoredData) []timeline.Item {
	var items []timeline.Item

	for _, tweet := range data.Tweets {
		items = append(items, timeline.Item{
			ID:        "twitter:post:" + tweet.ID,
			Platform:  "twitter",
			Type:      timeline.TypePost,
			Timestamp: tweet.CreatedAt.UTC(),
			Title:     timeline.MakeTitle(tweet.Text),
			URL:       "https://twitter.com/" + data.Meta.Username + "/status/" + tweet.ID,
			Payload: timeline.PostPayload{
				Author:   data.Meta.Username,
				Content:  tweet.Text,
				Replies:  tweet.Replies,
				Reposts:  tweet.Retweets,
				Likes:    tweet.Likes,
				HasMedia: tweet.HasMedia,
				IsReply:  tweet.IsReply,
				IsRepost: tweet.IsRetweet,
			},
		})
	}

	return items
}
