// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package bluesky

import (
	"strings"

	"github.com/chroniclehq/chronicle/timeline"
)

// Normalize maps a stored Bluesky feed to timeline post items.
func Normalize(data Result) []timeline.Item {
	var items []timeline.Item

	for _, post := range data.Posts {
		items = append(items, timeline.Item{
			ID:        "bluesky:post:" + post.URI,
			Platform:  "bluesky",
			Type:      timeline.TypePost,
			Timestamp: post.CreatedAt.UTC(),
			Title:     timeline.MakeTitle(post.Text),
			URL:       postURL(post),
			Payload: timeline.PostPayload{
				Author:   post.Author,
				Content:  post.Text,
				Replies:  post.Replies,
				Reposts:  post.Reposts,
				Likes:    post.Likes,
				HasMedia: post.HasMedia,
				IsReply:  post.IsReply,
				IsRepost: post.IsRepost,
			},
		})
	}

	return items
}

// postURL converts an at:// uri into a public web permalink.
func postURL(post Post) string {
	// at://did:plc:xyz/app.bsky.feed.post/rkey
	trimmed := strings.TrimPrefix(post.URI, "at://")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 3 {
		return post.URI
	}
	author := post.Author
	if author == "" {
		author = parts[0]
	}
	return "https://bsky.app/profile/" + author + "/post/" + parts[2]
}
