// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package reddit

import (
	"github.com/chroniclehq/chronicle/timeline"
)

// Normalize maps stored Reddit posts and comments to timeline items.
func Normalize(data StoredData) []timeline.Item {
	var items []timeline.Item

	for _, post := range data.Posts {
		content := post.Title
		if post.SelfText != "" {
			content = post.Title + "\n\n" + post.SelfText
		}
		items = append(items, timeline.Item{
			ID:        "reddit:post:" + post.ID,
			Platform:  "reddit",
			Type:      timeline.TypePost,
			Timestamp: post.CreatedAt.UTC(),
			Title:     timeline.MakeTitle(post.Title),
			URL:       post.Permalink,
			Payload: timeline.PostPayload{
				Author:    post.Author,
				Content:   content,
				Replies:   post.NumComments,
				Likes:     post.Score,
				HasMedia:  post.HasMedia,
				Subreddit: post.Subreddit,
			},
		})
	}

	for _, comment := range data.Comments {
		items = append(items, timeline.Item{
			ID:        "reddit:comment:" + comment.ID,
			Platform:  "reddit",
			Type:      timeline.TypeComment,
			Timestamp: comment.CreatedAt.UTC(),
			Title:     timeline.MakeTitle(comment.Body),
			URL:       comment.ParentURL,
			Payload: timeline.CommentPayload{
				Content:     comment.Body,
				ParentTitle: comment.ParentTitle,
				ParentURL:   comment.ParentURL,
				Subreddit:   comment.Subreddit,
				Score:       comment.Score,
				IsOP:        comment.IsOP,
			},
		})
	}

	return items
}
