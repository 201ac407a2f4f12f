// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package reddit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/platforms"
)

const defaultBaseURL = "https://oauth.reddit.com"

const listingLimit = 100

// Client fetches activity through the Reddit OAuth API. Listing envelopes
// are picked apart with gjson since the interesting fields sit several
// levels deep in data.children[].data.
type Client struct {
	log     *zap.Logger
	http    *platforms.Client
	baseURL string
}

// NewClient creates a Reddit provider.
func NewClient(log *zap.Logger, httpClient *platforms.Client) *Client {
	return &Client{log: log, http: httpClient, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL creates a provider against a custom endpoint.
func NewClientWithBaseURL(log *zap.Logger, httpClient *platforms.Client, baseURL string) *Client {
	return &Client{log: log, http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Fetch implements Provider.
func (client *Client) Fetch(ctx context.Context, token string) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)

	header := platforms.BearerHeader(token)
	header.Set("User-Agent", "chronicle/1.0")

	me, _, err := client.http.Get(ctx, client.baseURL+"/api/v1/me", header)
	if err != nil {
		return nil, err
	}
	username := gjson.GetBytes(me, "name").String()
	if username == "" {
		return nil, Error.New("me response missing name")
	}

	submitted, _, err := client.http.Get(ctx,
		fmt.Sprintf("%s/user/%s/submitted?limit=%d", client.baseURL, username, listingLimit), header)
	if err != nil {
		return nil, err
	}

	comments, respHeader, err := client.http.Get(ctx,
		fmt.Sprintf("%s/user/%s/comments?limit=%d", client.baseURL, username, listingLimit), header)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Meta:      Meta{Username: username},
		RateLimit: platforms.RateLimitFromHeader(respHeader),
	}

	subreddits := map[string]bool{}

	gjson.GetBytes(submitted, "data.children").ForEach(func(_, child gjson.Result) bool {
		data := child.Get("data")
		post := Post{
			ID:          data.Get("id").String(),
			Author:      data.Get("author").String(),
			Title:       data.Get("title").String(),
			SelfText:    data.Get("selftext").String(),
			Subreddit:   data.Get("subreddit").String(),
			Score:       int(data.Get("score").Int()),
			NumComments: int(data.Get("num_comments").Int()),
			CreatedAt:   time.Unix(int64(data.Get("created_utc").Float()), 0).UTC(),
			Permalink:   "https://www.reddit.com" + data.Get("permalink").String(),
			HasMedia:    data.Get("is_video").Bool() || data.Get("post_hint").String() == "image",
		}
		result.Posts = append(result.Posts, post)
		subreddits[post.Subreddit] = true
		return true
	})

	gjson.GetBytes(comments, "data.children").ForEach(func(_, child gjson.Result) bool {
		data := child.Get("data")
		comment := Comment{
			ID:          data.Get("id").String(),
			Body:        data.Get("body").String(),
			ParentTitle: data.Get("link_title").String(),
			ParentURL:   data.Get("link_url").String(),
			Subreddit:   data.Get("subreddit").String(),
			Score:       int(data.Get("score").Int()),
			IsOP:        data.Get("is_submitter").Bool(),
			CreatedAt:   time.Unix(int64(data.Get("created_utc").Float()), 0).UTC(),
		}
		result.Comments = append(result.Comments, comment)
		subreddits[comment.Subreddit] = true
		return true
	})

	for subreddit := range subreddits {
		if subreddit != "" {
			result.Meta.Subreddits = append(result.Meta.Subreddits, subreddit)
		}
	}
	sort.Strings(result.Meta.Subreddits)

	return result, nil
}
