// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package bluesky

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/platforms"
)

const defaultBaseURL = "https://bsky.social"

const feedPageSize = 100

// Client fetches activity through the Bluesky XRPC API.
type Client struct {
	log     *zap.Logger
	http    *platforms.Client
	baseURL string
}

// NewClient creates a Bluesky provider.
func NewClient(log *zap.Logger, httpClient *platforms.Client) *Client {
	return &Client{log: log, http: httpClient, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL creates a provider against a custom endpoint.
func NewClientWithBaseURL(log *zap.Logger, httpClient *platforms.Client, baseURL string) *Client {
	return &Client{log: log, http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

type sessionJSON struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

type feedJSON struct {
	Feed []struct {
		Post struct {
			URI    string `json:"uri"`
			CID    string `json:"cid"`
			Author struct {
				Handle string `json:"handle"`
			} `json:"author"`
			Record struct {
				Text      string    `json:"text"`
				CreatedAt time.Time `json:"createdAt"`
				Reply     *struct{} `json:"reply"`
				Embed     *struct {
					Type string `json:"$type"`
				} `json:"embed"`
			} `json:"record"`
			ReplyCount  int `json:"replyCount"`
			RepostCount int `json:"repostCount"`
			LikeCount   int `json:"likeCount"`
		} `json:"post"`
		Reason *struct {
			Type string `json:"$type"`
		} `json:"reason"`
	} `json:"feed"`
}

// Fetch implements Provider.
func (client *Client) Fetch(ctx context.Context, token string) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)

	header := platforms.BearerHeader(token)

	var session sessionJSON
	if _, err := client.http.GetJSON(ctx, client.baseURL+"/xrpc/com.atproto.server.getSession", header, &session); err != nil {
		return nil, err
	}
	if session.DID == "" {
		return nil, Error.New("session response missing did")
	}

	var feed feedJSON
	feedURL := fmt.Sprintf("%s/xrpc/app.bsky.feed.getAuthorFeed?actor=%s&limit=%d",
		client.baseURL, url.QueryEscape(session.DID), feedPageSize)
	respHeader, err := client.http.GetJSON(ctx, feedURL, header, &feed)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Handle:    session.Handle,
		RateLimit: platforms.RateLimitFromHeader(respHeader),
	}

	for _, entry := range feed.Feed {
		post := entry.Post
		result.Posts = append(result.Posts, Post{
			URI:       post.URI,
			CID:       post.CID,
			Author:    post.Author.Handle,
			Text:      post.Record.Text,
			CreatedAt: post.Record.CreatedAt.UTC(),
			Replies:   post.ReplyCount,
			Reposts:   post.RepostCount,
			Likes:     post.LikeCount,
			HasMedia:  post.Record.Embed != nil,
			IsReply:   post.Record.Reply != nil,
			IsRepost:  entry.Reason != nil,
		})
	}

	return result, nil
}
