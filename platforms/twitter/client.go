// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package twitter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/platforms"
)

const defaultBaseURL = "https://api.twitter.com"

const tweetPageSize = 100

// Client fetches activity through the Twitter v2 API.
type Client struct {
	log     *zap.Logger
	http    *platforms.Client
	baseURL string
}

// NewClient creates a Twitter provider.
func NewClient(log *zap.Logger, httpClient *platforms.Client) *Client {
	return &Client{log: log, http: httpClient, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL creates a provider against a custom endpoint.
func NewClientWithBaseURL(log *zap.Logger, httpClient *platforms.Client, baseURL string) *Client {
	return &Client{log: log, http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

type meJSON struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"data"`
}

type tweetsJSON struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			ReplyCount   int `json:"reply_count"`
			RetweetCount int `json:"retweet_count"`
			LikeCount    int `json:"like_count"`
		} `json:"public_metrics"`
		Attachments struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
		InReplyToUserID  string `json:"in_reply_to_user_id"`
		ReferencedTweets []struct {
			Type string `json:"type"`
		} `json:"referenced_tweets"`
	} `json:"data"`
}

// Fetch implements Provider.
func (client *Client) Fetch(ctx context.Context, token string) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)

	header := platforms.BearerHeader(token)

	var me meJSON
	if _, err := client.http.GetJSON(ctx, client.baseURL+"/2/users/me", header, &me); err != nil {
		return nil, err
	}
	if me.Data.ID == "" {
		return nil, Error.New("me response missing id")
	}

	var tweets tweetsJSON
	url := fmt.Sprintf("%s/2/users/%s/tweets?max_results=%d&tweet.fields=created_at,public_metrics,attachments,in_reply_to_user_id,referenced_tweets",
		client.baseURL, me.Data.ID, tweetPageSize)
	respHeader, err := client.http.GetJSON(ctx, url, header, &tweets)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Meta: Meta{
			UserID:   me.Data.ID,
			Username: me.Data.Username,
			Name:     me.Data.Name,
		},
		RateLimit: platforms.RateLimitFromHeader(respHeader),
	}

	for _, tweet := range tweets.Data {
		isRetweet := false
		for _, ref := range tweet.ReferencedTweets {
			if ref.Type == "retweeted" {
				isRetweet = true
			}
		}
		result.Tweets = append(result.Tweets, Tweet{
			ID:        tweet.ID,
			Text:      tweet.Text,
			CreatedAt: tweet.CreatedAt.UTC(),
			Replies:   tweet.PublicMetrics.ReplyCount,
			Retweets:  tweet.PublicMetrics.RetweetCount,
			Likes:     tweet.PublicMetrics.LikeCount,
			HasMedia:  len(tweet.Attachments.MediaKeys) > 0,
			IsReply:   tweet.InReplyToUserID != "",
			IsRetweet: isRetweet,
		})
	}

	return result, nil
}
