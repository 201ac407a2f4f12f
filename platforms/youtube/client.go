// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package youtube

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/platforms"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

const videoPageSize = 50

// Client fetches uploads through the YouTube Data API v3.
type Client struct {
	log     *zap.Logger
	http    *platforms.Client
	baseURL string
}

// NewClient creates a YouTube provider.
func NewClient(log *zap.Logger, httpClient *platforms.Client) *Client {
	return &Client{log: log, http: httpClient, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL creates a provider against a custom endpoint.
func NewClientWithBaseURL(log *zap.Logger, httpClient *platforms.Client, baseURL string) *Client {
	return &Client{log: log, http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

type channelsJSON struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsJSON struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosJSON struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			Description  string    `json:"description"`
			ChannelTitle string    `json:"channelTitle"`
			PublishedAt  time.Time `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Fetch implements Provider.
func (client *Client) Fetch(ctx context.Context, token string) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)

	header := platforms.BearerHeader(token)

	var channels channelsJSON
	if _, err := client.http.GetJSON(ctx, client.baseURL+"/channels?part=snippet,contentDetails&mine=true", header, &channels); err != nil {
		return nil, err
	}
	if len(channels.Items) == 0 {
		return nil, Error.New("no channel for authenticated user")
	}
	channel := channels.Items[0]

	var playlist playlistItemsJSON
	playlistURL := fmt.Sprintf("%s/playlistItems?part=contentDetails&playlistId=%s&maxResults=%d",
		client.baseURL, channel.ContentDetails.RelatedPlaylists.Uploads, videoPageSize)
	if _, err := client.http.GetJSON(ctx, playlistURL, header, &playlist); err != nil {
		return nil, err
	}

	result := &Result{
		Channel:   channel.Snippet.Title,
		ChannelID: channel.ID,
	}
	if len(playlist.Items) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(playlist.Items))
	for _, item := range playlist.Items {
		ids = append(ids, item.ContentDetails.VideoID)
	}

	var videos videosJSON
	videosURL := fmt.Sprintf("%s/videos?part=snippet,contentDetails,statistics&id=%s",
		client.baseURL, strings.Join(ids, ","))
	respHeader, err := client.http.GetJSON(ctx, videosURL, header, &videos)
	if err != nil {
		return nil, err
	}
	result.RateLimit = platforms.RateLimitFromHeader(respHeader)

	for _, video := range videos.Items {
		views, _ := strconv.ParseInt(video.Statistics.ViewCount, 10, 64)
		likes, _ := strconv.ParseInt(video.Statistics.LikeCount, 10, 64)
		result.Videos = append(result.Videos, Video{
			ID:          video.ID,
			Title:       video.Snippet.Title,
			Description: video.Snippet.Description,
			Channel:     video.Snippet.ChannelTitle,
			PublishedAt: video.Snippet.PublishedAt.UTC(),
			Views:       views,
			Likes:       likes,
			Duration:    video.ContentDetails.Duration,
		})
	}

	return result, nil
}
