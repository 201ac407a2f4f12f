// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package devpad

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chroniclehq/chronicle/platforms"
)

const defaultBaseURL = "https://api.devpad.tools"

// Client fetches task activity through the Devpad API.
type Client struct {
	log     *zap.Logger
	http    *platforms.Client
	baseURL string
}

// NewClient creates a Devpad provider.
func NewClient(log *zap.Logger, httpClient *platforms.Client) *Client {
	return &Client{log: log, http: httpClient, baseURL: defaultBaseURL}
}

// NewClientWithBaseURL creates a provider against a custom endpoint.
func NewClientWithBaseURL(log *zap.Logger, httpClient *platforms.Client, baseURL string) *Client {
	return &Client{log: log, http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

type userJSON struct {
	Username string `json:"username"`
}

type tasksJSON struct {
	Tasks []struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Project     struct {
			Name string `json:"name"`
		} `json:"project"`
		Status    string    `json:"status"`
		Priority  string    `json:"priority"`
		URL       string    `json:"url"`
		UpdatedAt time.Time `json:"updated_at"`
	} `json:"tasks"`
}

// Fetch implements Provider.
func (client *Client) Fetch(ctx context.Context, token string) (_ *Result, err error) {
	defer mon.Task()(&ctx)(&err)

	header := platforms.BearerHeader(token)

	var user userJSON
	if _, err := client.http.GetJSON(ctx, client.baseURL+"/v1/user", header, &user); err != nil {
		return nil, err
	}
	if user.Username == "" {
		return nil, Error.New("user response missing username")
	}

	var tasks tasksJSON
	respHeader, err := client.http.GetJSON(ctx, client.baseURL+"/v1/tasks?sort=updated&order=desc", header, &tasks)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Username:  user.Username,
		RateLimit: platforms.RateLimitFromHeader(respHeader),
	}

	for _, task := range tasks.Tasks {
		result.Tasks = append(result.Tasks, Task{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Project:     task.Project.Name,
			Status:      task.Status,
			Priority:    task.Priority,
			URL:         task.URL,
			UpdatedAt:   task.UpdatedAt.UTC(),
		})
	}

	return result, nil
}
