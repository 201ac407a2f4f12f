// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

// Package timeline defines the normalized activity model and the pure
// operations that shape per-user timelines: commit grouping, combined
// sorting and date bucketing.
package timeline

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/zeebo/errs"
)

// Error is the default timeline error class.
var Error = errs.Class("timeline")

// Type discriminates the payload union of an Item.
type Type string

// Item types.
const (
	TypeCommit      Type = "commit"
	TypePullRequest Type = "pull_request"
	TypePost        Type = "post"
	TypeComment     Type = "comment"
	TypeVideo       Type = "video"
	TypeTask        Type = "task"
)

// TitleLimit is the maximum length of a derived title in runes.
const TitleLimit = 72

// Item is the normalized unit of activity across all platforms.
//
// ID is a stable string built from platform:type:natural-key. Payload is a
// tagged union whose concrete type matches Type.
type Item struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Payload   any       `json:"payload"`
}

// CommitPayload is the payload of a commit item.
type CommitPayload struct {
	SHA          string `json:"sha"`
	Message      string `json:"message"`
	Repo         string `json:"repo"`
	Branch       string `json:"branch"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	FilesChanged int    `json:"files_changed"`
}

// PullRequestPayload is the payload of a pull request item.
type PullRequestPayload struct {
	Repo           string   `json:"repo"`
	Number         int      `json:"number"`
	Title          string   `json:"title"`
	State          string   `json:"state"`
	HeadRef        string   `json:"head_ref"`
	BaseRef        string   `json:"base_ref"`
	Additions      int      `json:"additions"`
	Deletions      int      `json:"deletions"`
	ChangedFiles   int      `json:"changed_files"`
	CommitSHAs     []string `json:"commit_shas,omitempty"`
	MergeCommitSHA string   `json:"merge_commit_sha,omitempty"`
}

// PostPayload is the payload of a post item (Bluesky, Twitter, Reddit).
type PostPayload struct {
	Author    string `json:"author"`
	Content   string `json:"content"`
	Replies   int    `json:"replies"`
	Reposts   int    `json:"reposts"`
	Likes     int    `json:"likes"`
	HasMedia  bool   `json:"has_media"`
	IsReply   bool   `json:"is_reply"`
	IsRepost  bool   `json:"is_repost"`
	Subreddit string `json:"subreddit,omitempty"`
}

// CommentPayload is the payload of a Reddit comment item.
type CommentPayload struct {
	Content     string `json:"content"`
	ParentTitle string `json:"parent_title"`
	ParentURL   string `json:"parent_url"`
	Subreddit   string `json:"subreddit"`
	Score       int    `json:"score"`
	IsOP        bool   `json:"is_op"`
}

// VideoPayload is the payload of a YouTube video item.
type VideoPayload struct {
	VideoID     string `json:"video_id"`
	Channel     string `json:"channel"`
	Description string `json:"description"`
	Views       int64  `json:"views"`
	Likes       int64  `json:"likes"`
	Duration    string `json:"duration,omitempty"`
}

// TaskPayload is the payload of a Devpad task item.
type TaskPayload struct {
	Project     string `json:"project"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Commit returns the commit payload when the item is a commit.
func (item Item) Commit() (CommitPayload, bool) {
	payload, ok := item.Payload.(CommitPayload)
	return payload, ok && item.Type == TypeCommit
}

// PullRequest returns the pull request payload when the item is one.
func (item Item) PullRequest() (PullRequestPayload, bool) {
	payload, ok := item.Payload.(PullRequestPayload)
	return payload, ok && item.Type == TypePullRequest
}

// Post returns the post payload when the item is a post.
func (item Item) Post() (PostPayload, bool) {
	payload, ok := item.Payload.(PostPayload)
	return payload, ok && item.Type == TypePost
}

// Comment returns the comment payload when the item is a comment.
func (item Item) Comment() (CommentPayload, bool) {
	payload, ok := item.Payload.(CommentPayload)
	return payload, ok && item.Type == TypeComment
}

// Repo returns the repository of commit and pull request items.
func (item Item) Repo() string {
	switch payload := item.Payload.(type) {
	case CommitPayload:
		return payload.Repo
	case PullRequestPayload:
		return payload.Repo
	}
	return ""
}

// Subreddit returns the subreddit of Reddit posts and comments.
func (item Item) Subreddit() string {
	switch payload := item.Payload.(type) {
	case PostPayload:
		return payload.Subreddit
	case CommentPayload:
		return payload.Subreddit
	}
	return ""
}

// Content returns the primary text of the item for keyword matching.
// Items without a content field fall back to the title.
func (item Item) Content() string {
	switch payload := item.Payload.(type) {
	case PostPayload:
		return payload.Content
	case CommentPayload:
		return payload.Content
	case CommitPayload:
		return payload.Message
	case VideoPayload:
		return payload.Description
	}
	return item.Title
}

// Day returns the UTC calendar day of the item as YYYY-MM-DD.
func (item Item) Day() string {
	return item.Timestamp.UTC().Format("2006-01-02")
}

// itemJSON mirrors Item with a raw payload for two-phase decoding.
type itemJSON struct {
	ID        string          `json:"id"`
	Platform  string          `json:"platform"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Title     string          `json:"title"`
	URL       string          `json:"url"`
	Payload   json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the payload union into the concrete type selected
// by the item type discriminator.
func (item *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Error.Wrap(err)
	}

	item.ID = raw.ID
	item.Platform = raw.Platform
	item.Type = raw.Type
	item.Timestamp = raw.Timestamp.UTC()
	item.Title = raw.Title
	item.URL = raw.URL
	item.Payload = nil

	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}

	decode := func(target any) error {
		return Error.Wrap(json.Unmarshal(raw.Payload, target))
	}

	switch raw.Type {
	case TypeCommit:
		var payload CommitPayload
		if err := decode(&payload); err != nil {
			return err
		}
		item.Payload = payload
	case TypePullRequest:
		var payload PullRequestPayload
		if err := decode(&payload); err != nil {
			return err
		}
		item.Payload = payload
	case TypePost:
		var payload PostPayload
		if err := decode(&payload); err != nil {
			return err
		}
		item.Payload = payload
	case TypeComment:
		var payload CommentPayload
		if err := decode(&payload); err != nil {
			return err
		}
		item.Payload = payload
	case TypeVideo:
		var payload VideoPayload
		if err := decode(&payload); err != nil {
			return err
		}
		item.Payload = payload
	case TypeTask:
		var payload TaskPayload
		if err := decode(&payload); err != nil {
			return err
		}
		item.Payload = payload
	default:
		return Error.New("unknown item type %q", raw.Type)
	}
	return nil
}

// MakeTitle derives a single-line title from source text: the first line
// with whitespace runs collapsed, truncated to TitleLimit runes with an
// ellipsis.
func MakeTitle(text string) string {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.Join(strings.Fields(line), " ")

	runes := []rune(line)
	if len(runes) > TitleLimit {
		return string(runes[:TitleLimit-3]) + "..."
	}
	return line
}
