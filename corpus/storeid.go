// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package corpus

import "strings"

// Kind enumerates the shapes of the store id grammar.
type Kind int

const (
	// KindInvalid is the zero value.
	KindInvalid Kind = iota
	// KindRaw is raw/<platform>/<account>, the legacy unified raw store.
	KindRaw
	// KindTimeline is timeline/<user>.
	KindTimeline
	// KindGitHubMeta is github/<account>/meta.
	KindGitHubMeta
	// KindGitHubCommits is github/<account>/commits/<owner>/<repo>.
	KindGitHubCommits
	// KindGitHubPRs is github/<account>/prs/<owner>/<repo>.
	KindGitHubPRs
	// KindRedditMeta is reddit/<account>/meta.
	KindRedditMeta
	// KindRedditPosts is reddit/<account>/posts.
	KindRedditPosts
	// KindRedditComments is reddit/<account>/comments.
	KindRedditComments
	// KindTwitterMeta is twitter/<account>/meta.
	KindTwitterMeta
	// KindTwitterTweets is twitter/<account>/tweets.
	KindTwitterTweets
)

// rawPlatforms are the platform tokens accepted in raw/<platform>/<account>.
var rawPlatforms = map[string]bool{
	"github":  true,
	"bluesky": true,
	"youtube": true,
	"devpad":  true,
	"reddit":  true,
	"twitter": true,
}

// StoreID is the parsed form of a slash-delimited logical store name.
// Store ids are stable across snapshots.
type StoreID struct {
	Kind     Kind
	Platform string
	Account  string
	User     string
	Owner    string
	Repo     string
}

// RawStoreID returns raw/<platform>/<account>.
func RawStoreID(platform, account string) StoreID {
	return StoreID{Kind: KindRaw, Platform: platform, Account: account}
}

// TimelineStoreID returns timeline/<user>.
func TimelineStoreID(user string) StoreID {
	return StoreID{Kind: KindTimeline, User: user}
}

// GitHubMetaStoreID returns github/<account>/meta.
func GitHubMetaStoreID(account string) StoreID {
	return StoreID{Kind: KindGitHubMeta, Platform: "github", Account: account}
}

// GitHubCommitsStoreID returns github/<account>/commits/<owner>/<repo>.
func GitHubCommitsStoreID(account, owner, repo string) StoreID {
	return StoreID{Kind: KindGitHubCommits, Platform: "github", Account: account, Owner: owner, Repo: repo}
}

// GitHubPRsStoreID returns github/<account>/prs/<owner>/<repo>.
func GitHubPRsStoreID(account, owner, repo string) StoreID {
	return StoreID{Kind: KindGitHubPRs, Platform: "github", Account: account, Owner: owner, Repo: repo}
}

// RedditMetaStoreID returns reddit/<account>/meta.
func RedditMetaStoreID(account string) StoreID {
	return StoreID{Kind: KindRedditMeta, Platform: "reddit", Account: account}
}

// RedditPostsStoreID returns reddit/<account>/posts.
func RedditPostsStoreID(account string) StoreID {
	return StoreID{Kind: KindRedditPosts, Platform: "reddit", Account: account}
}

// RedditCommentsStoreID returns reddit/<account>/comments.
func RedditCommentsStoreID(account string) StoreID {
	return StoreID{Kind: KindRedditComments, Platform: "reddit", Account: account}
}

// TwitterMetaStoreID returns twitter/<account>/meta.
func TwitterMetaStoreID(account string) StoreID {
	return StoreID{Kind: KindTwitterMeta, Platform: "twitter", Account: account}
}

// TwitterTweetsStoreID returns twitter/<account>/tweets.
func TwitterTweetsStoreID(account string) StoreID {
	return StoreID{Kind: KindTwitterTweets, Platform: "twitter", Account: account}
}

// String reconstructs the slash-delimited form.
func (id StoreID) String() string {
	switch id.Kind {
	case KindRaw:
		return "raw/" + id.Platform + "/" + id.Account
	case KindTimeline:
		return "timeline/" + id.User
	case KindGitHubMeta:
		return "github/" + id.Account + "/meta"
	case KindGitHubCommits:
		return "github/" + id.Account + "/commits/" + id.Owner + "/" + id.Repo
	case KindGitHubPRs:
		return "github/" + id.Account + "/prs/" + id.Owner + "/" + id.Repo
	case KindRedditMeta:
		return "reddit/" + id.Account + "/meta"
	case KindRedditPosts:
		return "reddit/" + id.Account + "/posts"
	case KindRedditComments:
		return "reddit/" + id.Account + "/comments"
	case KindTwitterMeta:
		return "twitter/" + id.Account + "/meta"
	case KindTwitterTweets:
		return "twitter/" + id.Account + "/tweets"
	default:
		return ""
	}
}

// IsZero reports whether the id is unset.
func (id StoreID) IsZero() bool { return id.Kind == KindInvalid }

// ParseStoreID parses a slash-delimited store id.
// Parsing is exhaustive and deterministic; unknown shapes are rejected.
func ParseStoreID(s string) (StoreID, error) {
	parts := strings.Split(s, "/")
	for _, part := range parts {
		if part == "" {
			return StoreID{}, ErrStoreID.New("empty segment in %q", s)
		}
	}

	switch parts[0] {
	case "raw":
		if len(parts) != 3 {
			return StoreID{}, ErrStoreID.New("raw store id must have 3 segments: %q", s)
		}
		if !rawPlatforms[parts[1]] {
			return StoreID{}, ErrStoreID.New("unknown platform %q in %q", parts[1], s)
		}
		return RawStoreID(parts[1], parts[2]), nil

	case "timeline":
		if len(parts) != 2 {
			return StoreID{}, ErrStoreID.New("timeline store id must have 2 segments: %q", s)
		}
		return TimelineStoreID(parts[1]), nil

	case "github":
		switch {
		case len(parts) == 3 && parts[2] == "meta":
			return GitHubMetaStoreID(parts[1]), nil
		case len(parts) == 5 && parts[2] == "commits":
			return GitHubCommitsStoreID(parts[1], parts[3], parts[4]), nil
		case len(parts) == 5 && parts[2] == "prs":
			return GitHubPRsStoreID(parts[1], parts[3], parts[4]), nil
		}
		return StoreID{}, ErrStoreID.New("unknown github store id shape: %q", s)

	case "reddit":
		if len(parts) != 3 {
			return StoreID{}, ErrStoreID.New("reddit store id must have 3 segments: %q", s)
		}
		switch parts[2] {
		case "meta":
			return RedditMetaStoreID(parts[1]), nil
		case "posts":
			return RedditPostsStoreID(parts[1]), nil
		case "comments":
			return RedditCommentsStoreID(parts[1]), nil
		}
		return StoreID{}, ErrStoreID.New("unknown reddit store id shape: %q", s)

	case "twitter":
		if len(parts) != 3 {
			return StoreID{}, ErrStoreID.New("twitter store id must have 3 segments: %q", s)
		}
		switch parts[2] {
		case "meta":
			return TwitterMetaStoreID(parts[1]), nil
		case "tweets":
			return TwitterTweetsStoreID(parts[1]), nil
		}
		return StoreID{}, ErrStoreID.New("unknown twitter store id shape: %q", s)
	}

	return StoreID{}, ErrStoreID.New("unknown store id shape: %q", s)
}

// AccountStorePrefixes returns every store id prefix that may hold data for
// an account on a platform. Used when wiping an account.
func AccountStorePrefixes(platform, account string) []string {
	prefixes := []string{"raw/" + platform + "/" + account}
	switch platform {
	case "github", "reddit", "twitter":
		prefixes = append(prefixes, platform+"/"+account+"/")
	}
	return prefixes
}
