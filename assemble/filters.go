// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package assemble

import (
	"strings"

	"github.com/google/uuid"

	"github.com/chroniclehq/chronicle/console"
	"github.com/chroniclehq/chronicle/timeline"
)

// applyFilters narrows one account's items by the profile's filter set.
// Include filters on the same key are OR'd; distinct keys are AND'd;
// exclude filters always drop matches. Filters referencing other accounts
// are ignored here, so accounts act independently.
func applyFilters(items []timeline.Item, accountID uuid.UUID, filters []console.ProfileFilter) []timeline.Item {
	includeRepos := map[string]bool{}
	includeSubs := map[string]bool{}
	var excludes []console.ProfileFilter

	for _, filter := range filters {
		if filter.AccountID != accountID {
			continue
		}
		switch filter.FilterType {
		case console.FilterInclude:
			switch filter.FilterKey {
			case console.FilterKeyRepo:
				includeRepos[filter.FilterValue] = true
			case console.FilterKeySubreddit:
				includeSubs[filter.FilterValue] = true
			}
		case console.FilterExclude:
			excludes = append(excludes, filter)
		}
	}

	kept := items[:0:0]
	for _, item := range items {
		if len(includeRepos) > 0 && item.Platform == "github" && !includeRepos[item.Repo()] {
			continue
		}
		if len(includeSubs) > 0 && item.Platform == "reddit" && !includeSubs[item.Subreddit()] {
			continue
		}
		if excluded(item, excludes) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func excluded(item timeline.Item, excludes []console.ProfileFilter) bool {
	for _, filter := range excludes {
		switch filter.FilterKey {
		case console.FilterKeyRepo:
			if item.Repo() == filter.FilterValue {
				return true
			}
		case console.FilterKeySubreddit:
			if item.Subreddit() == filter.FilterValue {
				return true
			}
		case console.FilterKeyKeyword:
			if strings.Contains(strings.ToLower(item.Content()), strings.ToLower(filter.FilterValue)) {
				return true
			}
		}
	}
	return false
}
