// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package timeline

import "sort"

// CombineTimelines merges normalized items into one sequence: a stable
// sort by timestamp descending, ties broken by id ascending so the result
// is deterministic.
func CombineTimelines(items []Item) []Item {
	combined := make([]Item, len(items))
	copy(combined, items)

	sort.SliceStable(combined, func(i, k int) bool {
		if !combined[i].Timestamp.Equal(combined[k].Timestamp) {
			return combined[i].Timestamp.After(combined[k].Timestamp)
		}
		return combined[i].ID < combined[k].ID
	})
	return combined
}

// commitGroupKey identifies a commit group.
type commitGroupKey struct {
	repo   string
	branch string
	day    string
}

// GroupCommits groups commit items by (repo, branch, UTC day) and passes
// all other items through unchanged. Each group keeps its members in input
// order and is emitted at the position of its first member.
func GroupCommits(items []Item) []Entry {
	var entries []Entry
	groups := map[commitGroupKey]int{}

	for _, item := range items {
		commit, ok := item.Commit()
		if !ok {
			entries = append(entries, ItemEntry(item))
			continue
		}

		key := commitGroupKey{repo: commit.Repo, branch: commit.Branch, day: item.Day()}
		if at, ok := groups[key]; ok {
			group := entries[at].Group
			group.Commits = append(group.Commits, item)
			group.TotalAdditions += commit.Additions
			group.TotalDeletions += commit.Deletions
			group.TotalFilesChanged += commit.FilesChanged
			continue
		}

		groups[key] = len(entries)
		entries = append(entries, GroupEntry(CommitGroup{
			Type:              GroupType,
			Repo:              commit.Repo,
			Branch:            commit.Branch,
			Date:              key.day,
			Commits:           []Item{item},
			TotalAdditions:    commit.Additions,
			TotalDeletions:    commit.Deletions,
			TotalFilesChanged: commit.FilesChanged,
		}))
	}
	return entries
}

// GroupByDate buckets entries by their UTC day, preserving the incoming
// order within each bucket. Buckets are returned newest date first.
func GroupByDate(entries []Entry) []DateGroup {
	var groups []DateGroup
	at := map[string]int{}

	for _, entry := range entries {
		day := entry.Day()
		idx, ok := at[day]
		if !ok {
			idx = len(groups)
			at[day] = idx
			groups = append(groups, DateGroup{Date: day})
		}
		groups[idx].Items = append(groups[idx].Items, entry)
	}

	sort.SliceStable(groups, func(i, k int) bool {
		return groups[i].Date > groups[k].Date
	})
	return groups
}

// FlattenGroups is the inverse of GroupByDate: it concatenates the entries
// of each date bucket in order.
func FlattenGroups(groups []DateGroup) []Entry {
	var entries []Entry
	for _, group := range groups {
		entries = append(entries, group.Items...)
	}
	return entries
}
