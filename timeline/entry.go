// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package timeline

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// GroupType is the discriminator value carried by commit groups.
const GroupType = "commit_group"

// CommitGroup aggregates same-repo, same-branch, same-day commits into a
// single timeline entry. Single-commit groups are still emitted as groups
// so the entry shape stays uniform.
type CommitGroup struct {
	Type              string `json:"type"`
	Repo              string `json:"repo"`
	Branch            string `json:"branch"`
	Date              string `json:"date"`
	Commits           []Item `json:"commits"`
	TotalAdditions    int    `json:"total_additions"`
	TotalDeletions    int    `json:"total_deletions"`
	TotalFilesChanged int    `json:"total_files_changed"`
}

// Entry is either a single Item or a CommitGroup. Exactly one of the two
// fields is set.
type Entry struct {
	Item  *Item
	Group *CommitGroup
}

// ItemEntry wraps an item.
func ItemEntry(item Item) Entry { return Entry{Item: &item} }

// GroupEntry wraps a commit group.
func GroupEntry(group CommitGroup) Entry { return Entry{Group: &group} }

// Time returns the sorting timestamp of the entry: the item timestamp, or
// the newest commit of a group.
func (entry Entry) Time() time.Time {
	if entry.Group != nil {
		latest := time.Time{}
		for _, commit := range entry.Group.Commits {
			if commit.Timestamp.After(latest) {
				latest = commit.Timestamp
			}
		}
		return latest
	}
	if entry.Item != nil {
		return entry.Item.Timestamp
	}
	return time.Time{}
}

// Day returns the UTC bucketing day of the entry: the commits' day for
// commit groups, the item's day otherwise.
func (entry Entry) Day() string {
	if entry.Group != nil {
		return entry.Group.Date
	}
	if entry.Item != nil {
		return entry.Item.Day()
	}
	return ""
}

// MarshalJSON emits the wrapped value directly, so the wire shape is a
// plain item or a commit_group object.
func (entry Entry) MarshalJSON() ([]byte, error) {
	switch {
	case entry.Group != nil:
		return json.Marshal(entry.Group)
	case entry.Item != nil:
		return json.Marshal(entry.Item)
	}
	return nil, Error.New("empty timeline entry")
}

// UnmarshalJSON picks the entry variant by the type discriminator.
func (entry *Entry) UnmarshalJSON(data []byte) error {
	if gjson.GetBytes(data, "type").String() == GroupType {
		var group CommitGroup
		if err := json.Unmarshal(data, &group); err != nil {
			return Error.Wrap(err)
		}
		entry.Group, entry.Item = &group, nil
		return nil
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	entry.Item, entry.Group = &item, nil
	return nil
}

// DateGroup is one bucket of entries sharing a UTC calendar day.
type DateGroup struct {
	Date  string  `json:"date"`
	Items []Entry `json:"items"`
}

// Payload is the persisted timeline snapshot payload.
type Payload struct {
	UserID      string      `json:"user_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Groups      []DateGroup `json:"groups"`

	ProfileID   string `json:"profile_id,omitempty"`
	ProfileSlug string `json:"profile_slug,omitempty"`
	ProfileName string `json:"profile_name,omitempty"`
}
