// Copyright (C) 2024 Chronicle Labs, Inc.
// See LICENSE for copying information.

package devpad

import (
	"github.com/chroniclehq/chronicle/timeline"
)

// Normalize maps stored task activity to timeline task items.
func Normalize(data Result) []timeline.Item {
	var items []timeline.Item

	for _, task := range data.Tasks {
		items = append(items, timeline.Item{
			ID:        "devpad:task:" + task.ID,
			Platform:  "devpad",
			Type:      timeline.TypeTask,
			Timestamp: task.UpdatedAt.UTC(),
			Title:     timeline.MakeTitle(task.Title),
			URL:       task.URL,
			Payload: timeline.TaskPayload{
				Project:     task.Project,
				Status:      task.Status,
				Description: task.Description,
				Priority:    task.Priority,
			},
		})
	}

	return items
}
