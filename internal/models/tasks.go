package models

import "strings"

// MergeTaskItems applies incoming task statuses onto an existing day's items.
// A task already present (compared case-insensitively) takes the incoming
// status in place; new tasks are appended. Existing tasks absent from incoming
// keep their status. Repeated existing tasks collapse to their first
// occurrence.
func MergeTaskItems(existing, incoming []TaskItem) []TaskItem {
	merged := make([]TaskItem, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing))
	for _, ex := range existing {
		key := strings.ToLower(strings.TrimSpace(ex.Task))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ex)
	}
	for _, in := range incoming {
		found := false
		for i, ex := range merged {
			if strings.EqualFold(ex.Task, in.Task) {
				merged[i].Status = in.Status
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, TaskItem{Task: in.Task, Status: in.Status})
		}
	}
	return merged
}

// DayFromItems groups items into a day record, preserving their order within
// each bucket. Unknown statuses are treated as todo. A text repeated within
// the day (compared case-insensitively) keeps only its first occurrence, so
// each task sits in exactly one bucket.
func DayFromItems(date DayLabel, items []TaskItem) DayRecord {
	d := NewDayRecord(date)
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		text := strings.TrimSpace(it.Task)
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		switch it.Status {
		case BucketComplete:
			d.Complete = append(d.Complete, text)
		case BucketPending:
			d.Pending = append(d.Pending, text)
		default:
			d.Todo = append(d.Todo, text)
		}
	}
	return d
}
