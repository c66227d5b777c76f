// Package views computes read-only projections of a user's notes. Every
// function returns a fresh slice and leaves its input untouched.
package views

import (
	"sort"

	"noteflow/internal/domain"
	"noteflow/internal/parser"
)

// FilterByTopic keeps notes in topicID. "all" keeps everything.
func FilterByTopic(notes []domain.Note, topicID string) []domain.Note {
	if topicID == domain.AllTopics {
		return clone(notes)
	}
	return filter(notes, func(n domain.Note) bool { return n.TopicID == topicID })
}

// FilterByTag keeps notes carrying tag. An empty tag keeps everything.
func FilterByTag(notes []domain.Note, tag string) []domain.Note {
	if tag == "" {
		return clone(notes)
	}
	return filter(notes, func(n domain.Note) bool { return n.HasTag(tag) })
}

// Partition splits notes by pin/archive status.
type Partition struct {
	Pinned   []domain.Note `json:"pinned"`
	Normal   []domain.Note `json:"normal"`
	Archived []domain.Note `json:"archived"`
}

// PartitionByStatus groups notes into pinned, normal and archived, keeping
// relative order within each group. A note carrying both flags is treated as
// pinned.
func PartitionByStatus(notes []domain.Note) Partition {
	p := Partition{
		Pinned:   []domain.Note{},
		Normal:   []domain.Note{},
		Archived: []domain.Note{},
	}
	for _, n := range notes {
		switch {
		case n.Pinned:
			p.Pinned = append(p.Pinned, n)
		case n.Archived:
			p.Archived = append(p.Archived, n)
		default:
			p.Normal = append(p.Normal, n)
		}
	}
	return p
}

// SortByRecency orders notes newest UpdatedAt first. Equal timestamps keep
// their input order.
func SortByRecency(notes []domain.Note) []domain.Note {
	out := clone(notes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// CollectAllTags returns the sorted union of every note's tags.
func CollectAllTags(notes []domain.Note) []string {
	seen := make(map[string]struct{})
	tags := []string{}
	for _, n := range notes {
		for _, t := range n.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags
}

// DatedNote pairs a note with the due-date marker found in its content.
type DatedNote struct {
	Note domain.Note    `json:"note"`
	Due  parser.DueDate `json:"due"`
}

// UpcomingDated returns notes whose content carries a [DD/MM] marker.
func UpcomingDated(notes []domain.Note) []DatedNote {
	out := []DatedNote{}
	for _, n := range notes {
		if due, ok := parser.ExtractDueDateMarker(parser.PlainText(n.Content, n.Format)); ok {
			out = append(out, DatedNote{Note: n, Due: due})
		}
	}
	return out
}

func filter(notes []domain.Note, keep func(domain.Note) bool) []domain.Note {
	out := []domain.Note{}
	for _, n := range notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func clone(notes []domain.Note) []domain.Note {
	out := make([]domain.Note, len(notes))
	copy(out, notes)
	return out
}
