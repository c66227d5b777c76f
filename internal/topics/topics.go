// Package topics orders a user's topics and guards default topics against
// rename and delete.
package topics

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"noteflow/internal/domain"
)

// SortTopics returns a new slice with user topics first, alphabetical by name
// (case-insensitive, locale-aware), followed by default topics ordered by
// Order ascending.
func SortTopics(topics []domain.Topic) []domain.Topic {
	sorted := make([]domain.Topic, len(topics))
	copy(sorted, topics)

	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.IsDefault != b.IsDefault {
			return !a.IsDefault
		}
		if a.IsDefault {
			return a.Order < b.Order
		}
		return col.CompareString(a.Name, b.Name) < 0
	})
	return sorted
}

// CanRename reports whether the user may rename t.
func CanRename(t domain.Topic) bool { return !t.IsDefault }

// CanDelete reports whether the user may delete t.
func CanDelete(t domain.Topic) bool { return !t.IsDefault }

// ResolveDefaultTopicID looks up a default topic by exact name.
func ResolveDefaultTopicID(topics []domain.Topic, name string) (string, bool) {
	for _, t := range topics {
		if t.IsDefault && t.Name == name {
			return t.ID, true
		}
	}
	return "", false
}

// FindByID returns the topic with the given id.
func FindByID(topics []domain.Topic, id string) (domain.Topic, bool) {
	for _, t := range topics {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Topic{}, false
}

// Required lists the default topics every user must have, with their order.
var Required = []domain.Topic{
	{Name: domain.NoTopicName, IsDefault: true, Order: 1000, Color: "bg-gray-200"},
	{Name: domain.VoiceNotesName, IsDefault: true, Order: 1001, Color: "bg-purple-200"},
}

// Missing returns the required default topics absent from topics.
func Missing(topics []domain.Topic) []domain.Topic {
	var missing []domain.Topic
	for _, req := range Required {
		if _, ok := ResolveDefaultTopicID(topics, req.Name); !ok {
			missing = append(missing, req)
		}
	}
	return missing
}
