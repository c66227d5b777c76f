package domain

import "time"

// Default topic names provisioned for every user.
const (
	NoTopicName    = "No Topic"
	VoiceNotesName = "Voice Notes"

	// AllTopics selects every note regardless of topic.
	AllTopics = "all"

	DefaultNoteTitle  = "New Note"
	DefaultTopicName  = "New Topic"
	DefaultTopicColor = "bg-gray-200"
)

// Content formats a note body may be stored in.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

type Topic struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	IsDefault   bool   `json:"isDefault"`
	Order       int    `json:"order"`
	ParentID    string `json:"parentId,omitempty"`
}

type Note struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	TopicID     string     `json:"topicId"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Format      string     `json:"format"`
	Tags        []string   `json:"tags"`
	Completed   bool       `json:"completed"`
	Pinned      bool       `json:"pinned"`
	Archived    bool       `json:"archived"`
	IsVoiceNote bool       `json:"isVoiceNote"`
	EventDate   *time.Time `json:"eventDate,omitempty"`
	Media       []string   `json:"media"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// HasTag reports whether tag is among the note's tags.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CalendarEvent is a read model. NoteID is set when the event is derived from
// a note's EventDate; standalone events carry only their own ID.
type CalendarEvent struct {
	ID     string    `json:"id"`
	NoteID string    `json:"noteId,omitempty"`
	UserID string    `json:"userId"`
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
}
