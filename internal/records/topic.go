package records

import "noteflow/internal/domain"

// DecodeTopic builds a Topic from a stored document.
func DecodeTopic(id string, raw map[string]any) (domain.Topic, []Issue) {
	d := &decoder{data: MigrateTopic(raw)}
	t := domain.Topic{
		ID:          id,
		UserID:      d.str("userId"),
		Name:        d.str("name"),
		Description: d.str("description"),
		Color:       d.str("color"),
		IsDefault:   d.boolean("isDefault"),
		Order:       d.integer("order"),
		ParentID:    d.str("parentId"),
	}
	if t.Name == "" {
		d.report("name", "empty name, using %q", domain.DefaultTopicName)
		t.Name = domain.DefaultTopicName
	}
	return t, d.issues
}

// EncodeTopic returns the full document for t.
func EncodeTopic(t domain.Topic) map[string]any {
	return map[string]any{
		"schemaVersion": SchemaVersion,
		"userId":        t.UserID,
		"name":          t.Name,
		"description":   t.Description,
		"color":         t.Color,
		"isDefault":     t.IsDefault,
		"order":         t.Order,
		"parentId":      t.ParentID,
	}
}
