package records

// SchemaVersion is written on every encoded document.
//
//	0: notes reference "categoryId" (or the older "folderId")
//	1: notes reference "topicId"
//	2: notes carry pinned, archived, eventDate, media and format
const SchemaVersion = 2

// Collection names in the store. Stores resolve LegacyTopicsCollection to
// TopicsCollection on every operation.
const (
	NotesCollection        = "notes"
	TopicsCollection       = "topics"
	LegacyTopicsCollection = "categories"
	EventsCollection       = "events"
)

// CanonicalCollection maps historical collection names to current ones.
func CanonicalCollection(name string) string {
	if name == LegacyTopicsCollection {
		return TopicsCollection
	}
	return name
}

func version(data map[string]any) int {
	if n, ok := toFloat(data["schemaVersion"]); ok {
		return int(n)
	}
	return 0
}

// MigrateNote upgrades a raw note document to the current schema. The input
// map is not modified.
func MigrateNote(data map[string]any) map[string]any {
	out := copyMap(data)
	v := version(out)
	if v < 1 {
		if _, ok := out["topicId"]; !ok {
			if id, ok := out["categoryId"]; ok {
				out["topicId"] = id
			} else if id, ok := out["folderId"]; ok {
				out["topicId"] = id
			}
		}
		delete(out, "categoryId")
		delete(out, "folderId")
	}
	if v < 2 {
		for _, f := range []string{"pinned", "archived", "completed", "isVoiceNote"} {
			if _, ok := out[f]; !ok {
				out[f] = false
			}
		}
		if _, ok := out["media"]; !ok {
			out["media"] = []any{}
		}
	}
	out["schemaVersion"] = SchemaVersion
	return out
}

// MigrateTopic upgrades a raw topic document to the current schema.
func MigrateTopic(data map[string]any) map[string]any {
	out := copyMap(data)
	if _, ok := out["isDefault"]; !ok {
		out["isDefault"] = false
	}
	out["schemaVersion"] = SchemaVersion
	return out
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
