package parser

import (
	"regexp"
	"strconv"
)

var dueDatePattern = regexp.MustCompile(`\[(\d{1,2})/(\d{1,2})\]`)

// DueDate is a day/month marker exactly as written in the note.
type DueDate struct {
	Day   string `json:"day"`
	Month string `json:"month"`
}

// ExtractDueDateMarker returns the first [DD/MM] marker whose day and month
// are in calendar range.
func ExtractDueDateMarker(text string) (DueDate, bool) {
	for _, m := range dueDatePattern.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			continue
		}
		return DueDate{Day: m[1], Month: m[2]}, true
	}
	return DueDate{}, false
}
