package workflow

import (
	"fmt"
	"strings"

	"startup-hunter-be/pkg/memory/acontext"
)

const (
	memoryFetchLimit   = 20
	memoryWindow       = 10
	memoryContentLimit = 200
	noMemory           = "No previous context"
)

// FormatMemory renders the last messages as "role: content" lines for
// prompt context.
func FormatMemory(messages []acontext.Message) string {
	if len(messages) == 0 {
		return noMemory
	}
	if len(messages) > memoryWindow {
		messages = messages[len(messages)-memoryWindow:]
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "unknown"
		}
		content := m.Content
		if r := []rune(content); len(r) > memoryContentLimit {
			content = string(r[:memoryContentLimit])
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, content))
	}
	return strings.Join(lines, "\n")
}
