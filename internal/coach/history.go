package coach

import "strings"

// Replayed history needs a text part per turn.
const (
	UserImagePlaceholder      = "[Image sent]"
	AssistantEmptyPlaceholder = "..."
)

// BuildContextWindow returns the newest n turns of history (oldest first) in
// the order they are sent to the model. Turns without text get a placeholder;
// user turns that carried a photo are marked so the model knows one was sent.
func BuildContextWindow(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}

	window := make([]Turn, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Text) == "" {
			if t.Role == RoleAssistant {
				t.Text = AssistantEmptyPlaceholder
			} else {
				t.Text = UserImagePlaceholder
			}
		} else if t.HasImage && t.Role == RoleUser {
			t.Text = UserImagePlaceholder + " " + t.Text
		}
		window = append(window, t)
	}
	return window
}

// Chronological reverses a newest-first slice into a new oldest-first slice.
func Chronological(newestFirst []Turn) []Turn {
	out := make([]Turn, len(newestFirst))
	for i, t := range newestFirst {
		out[len(newestFirst)-1-i] = t
	}
	return out
}
