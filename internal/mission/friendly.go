package mission

import "strings"

var friendlyMessages = []struct {
	patterns []string
	message  string
}{
	{[]string{"AI API error: 503", "temporarily unavailable"}, "The AI service is temporarily busy. Please retry."},
	{[]string{"AI API error: 502"}, "Connection issue with AI service. Retrying may help."},
	{[]string{"AI API error: 429", "rate limit"}, "Too many requests. Please wait a moment and retry."},
	{[]string{"AI API error: 402", "credits"}, "AI credits exhausted. Please add credits to continue."},
	{[]string{"Network request failed"}, "Network connection lost. Check your internet."},
	{[]string{"Failed to fetch"}, "Unable to connect to the server. Please try again."},
}

// FriendlyError maps a raw agent error message to text suitable for users.
func FriendlyError(msg string) string {
	lower := strings.ToLower(msg)
	for _, f := range friendlyMessages {
		for _, p := range f.patterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				return f.message
			}
		}
	}
	return "Something went wrong. Please try again."
}
