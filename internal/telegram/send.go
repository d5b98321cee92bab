package telegram

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxMessageLen = 4096

// chunkMessage splits text into pieces of at most maxLen bytes. Cuts prefer
// a blank line between result sections, then a newline, and never split a
// multi-byte character.
func chunkMessage(text string, maxLen int) []string {
	var chunks []string
	for len(text) > maxLen {
		cutAt := maxLen
		for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
			cutAt--
		}
		if idx := strings.LastIndex(text[:cutAt], "\n\n"); idx > maxLen/2 {
			cutAt = idx + 2
		} else if idx := strings.LastIndex(text[:cutAt], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	if len(text) > 0 || len(chunks) == 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

var (
	doubleStar = regexp.MustCompile(`\*\*(.+?)\*\*`)
	heading    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
)

// toTelegramMarkdown rewrites markdown bold and headings, which agent
// results use freely, into Telegram's legacy syntax.
func toTelegramMarkdown(s string) string {
	s = doubleStar.ReplaceAllString(s, "*$1*")
	return heading.ReplaceAllString(s, "*$1*")
}
