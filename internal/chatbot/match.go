// Package chatbot answers free-text questions from a table of keyword-triggered replies.
package chatbot

import (
	"strings"

	"github.com/Spok95/school-portal/internal/models"
)

const Fallback = "I'm sorry, I don't understand. Please try rephrasing your question or contact support."

// Normalize lowercases and trims a query.
func Normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Keywords splits a comma-separated keyword list, dropping empty entries.
func Keywords(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := Normalize(p); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Match returns the first message (in the given order) with a keyword contained in query.
// query must already be normalized.
func Match(messages []models.BotMessage, query string) (models.BotMessage, bool) {
	for _, m := range messages {
		for _, k := range Keywords(m.Keywords) {
			if strings.Contains(query, k) {
				return m, true
			}
		}
	}
	return models.BotMessage{}, false
}
