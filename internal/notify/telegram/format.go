package telegram

import (
	"fmt"
	"strings"

	"jobfunnel-engine/internal/domain"
)

const maxTitleLen = 34

var markdownEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// truncateTitle shortens a title without cutting words.
func truncateTitle(title string) string {
	words := strings.Fields(title)
	var out string
	for _, w := range words {
		next := w
		if out != "" {
			next = out + " " + w
		}
		if len(next) > maxTitleLen {
			break
		}
		out = next
	}
	if out == "" {
		if len(title) > maxTitleLen {
			return title[:maxTitleLen]
		}
		return title
	}
	return out
}

// shortTitle keeps the first few words for callback acks.
func shortTitle(title string) string {
	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

func vacancyMessage(job domain.Job, score int) string {
	title := escapeMarkdown(truncateTitle(job.Title))
	if title == "" {
		title = "No Title"
	}
	company := escapeMarkdown(job.Company)
	if company == "" {
		company = "Unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔹 *%s*\n\n", title)
	fmt.Fprintf(&sb, "🏢 %s\n", company)
	if job.Location != "" {
		fmt.Fprintf(&sb, "📍 %s\n", escapeMarkdown(job.Location))
	}
	if job.Salary != "" {
		fmt.Fprintf(&sb, "💰 %s\n", escapeMarkdown(job.Salary))
	}
	fmt.Fprintf(&sb, "📊 Score: %d\n\n", score)
	if job.URL != "" {
		fmt.Fprintf(&sb, "[🔗 View Job Posting](%s)", job.URL)
	} else {
		sb.WriteString("No URL provided")
	}
	return sb.String()
}
