package planstore

import (
	"fmt"
	"strings"
)

// UpsertSection replaces the level-2 section "## <title>" (from its heading
// to the next "## " heading or end of document) with a freshly rendered
// section, or appends the section if it doesn't exist. Generalizes
// state.go's single-line regex replacements (UpdateStateFile,
// UpdateRoadmap) to whole-section granularity, needed for the multi-line
// "Validation Evidence" / "Completion Snapshot" / "Closure" sections.
func UpsertSection(content, title, body string) string {
	heading := "## " + title
	rendered := heading + "\n\n" + strings.TrimRight(body, "\n") + "\n"

	lines := strings.Split(content, "\n")
	start := -1
	end := len(lines)
	for i, l := range lines {
		if strings.TrimSpace(l) == heading {
			start = i
			continue
		}
		if start >= 0 && i > start && strings.HasPrefix(strings.TrimSpace(l), "## ") {
			end = i
			break
		}
	}

	if start == -1 {
		trimmed := strings.TrimRight(content, "\n")
		if trimmed == "" {
			return rendered
		}
		return trimmed + "\n\n" + rendered
	}

	var out []string
	out = append(out, lines[:start]...)
	out = append(out, strings.Split(strings.TrimRight(rendered, "\n"), "\n")...)
	if end < len(lines) {
		out = append(out, "") // keep a blank line before the next section
		out = append(out, lines[end:]...)
	}
	return strings.Join(out, "\n")
}

const deliveryLogTitle = "Automated Delivery Log"

// AppendToDeliveryLog inserts "- <entry>" as the last bullet of the
// "## Automated Delivery Log" section of a product-spec document, creating
// the section if absent.
func AppendToDeliveryLog(content, entry string) string {
	heading := "## " + deliveryLogTitle
	bullet := "- " + entry

	if !strings.Contains(content, heading) {
		return UpsertSection(content, deliveryLogTitle, bullet)
	}

	lines := strings.Split(content, "\n")
	start := -1
	end := len(lines)
	for i, l := range lines {
		if strings.TrimSpace(l) == heading {
			start = i
			continue
		}
		if start >= 0 && i > start && strings.HasPrefix(strings.TrimSpace(l), "## ") {
			end = i
			break
		}
	}
	if start == -1 {
		return UpsertSection(content, deliveryLogTitle, bullet)
	}

	insertAt := end
	for insertAt > start+1 && strings.TrimSpace(lines[insertAt-1]) == "" {
		insertAt--
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertAt]...)
	out = append(out, bullet)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

func mustRenderList(items []string) string {
	if len(items) == 0 {
		return "_none_"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return strings.TrimRight(b.String(), "\n")
}
