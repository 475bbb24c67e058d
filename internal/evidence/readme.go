package evidence

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const resultSummaryTitle = "Result Summary"

var resultSummarySectionRe = regexp.MustCompile(`(?s)## ` + regexp.QuoteMeta(resultSummaryTitle) + `\n.*?(\n## |\z)`)

// BuildReadme regenerates an evidence directory's README.md: a title
// derived from the folder name, the current artifact list, curation
// metadata, and a preserved "Result Summary" section if one exists in
// the prior README content.
func BuildReadme(dirName string, artifacts []string, curatedAt string, priorContent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", titleCase(dirName))
	fmt.Fprintf(&b, "Curated-At: %s\n\n", curatedAt)

	b.WriteString("## Artifacts\n\n")
	if len(artifacts) == 0 {
		b.WriteString("No artifacts retained.\n\n")
	} else {
		for _, a := range artifacts {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	if summary := extractResultSummary(priorContent); summary != "" {
		b.WriteString(summary)
		if !strings.HasSuffix(summary, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func extractResultSummary(content string) string {
	m := resultSummarySectionRe.FindString(content)
	m = strings.TrimSuffix(m, "\n## ")
	return strings.TrimRight(m, "\n")
}

func titleCase(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// WriteReadme writes an evidence directory's README.md idempotently.
func WriteReadme(dir string, content string) error {
	return writeIfChanged(filepath.Join(dir, "README.md"), content)
}
