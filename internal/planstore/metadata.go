package planstore

import (
	"fmt"
	"regexp"
	"strings"
)

// metadataLineRe matches an in-band metadata line such as "Risk-Tier: high".
// Grounded on state.go's line-prefix parsing of STATE.md ("Phase:", "Plan:",
// "Status:", ...), generalized to an arbitrary field-name set.
var metadataLineRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*):\s*(.*)$`)

// metadataFields extracts every "Field-Name: value" line in the document
// up to (but not including) the first level-2 heading. Plan documents put
// their metadata block directly under the title heading.
func metadataFields(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(trimmed), "## ") {
			break
		}
		m := metadataLineRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		fields[m[1]] = strings.TrimSpace(m[2])
	}
	return fields
}

// ParseMetadata parses the in-band metadata block of a plan document.
// idFromBasename is used as a fallback plan_id when the Plan-ID field is
// absent, per spec.md §4.1 ("explicit field preferred; else inferred from
// file basename").
func ParseMetadata(content string, idFromBasename string) (Metadata, error) {
	fields := metadataFields(content)

	id := strings.TrimSpace(fields["Plan-ID"])
	if id == "" {
		id = idFromBasename
	}
	if !ValidPlanID(id) {
		return Metadata{}, fmt.Errorf("%w: %q", ErrInvalidPlanID, id)
	}

	md := Metadata{
		PlanID:             id,
		Status:             Status(strings.TrimSpace(fields["Status"])),
		Priority:           Priority(strings.TrimSpace(fields["Priority"])),
		Owner:              fields["Owner"],
		AcceptanceCriteria: fields["Acceptance-Criteria"],
		Dependencies:       splitSet(fields["Dependencies"]),
		SpecTargets:        splitSet(fields["Spec-Targets"]),
		DoneEvidence:       splitSet(fields["Done-Evidence"]),
		AutonomyAllowed:    Autonomy(strings.TrimSpace(fields["Autonomy-Allowed"])),
		RiskTier:           RiskTier(strings.TrimSpace(fields["Risk-Tier"])),
		Tags:               splitSet(strings.ToLower(fields["Tags"])),
		SecurityApproval:   SecurityApproval(strings.TrimSpace(fields["Security-Approval"])),
	}
	if md.Priority == "" {
		md.Priority = PriorityP2
	}
	if md.AutonomyAllowed == "" {
		md.AutonomyAllowed = AutonomyGuarded
	}
	if md.RiskTier == "" {
		md.RiskTier = RiskLow
	}
	if md.SecurityApproval == "" {
		md.SecurityApproval = SecurityApprovalNotRequired
	}
	return md, nil
}

// statusLineRe matches the single top-level "Status: ..." metadata line.
// Mirrors state.go's `regexp.MustCompile(`(?m)^Status:.*$`)` idiom used by
// UpdateStateFile, scoped here to a single rewrite rather than a document
// scan so SetStatus touches exactly one line as spec.md §4.1 requires.
var statusLineRe = regexp.MustCompile(`(?m)^Status:.*$`)

// rewriteStatusLine replaces the first top-level "Status:" line with the
// new status, preserving every other byte of content.
func rewriteStatusLine(content string, status Status) (string, error) {
	if !statusLineRe.MatchString(content) {
		return "", fmt.Errorf("%w: no top-level Status: line found", ErrIO)
	}
	replaced := false
	out := statusLineRe.ReplaceAllStringFunc(content, func(line string) string {
		if replaced {
			return line
		}
		replaced = true
		return "Status: " + string(status)
	})
	return out, nil
}

// fieldLineRe builds a regexp matching a single "Field-Name: ..." line.
func fieldLineRe(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(field) + `:.*$`)
}

// upsertField replaces the first occurrence of "Field: value" in the
// metadata block, or inserts it just before the first "## " heading (or at
// the end of the document when there is none) if absent.
func upsertField(content, field, value string) string {
	re := fieldLineRe(field)
	line := field + ": " + value
	if re.MatchString(content) {
		replaced := false
		return re.ReplaceAllStringFunc(content, func(m string) string {
			if replaced {
				return m
			}
			replaced = true
			return line
		})
	}
	lines := strings.Split(content, "\n")
	insertAt := len(lines)
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "## ") {
			insertAt = i
			break
		}
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertAt]...)
	out = append(out, line)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}
