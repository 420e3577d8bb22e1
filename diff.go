package sitewatch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StructuralChange is reported by ComputeDiff when both inputs contain the
// same set of lines. Callers only diff after a hash mismatch, so the report
// still has to say that something changed.
const StructuralChange = "Content structure changed (check the site for details)"

// maxReportLines caps each section of a diff report.
const maxReportLines = 10

// ComputeDiff returns a human-readable report of the lines removed from
// oldContent and added in newContent. Membership is by set: a line that
// only moved is not reported. Each section lists at most the first 10 lines
// and is omitted when empty.
//
// The report is a lossy summary for people; it is never used to decide
// whether content changed.
func ComputeDiff(oldContent, newContent string) string {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	removed := missingFrom(oldLines, newLines)
	added := missingFrom(newLines, oldLines)

	var b strings.Builder
	if len(removed) > 0 {
		b.WriteString("Removed:\n")
		for _, line := range head(removed, maxReportLines) {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if len(added) > 0 {
		b.WriteString("Added:\n")
		for _, line := range head(added, maxReportLines) {
			b.WriteString("+ ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if b.Len() == 0 {
		return StructuralChange
	}
	return b.String()
}

// ContentHash returns the hex-encoded SHA-256 digest of normalized content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// missingFrom returns the lines of a that do not occur anywhere in b,
// in the order they appear in a.
func missingFrom(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, line := range b {
		set[line] = struct{}{}
	}

	var out []string
	for _, line := range a {
		if _, ok := set[line]; !ok {
			out = append(out, line)
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}
