// Package merge implements the Merge Engine: applying one or several task
// snapshots onto a file baseline, deciding per-file strategy, and combining
// non-conflicting concurrent edits deterministically.
//
// Grounded on merge/file_merger.py and merge/models.py from the original
// implementation: the same line-ending priority detection, the same
// imports-then-modifications-then-functions-then-other combine ordering,
// and the same literal substring replacement for modifications.
package merge

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/forgepilot/swe-orchestrator/internal/evolution"
	"github.com/forgepilot/swe-orchestrator/internal/semdiff"
)

// Strategy is the per-file decision the engine makes before combining.
type Strategy string

const (
	StrategyBaselineOnly Strategy = "baseline_only"
	StrategySingleTask   Strategy = "single_task"
	StrategyAutoCombine  Strategy = "auto_combine"
	StrategyAIMerge      Strategy = "ai_merge"
	StrategyManual       Strategy = "manual"
)

// Outcome is the result of merging a set of snapshots onto a baseline.
type Outcome struct {
	Strategy      Strategy
	Content       string
	NeedsReview   bool
	ConflictNotes []string

	// Unapplied holds modify_region changes whose ContentBefore anchor was
	// not found in the content at the point they were applied, so the
	// ReplaceAll silently did nothing. Per spec.md §8's testable property
	// #4, these must be reported out-of-band rather than dropped.
	Unapplied []semdiff.Change
}

// AIMergeFunc performs an out-of-process AI-assisted merge of the given
// baseline against all snapshots, returning fully merged file content.
type AIMergeFunc func(ctx context.Context, baseline string, snapshots []*evolution.TaskSnapshot) (string, error)

// Decide chooses the merge strategy for baseline given snapshots, per the
// spec's per-file decision table. It does not apply any changes.
func Decide(snapshots []*evolution.TaskSnapshot) (Strategy, string) {
	live := completedSnapshots(snapshots)
	switch len(live) {
	case 0:
		return StrategyBaselineOnly, ""
	case 1:
		return StrategySingleTask, ""
	}

	for _, s := range live {
		for _, c := range s.SemanticChanges {
			if c.ContentBefore == "" && c.ContentAfter == "" {
				return StrategyManual, "opaque (binary/non-UTF-8) change present alongside other snapshots"
			}
		}
	}

	if anchors, ok := disjointAnchors(live); ok {
		_ = anchors
		return StrategyAutoCombine, ""
	}
	return StrategyAIMerge, "overlapping content_before anchors across snapshots"
}

func completedSnapshots(snapshots []*evolution.TaskSnapshot) []*evolution.TaskSnapshot {
	var out []*evolution.TaskSnapshot
	for _, s := range snapshots {
		if s != nil && s.CompletedAt != nil {
			out = append(out, s)
		}
	}
	return out
}

// disjointAnchors reports whether every content_before anchor across all
// snapshots is non-overlapping and occurs in no other snapshot's anchor set.
func disjointAnchors(snapshots []*evolution.TaskSnapshot) ([]string, bool) {
	seen := make(map[string]bool)
	var anchors []string
	for _, s := range snapshots {
		for _, c := range s.SemanticChanges {
			if c.ContentBefore == "" {
				continue
			}
			if seen[c.ContentBefore] {
				return nil, false
			}
			if anchorOverlapsAny(c.ContentBefore, anchors) {
				return nil, false
			}
			seen[c.ContentBefore] = true
			anchors = append(anchors, c.ContentBefore)
		}
	}
	return anchors, true
}

// anchorOverlapsAny reports whether anchor is a substring of, or contains,
// any anchor already recorded (same or enclosing textual region).
func anchorOverlapsAny(anchor string, anchors []string) bool {
	for _, a := range anchors {
		if strings.Contains(anchor, a) || strings.Contains(a, anchor) {
			return true
		}
	}
	return false
}

// Merge applies snapshots onto baseline according to the chosen strategy,
// escalating to aiMerge (if non-nil) on conflict.
func Merge(ctx context.Context, baseline string, snapshots []*evolution.TaskSnapshot, filePath string, aiMerge AIMergeFunc) (Outcome, error) {
	strategy, reason := Decide(snapshots)

	switch strategy {
	case StrategyBaselineOnly:
		return Outcome{Strategy: strategy, Content: baseline}, nil
	case StrategySingleTask:
		live := completedSnapshots(snapshots)
		content, unapplied := ApplySingleTaskChanges(baseline, live[0], filePath)
		return Outcome{Strategy: strategy, Content: content, Unapplied: unapplied}, nil
	case StrategyAutoCombine:
		live := completedSnapshots(snapshots)
		content, unapplied := CombineNonConflicting(baseline, live, filePath)
		return Outcome{Strategy: strategy, Content: content, Unapplied: unapplied}, nil
	default:
		if aiMerge != nil {
			merged, err := aiMerge(ctx, baseline, snapshots)
			if err == nil {
				return Outcome{Strategy: StrategyAIMerge, Content: merged}, nil
			}
			reason = fmt.Sprintf("%s; ai merge failed: %v", reason, err)
		}
		return Outcome{
			Strategy:      StrategyManual,
			Content:       baseline,
			NeedsReview:   true,
			ConflictNotes: []string{reason},
		}, nil
	}
}

// DetectLineEnding reports the dominant line-ending style in content, using
// priority CRLF > CR > LF (CRLF is checked first since it contains LF).
func DetectLineEnding(content string) string {
	if strings.Contains(content, "\r\n") {
		return "\r\n"
	}
	if strings.Contains(content, "\r") {
		return "\r"
	}
	return "\n"
}

func normalizeToLF(content string) string {
	return strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\r", "\n")
}

func restoreLineEnding(content, ending string) string {
	switch ending {
	case "\r\n":
		return strings.ReplaceAll(content, "\n", "\r\n")
	case "\r":
		return strings.ReplaceAll(content, "\n", "\r")
	default:
		return content
	}
}

// replaceAllAnchored behaves like strings.ReplaceAll but reports whether the
// anchor was actually present, so a caller can distinguish "replaced" from
// "silently did nothing."
func replaceAllAnchored(content, before, after string) (string, bool) {
	if !strings.Contains(content, before) {
		return content, false
	}
	return strings.ReplaceAll(content, before, after), true
}

// ApplySingleTaskChanges applies one snapshot's semantic changes onto
// baseline, preserving baseline's original line-ending style. Modify-region
// changes whose ContentBefore anchor is missing from the content are
// returned in unapplied rather than dropped.
func ApplySingleTaskChanges(baseline string, snapshot *evolution.TaskSnapshot, filePath string) (string, []semdiff.Change) {
	originalEnding := DetectLineEnding(baseline)
	content := normalizeToLF(baseline)

	var unapplied []semdiff.Change
	for _, change := range snapshot.SemanticChanges {
		switch {
		case change.ContentBefore != "" && change.ContentAfter != "":
			var matched bool
			content, matched = replaceAllAnchored(content, change.ContentBefore, change.ContentAfter)
			if !matched {
				unapplied = append(unapplied, change)
			}
		case change.ContentAfter != "" && change.ContentBefore == "":
			switch change.Type {
			case semdiff.AddImport:
				content = insertImport(content, change.ContentAfter, filePath)
			case semdiff.AddFunction:
				content += "\n\n" + change.ContentAfter
			}
		}
	}

	return restoreLineEnding(content, originalEnding), unapplied
}

// CombineNonConflicting applies all snapshots' changes onto baseline in the
// fixed order imports -> modifications -> functions -> other. Modification
// anchors absent from the content are collected in unapplied rather than
// silently dropped.
func CombineNonConflicting(baseline string, snapshots []*evolution.TaskSnapshot, filePath string) (string, []semdiff.Change) {
	originalEnding := DetectLineEnding(baseline)
	content := normalizeToLF(baseline)

	var imports, functions, modifications, other []semdiff.Change
	for _, snap := range snapshots {
		for _, c := range snap.SemanticChanges {
			switch {
			case c.Type == semdiff.AddImport:
				imports = append(imports, c)
			case c.Type == semdiff.AddFunction:
				functions = append(functions, c)
			case strings.Contains(string(c.Type), "modify"):
				modifications = append(modifications, c)
			default:
				other = append(other, c)
			}
		}
	}

	if len(imports) > 0 {
		hasTrailingNewline := strings.HasSuffix(content, "\n")
		lines := splitLinesKeepEmpty(content)
		importEnd := FindImportEnd(lines, filePath)
		for _, imp := range imports {
			importContent := strings.TrimRight(imp.ContentAfter, "\n\r")
			if importContent == "" || strings.Contains(content, importContent) {
				continue
			}
			lines = insertAt(lines, importEnd, importContent)
			importEnd++
			content = strings.Join(lines, "\n")
		}
		if hasTrailingNewline && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
	}

	var unapplied []semdiff.Change
	for _, mod := range modifications {
		if mod.ContentBefore != "" && mod.ContentAfter != "" {
			var matched bool
			content, matched = replaceAllAnchored(content, mod.ContentBefore, mod.ContentAfter)
			if !matched {
				unapplied = append(unapplied, mod)
			}
		}
	}

	for _, fn := range functions {
		if fn.ContentAfter != "" {
			content += "\n\n" + fn.ContentAfter
		}
	}

	for _, c := range other {
		switch {
		case c.ContentAfter != "" && c.ContentBefore == "":
			content += "\n" + c.ContentAfter
		case c.ContentBefore != "" && c.ContentAfter != "":
			var matched bool
			content, matched = replaceAllAnchored(content, c.ContentBefore, c.ContentAfter)
			if !matched {
				unapplied = append(unapplied, c)
			}
		}
	}

	return restoreLineEnding(content, originalEnding), unapplied
}

func splitLinesKeepEmpty(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func insertAt(lines []string, index int, value string) []string {
	if index < 0 {
		index = 0
	}
	if index > len(lines) {
		index = len(lines)
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:index]...)
	out = append(out, value)
	out = append(out, lines[index:]...)
	return out
}

func insertImport(content, importLine, filePath string) string {
	hasTrailingNewline := strings.HasSuffix(content, "\n")
	lines := splitLinesKeepEmpty(content)
	importEnd := FindImportEnd(lines, filePath)
	lines = insertAt(lines, importEnd, strings.TrimRight(importLine, "\n\r"))
	result := strings.Join(lines, "\n")
	if hasTrailingNewline {
		result += "\n"
	}
	return result
}

// FindImportEnd returns the line index after the last import-like line,
// per the file extension's import prefix conventions.
func FindImportEnd(lines []string, filePath string) int {
	ext := strings.ToLower(filepath.Ext(filePath))
	lastImport := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		switch ext {
		case ".py":
			if strings.HasPrefix(stripped, "import ") || strings.HasPrefix(stripped, "from ") {
				lastImport = i + 1
			}
		case ".js", ".jsx", ".ts", ".tsx", ".go":
			if strings.HasPrefix(stripped, "import ") {
				lastImport = i + 1
			}
		}
	}
	return lastImport
}

// ExtractLocationContent pulls the named function/class body out of content
// for location strings like "function:App" or "class:Widget", falling back
// to the full content when the location cannot be found.
func ExtractLocationContent(content, location string) string {
	parts := strings.SplitN(location, ":", 2)
	if len(parts) != 2 {
		return content
	}
	kind, name := parts[0], regexp.QuoteMeta(parts[1])

	switch kind {
	case "function":
		pattern := regexp.MustCompile(fmt.Sprintf(`(?s)(function\s+%s\s*\([^)]*\)\s*\{.*?\n\})`, name))
		if m := pattern.FindStringSubmatch(content); m != nil {
			return m[1]
		}
		assign := regexp.MustCompile(fmt.Sprintf(`(?s)((?:const|let|var)\s+%s\s*=.*?\n\};?)`, name))
		if m := assign.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	case "class":
		pattern := regexp.MustCompile(fmt.Sprintf(`(?s)(class\s+%s\s*(?:extends\s+\w+)?\s*\{.*?\n\})`, name))
		if m := pattern.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	return content
}

// ApplyAIMerge splices an AI-produced merged region back into the full file
// content at location.
func ApplyAIMerge(content, location, mergedRegion string) string {
	if mergedRegion == "" {
		return content
	}
	original := ExtractLocationContent(content, location)
	if original != "" && original != content {
		return strings.ReplaceAll(content, original, mergedRegion)
	}
	return content
}
