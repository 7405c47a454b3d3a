package semdiff

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// importPrefixes maps a lowercased file extension to the set of line
// prefixes that mark an import-like statement, per spec §4.F step 2.
var importPrefixes = map[string][]string{
	".py":  {"import ", "from "},
	".ts":  {"import "},
	".tsx": {"import "},
	".js":  {"import "},
	".jsx": {"import "},
	".go":  {"import "},
}

var functionStartPattern = regexp.MustCompile(`^\s*(function\s+\w|const\s+\w[\w]*\s*=|let\s+\w[\w]*\s*=|def\s+\w|class\s+\w|func\s+)`)

// Analyze classifies the diff between old and new content for path into an
// ordered, deterministic list of semantic changes.
func Analyze(path, oldText, newText string) []Change {
	if !utf8.ValidString(oldText) || !utf8.ValidString(newText) || strings.ContainsRune(oldText, 0) || strings.ContainsRune(newText, 0) {
		return []Change{{Type: ModifyOther}}
	}

	oldNorm := normalizeLF(oldText)
	newNorm := normalizeLF(newText)
	if oldNorm == newNorm {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	hunks := lineHunks(oldNorm, newNorm)

	var changes []Change
	for _, h := range hunks {
		changes = append(changes, classifyHunk(h, ext)...)
	}
	return changes
}

func normalizeLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// hunk groups a contiguous run of deleted and inserted lines from the diff.
type hunk struct {
	deleted  []string
	inserted []string
}

// lineHunks runs a line-mode diff and groups consecutive non-equal runs.
func lineHunks(oldText, newText string) []hunk {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var hunks []hunk
	var cur hunk
	flush := func() {
		if len(cur.deleted) > 0 || len(cur.inserted) > 0 {
			hunks = append(hunks, cur)
		}
		cur = hunk{}
	}

	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
		case diffmatchpatch.DiffDelete:
			cur.deleted = append(cur.deleted, splitLines(text)...)
		case diffmatchpatch.DiffInsert:
			cur.inserted = append(cur.inserted, splitLines(text)...)
		}
	}
	flush()
	return hunks
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func classifyHunk(h hunk, ext string) []Change {
	switch {
	case len(h.deleted) == 0 && len(h.inserted) > 0:
		return classifyAddition(h.inserted, ext)
	case len(h.inserted) == 0 && len(h.deleted) > 0:
		return classifyRemoval(h.deleted, ext)
	default:
		return []Change{{
			Type:          ModifyRegion,
			ContentBefore: strings.Join(h.deleted, "\n"),
			ContentAfter:  strings.Join(h.inserted, "\n"),
		}}
	}
}

func classifyAddition(lines []string, ext string) []Change {
	if isFunctionStart(lines[0]) {
		return []Change{{Type: AddFunction, ContentAfter: strings.Join(lines, "\n")}}
	}

	allImports := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !isImportLine(l, ext) {
			allImports = false
			break
		}
	}
	if allImports {
		var changes []Change
		for _, l := range lines {
			if strings.TrimSpace(l) == "" {
				continue
			}
			changes = append(changes, Change{Type: AddImport, ContentAfter: l})
		}
		return changes
	}

	return []Change{{Type: ModifyOther, ContentAfter: strings.Join(lines, "\n")}}
}

func classifyRemoval(lines []string, ext string) []Change {
	allImports := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !isImportLine(l, ext) {
			allImports = false
			break
		}
	}
	if allImports {
		var changes []Change
		for _, l := range lines {
			if strings.TrimSpace(l) == "" {
				continue
			}
			changes = append(changes, Change{Type: RemoveImport, ContentBefore: l})
		}
		return changes
	}
	return []Change{{Type: RemoveOther, ContentBefore: strings.Join(lines, "\n")}}
}

func isImportLine(line, ext string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	prefixes, ok := importPrefixes[ext]
	if !ok {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func isFunctionStart(line string) bool {
	return functionStartPattern.MatchString(line)
}
