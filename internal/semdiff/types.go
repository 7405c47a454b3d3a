// Package semdiff classifies a (before, after) pair for a single file into
// an ordered list of semantic changes usable as merge instructions.
package semdiff

// ChangeType enumerates the closed set of semantic change classifications.
type ChangeType string

const (
	AddImport    ChangeType = "add_import"
	AddFunction  ChangeType = "add_function"
	ModifyRegion ChangeType = "modify_region"
	ModifyOther  ChangeType = "modify_other"
	RemoveImport ChangeType = "remove_import"
	RemoveOther  ChangeType = "remove_other"
)

// Change is a single categorized (before, after) pair. ContentBefore and
// ContentAfter are LF-normalized verbatim excerpts used as merge anchors.
type Change struct {
	Type          ChangeType
	ContentBefore string
	ContentAfter  string
	Location      string
}
