package emit

import (
	"fmt"
	"strings"
)

// Marker lines delimiting the generated region of a flow file. Matched by
// exact string equality against whole lines.
const (
	BeginMarker = "# BEGIN GENERATED (cards2flow)"
	EndMarker   = "# END GENERATED (cards2flow)"
)

// README markers for the generated flow listing.
const (
	ReadmeBeginMarker = "<!-- BEGIN GENERATED FLOWS (cards2flow) -->"
	ReadmeEndMarker   = "<!-- END GENERATED FLOWS (cards2flow) -->"
)

// developerSpace is appended below the generated region when a file is
// created from scratch, so authors know where their content survives.
const developerSpace = "# Developer space below (preserved on regen)"

// CorruptionError reports malformed or duplicated markers in an existing
// output file. It is always fatal: the emitter never guesses which region it
// owns and never overwrites hand-authored content heuristically.
type CorruptionError struct {
	Path   string
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("generated-block markers corrupted in %s: %s", e.Path, e.Reason)
}

// WrapGenerated surrounds serialized content with the marker pair.
func WrapGenerated(content string) string {
	return BeginMarker + "\n" + strings.TrimRight(content, "\n") + "\n" + EndMarker
}

// NewFile renders the full contents of a freshly created output file:
// the generated block and a commented developer-space trailer.
func NewFile(block string) string {
	return block + "\n\n" + developerSpace + "\n"
}

// Merge replaces the generated region of existing file contents with block,
// leaving every byte outside the markers untouched. A file without markers
// gets the block prepended above its content. path is used for error
// reporting only.
func Merge(path, existing, block, begin, end string) (string, error) {
	lines := strings.Split(existing, "\n")

	beginAt, endAt := -1, -1
	for i, line := range lines {
		switch strings.TrimRight(line, "\r") {
		case begin:
			if beginAt != -1 {
				return "", &CorruptionError{Path: path, Reason: "duplicate begin marker"}
			}
			beginAt = i
		case end:
			if endAt != -1 {
				return "", &CorruptionError{Path: path, Reason: "duplicate end marker"}
			}
			endAt = i
		}
	}

	switch {
	case beginAt == -1 && endAt == -1:
		// Markers absent: the file predates generation. Claim a region at
		// the top and preserve the rest.
		return block + "\n" + existing, nil
	case beginAt == -1:
		return "", &CorruptionError{Path: path, Reason: "end marker without begin marker"}
	case endAt == -1:
		return "", &CorruptionError{Path: path, Reason: "begin marker without end marker"}
	case endAt < beginAt:
		return "", &CorruptionError{Path: path, Reason: "end marker precedes begin marker"}
	}

	var out []string
	out = append(out, lines[:beginAt]...)
	out = append(out, strings.Split(block, "\n")...)
	out = append(out, lines[endAt+1:]...)
	return strings.Join(out, "\n"), nil
}

// MergeGenerated applies Merge with the flow-file marker pair.
func MergeGenerated(path, existing, block string) (string, error) {
	return Merge(path, existing, block, BeginMarker, EndMarker)
}
