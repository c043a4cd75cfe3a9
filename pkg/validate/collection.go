package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
)

// Collection validates the structure of a node collection. Every extractor
// runs it as its final step.
//
// Checks, in order: an empty collection is valid with a warning; duplicate
// paths are errors; per node, the path must be well formed (empty segments
// are errors) and should follow TR-181 conventions (rooted at Device.,
// non-numeric segments capitalized; both warnings); per node, declared
// parent and children links should resolve to nodes in the collection
// (warnings, because sources legitimately omit synthetic object nodes).
func Collection(nodes []*datamodel.Node) *Result {
	result := NewResult()

	if len(nodes) == 0 {
		result.AddWarning("", "collection is empty")
		return result
	}

	index, duplicates := datamodel.IndexByPath(nodes)
	for _, path := range duplicates {
		result.AddError(path, "duplicate path")
	}

	for _, n := range nodes {
		checkPath(n.Path, result)
	}

	for _, n := range nodes {
		if n.Parent != "" && !resolves(index, n.Parent) {
			result.AddWarning(n.Path, fmt.Sprintf("parent %s not in collection", n.Parent))
		}
		for _, child := range n.Children {
			if !resolves(index, child) {
				result.AddWarning(n.Path, fmt.Sprintf("child %s not in collection", child))
			}
		}
	}

	return result
}

// checkPath validates one path's shape and naming conventions.
func checkPath(path string, result *Result) {
	if path == "" {
		result.AddError("", "empty path")
		return
	}

	if !strings.HasPrefix(path, datamodel.RootPath) {
		result.AddWarning(path, fmt.Sprintf("path does not start with %s", datamodel.RootPath))
	}

	for _, segment := range datamodel.Segments(path) {
		if segment == "" {
			result.AddError(path, "empty path segment")
			continue
		}
		if datamodel.IsInstanceNumber(segment) {
			continue
		}
		first, _ := utf8.DecodeRuneInString(segment)
		if !unicode.IsUpper(first) {
			result.AddWarning(path, fmt.Sprintf("segment %q does not start with an uppercase letter", segment))
		}
	}
}

// resolves reports whether a referenced path exists in the index, tolerating
// the trailing-dot ambiguity of object paths.
func resolves(index map[string]*datamodel.Node, path string) bool {
	if _, ok := index[path]; ok {
		return true
	}
	if strings.HasSuffix(path, ".") {
		_, ok := index[strings.TrimSuffix(path, ".")]
		return ok
	}
	_, ok := index[path+"."]
	return ok
}
