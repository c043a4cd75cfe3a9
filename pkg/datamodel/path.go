package datamodel

import "strings"

// RootPath is the root of every TR-181 data model.
const RootPath = "Device."

// IsObjectPath returns true if the path denotes a container, following the
// trailing-dot convention.
func IsObjectPath(path string) bool {
	return strings.HasSuffix(path, ".")
}

// Segments splits a path into its dot-separated segments. One trailing dot
// is the object marker and produces no segment; any other empty segment is
// preserved so callers can detect malformed paths like "Device..WiFi".
func Segments(path string) []string {
	trimmed := strings.TrimSuffix(path, ".")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ".")
}

// PathName returns the last segment of a path, the node's short name.
func PathName(path string) string {
	segs := Segments(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// AncestorPrefixes returns the dotted ancestor prefixes of a path ordered
// longest first, excluding the path itself:
//
//	AncestorPrefixes("Device.WiFi.Radio.1.Channel")
//	  → ["Device.WiFi.Radio.1.", "Device.WiFi.Radio.", "Device.WiFi.", "Device."]
//
// The graph builder takes the first prefix that resolves to a known node.
func AncestorPrefixes(path string) []string {
	segs := Segments(path)
	if len(segs) < 2 {
		return nil
	}
	prefixes := make([]string, 0, len(segs)-1)
	for i := len(segs) - 1; i >= 1; i-- {
		prefixes = append(prefixes, strings.Join(segs[:i], ".")+".")
	}
	return prefixes
}

// DirectParentPrefix returns the dotted prefix exactly one level above the
// path, or "" for a root-level path.
func DirectParentPrefix(path string) string {
	segs := Segments(path)
	if len(segs) < 2 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], ".") + "."
}

// IsDirectChild returns true if child extends the object path parentPath by
// exactly one segment.
func IsDirectChild(parentPath, child string) bool {
	if !strings.HasPrefix(child, parentPath) || child == parentPath {
		return false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(child, parentPath), ".")
	return rest != "" && !strings.Contains(rest, ".")
}

// IsInstanceNumber returns true if the segment is a numbered object
// instance such as the "1" in "Device.WiFi.Radio.1.".
func IsInstanceNumber(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
