package datamodel

import (
	"sort"
	"strings"
)

// LinkNodes rebuilds the Parent and Children links of a collection from path
// structure. It runs in two passes: first all nodes are indexed by path, then
// each node is linked to its longest existing ancestor prefix, so the order
// nodes were discovered in does not matter.
//
// Ancestors are looked up both with and without the trailing dot because
// sources differ in how they report object paths. Existing links are reset;
// Children come out sorted. Nodes whose ancestors are all absent keep an
// empty Parent.
func LinkNodes(nodes []*Node) {
	index, _ := IndexByPath(nodes)

	for _, n := range nodes {
		n.Parent = ""
		n.Children = n.Children[:0]
	}

	for _, n := range nodes {
		for _, prefix := range AncestorPrefixes(n.Path) {
			parent, ok := index[prefix]
			if !ok {
				parent, ok = index[strings.TrimSuffix(prefix, ".")]
			}
			if !ok || parent == n {
				continue
			}
			n.Parent = parent.Path
			parent.Children = append(parent.Children, n.Path)
			break
		}
	}

	for _, n := range nodes {
		sort.Strings(n.Children)
	}
}

// SortByPath orders a collection by path. Comparison results and reports use
// it to stay deterministic regardless of discovery order.
func SortByPath(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
}
