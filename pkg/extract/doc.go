// Package extract turns a transport hook or a local document into a
// validated TR-181 node collection.
//
// Three extractors exist. [RecursiveExtractor] walks a namespace top-down
// for sources that only answer "names under this prefix" and tolerates
// partial failures, because such sources routinely time out mid-walk.
// [FlatExtractor] serves sources that return richer listings per call and
// enforces strict value typing, because such sources are expected to emit
// correctly typed values already. [FileStore] loads and saves operator
// requirement documents from JSON or YAML files and supports incremental
// editing of custom nodes.
//
// All extractors end in the same two steps: the node graph is linked from
// path structure, then the collection is validated. Warnings are logged
// and kept; whether validation errors abort is the Strict option.
package extract
