package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/faults"
)

// DocumentVersion is the store file format version this package reads and
// writes. Documents without a version field are accepted and rewritten
// with the current version on save.
const DocumentVersion = "1.0"

// Metadata describes a stored collection. Node counts are recomputed on
// every save.
type Metadata struct {
	Created     time.Time `json:"created" yaml:"created"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	TotalNodes  int       `json:"total_nodes" yaml:"total_nodes"`
	CustomNodes int       `json:"custom_nodes" yaml:"custom_nodes"`
}

// Document is the on-disk shape of a stored collection.
type Document struct {
	Version  string            `json:"version" yaml:"version"`
	Metadata Metadata          `json:"metadata" yaml:"metadata"`
	Nodes    []*datamodel.Node `json:"nodes" yaml:"nodes"`
}

// FileStore reads and writes node collections as JSON or YAML documents,
// chosen by the path extension. A missing or empty file reads as an empty
// collection, so a store can be created by saving into it. FileStore
// satisfies Extractor, letting a file stand in for a live device on either
// side of a comparison.
type FileStore struct {
	mu     sync.Mutex
	path   string
	nodes  []*datamodel.Node
	meta   Metadata
	loaded bool
}

// NewFileStore creates a store over the given path. The file is read
// lazily on first access.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the store's file path.
func (s *FileStore) Path() string { return s.path }

// Extract returns the stored collection.
func (s *FileStore) Extract(ctx context.Context) ([]*datamodel.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}

	out := make([]*datamodel.Node, len(s.nodes))
	copy(out, s.nodes)
	return out, nil
}

// SetNodes replaces the stored collection. The replacement is persisted by
// the next Save; document metadata carries over.
func (s *FileStore) SetNodes(nodes []*datamodel.Node) error {
	if _, dups := datamodel.IndexByPath(nodes); len(dups) > 0 {
		return faults.Validation(fmt.Sprintf("collection contains duplicate paths: %s", strings.Join(dups, ", ")), nil).
			WithOperation("file-store", "set-nodes")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	s.nodes = append([]*datamodel.Node(nil), nodes...)
	datamodel.LinkNodes(s.nodes)
	return nil
}

// AddCustomNode adds a hand-authored node to the collection. The node is
// marked custom regardless of its incoming flag, must be rooted at
// Device., and must not collide with an existing path.
func (s *FileStore) AddCustomNode(node *datamodel.Node) error {
	if node == nil {
		return faults.Validation("cannot add a nil node", nil)
	}
	if !strings.HasPrefix(node.Path, datamodel.RootPath) {
		return faults.Validation(fmt.Sprintf("custom node path %q is not rooted at %s", node.Path, datamodel.RootPath), nil).
			WithSuggestions("Prefix the path with " + datamodel.RootPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	for _, n := range s.nodes {
		if n.Path == node.Path {
			return faults.Validation(fmt.Sprintf("node %s already exists", node.Path), nil)
		}
	}

	node.IsCustom = true
	s.nodes = append(s.nodes, node)
	datamodel.LinkNodes(s.nodes)
	return nil
}

// RemoveNode removes the node with the given path and reports whether one
// was there.
func (s *FileStore) RemoveNode(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return false, err
	}

	for i, n := range s.nodes {
		if n.Path == path {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			datamodel.LinkNodes(s.nodes)
			return true, nil
		}
	}
	return false, nil
}

// CustomNodes returns the stored nodes that were added by hand.
func (s *FileStore) CustomNodes() ([]*datamodel.Node, error) {
	return s.filter(true)
}

// StandardNodes returns the stored nodes that came from a device.
func (s *FileStore) StandardNodes() ([]*datamodel.Node, error) {
	return s.filter(false)
}

func (s *FileStore) filter(custom bool) ([]*datamodel.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}

	var out []*datamodel.Node
	for _, n := range s.nodes {
		if n.IsCustom == custom {
			out = append(out, n)
		}
	}
	return out, nil
}

// SetDescription sets the document description written by the next Save.
func (s *FileStore) SetDescription(desc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.meta.Description = desc
	return nil
}

// Metadata returns the document metadata as of the last load or save.
func (s *FileStore) Metadata() (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return Metadata{}, err
	}
	return s.meta, nil
}

// Save writes the collection to the store path, creating parent
// directories as needed. The document goes to a temporary file first and
// is renamed into place, so a failed write leaves the previous file
// intact. The creation timestamp is set on first save and preserved after.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	if _, dups := datamodel.IndexByPath(s.nodes); len(dups) > 0 {
		return faults.Validation(fmt.Sprintf("collection contains duplicate paths: %s", strings.Join(dups, ", ")), nil).
			WithOperation("file-store", "save")
	}

	if s.meta.Created.IsZero() {
		s.meta.Created = time.Now().UTC()
	}
	s.meta.TotalNodes = len(s.nodes)
	s.meta.CustomNodes = 0
	for _, n := range s.nodes {
		if n.IsCustom {
			s.meta.CustomNodes++
		}
	}

	doc := Document{Version: DocumentVersion, Metadata: s.meta, Nodes: s.nodes}

	var (
		data []byte
		err  error
	)
	if s.yamlFormat() {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// load reads the store file once. The caller holds the mutex.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.loaded = true
		return nil
	}

	var doc Document
	if s.yamlFormat() {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return faults.Validation(fmt.Sprintf("parsing %s failed", s.path), err).
			WithOperation("file-store", "load")
	}

	if doc.Version != "" && doc.Version != DocumentVersion {
		return faults.Validation(fmt.Sprintf("unsupported document version %q in %s, want %q", doc.Version, s.path, DocumentVersion), nil).
			WithOperation("file-store", "load")
	}
	if _, dups := datamodel.IndexByPath(doc.Nodes); len(dups) > 0 {
		return faults.Validation(fmt.Sprintf("%s contains duplicate paths: %s", s.path, strings.Join(dups, ", ")), nil).
			WithOperation("file-store", "load")
	}

	datamodel.LinkNodes(doc.Nodes)
	s.nodes = doc.Nodes
	s.meta = doc.Metadata
	s.loaded = true
	return nil
}

func (s *FileStore) yamlFormat() bool {
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
