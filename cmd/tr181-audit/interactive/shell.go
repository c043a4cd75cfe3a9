// Package interactive provides the interactive data model browser for
// tr181-audit.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/tr181-tools/tr181-go/pkg/compare"
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/extract"
	"github.com/tr181-tools/tr181-go/pkg/report"
)

// Shell is a readline driven browser over an extracted data model. Object
// paths form the directory tree, parameters are the leaves.
type Shell struct {
	rl    *readline.Instance
	out   io.Writer
	label string

	nodes []*datamodel.Node
	index map[string]*datamodel.Node
	order []string

	// cwd is the current object path including its trailing dot, or ""
	// at the root above Device.
	cwd string
}

// New creates a shell over the node collection. label names the source in
// the status output.
func New(nodes []*datamodel.Node, label string) (*Shell, error) {
	s := newShell(nodes, label, io.Discard)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    s.completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s.rl = rl
	s.out = rl.Stdout()
	return s, nil
}

// newShell builds the shell state without a terminal.
func newShell(nodes []*datamodel.Node, label string, out io.Writer) *Shell {
	index, _ := datamodel.IndexByPath(nodes)
	order := make([]string, 0, len(index))
	for path := range index {
		order = append(order, path)
	}
	sort.Strings(order)
	return &Shell{out: out, label: label, nodes: nodes, index: index, order: order}
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()

	fmt.Fprintf(s.out, "Browsing %s (%d nodes). Type 'help' for commands.\n", s.label, len(s.order))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}

		if !s.handle(ctx, line) {
			return
		}
		s.rl.SetPrompt(s.prompt())
	}
}

// completer offers the command verbs and completes path arguments from
// the browsed model.
func (s *Shell) completer() readline.AutoCompleter {
	paths := readline.PcItemDynamic(func(string) []string { return s.candidates(false) })
	objects := readline.PcItemDynamic(func(string) []string { return s.candidates(true) })
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("ls", objects),
		readline.PcItem("list", objects),
		readline.PcItem("cd", objects),
		readline.PcItem("cat", paths),
		readline.PcItem("show", paths),
		readline.PcItem("find"),
		readline.PcItem("info"),
		readline.PcItem("save"),
		readline.PcItem("compare"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

// candidates lists the completable paths, each in absolute form and,
// below the current object, in the form relative to it.
func (s *Shell) candidates(objectsOnly bool) []string {
	out := make([]string, 0, len(s.order))
	for _, path := range s.order {
		if objectsOnly && !s.index[path].IsObject {
			continue
		}
		out = append(out, path)
		if s.cwd != "" && path != s.cwd && strings.HasPrefix(path, s.cwd) {
			out = append(out, strings.TrimPrefix(path, s.cwd))
		}
	}
	return out
}

// handle executes one command line. It returns false when the shell
// should exit.
func (s *Shell) handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "ls", "list":
		s.cmdLs(args)

	case "cd":
		s.cmdCd(args)

	case "cat", "show":
		s.cmdCat(args)

	case "find", "f":
		s.cmdFind(args)

	case "info":
		s.cmdInfo()

	case "save":
		s.cmdSave(args)

	case "compare":
		s.cmdCompare(ctx, args)

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) prompt() string {
	if s.cwd == "" {
		return "/> "
	}
	return s.cwd + "> "
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Commands:
  ls [object]       List the children of the current or named object
  cd <object>       Change into an object (".." up, "/" to the root)
  cat <path>        Show one node in detail
  find <text>       List paths containing the text
  info              Show a collection summary
  save <file>       Save the model to a document (.json or .yaml)
  compare <file>    Compare the model against a saved document
  help              Show this help
  exit              Leave the shell
`)
}

// cmdLs lists the direct children of the current or named object.
func (s *Shell) cmdLs(args []string) {
	base := s.cwd
	if len(args) > 0 {
		resolved, ok := s.resolveObject(args[0])
		if !ok {
			fmt.Fprintf(s.out, "No such object: %s\n", args[0])
			return
		}
		base = resolved
	}

	count := 0
	for _, path := range s.order {
		if !s.isDirectChildOf(base, path) {
			continue
		}
		count++
		node := s.index[path]
		name := strings.TrimPrefix(path, base)
		if node.IsObject {
			fmt.Fprintf(s.out, "  %-44s <object>\n", name)
			continue
		}
		line := fmt.Sprintf("  %-44s %s %s", name, node.Type, node.Access)
		if node.HasValue() {
			line += fmt.Sprintf(" = %v", node.Value)
		}
		fmt.Fprintln(s.out, line)
	}
	if count == 0 {
		fmt.Fprintln(s.out, "  (empty)")
	}
}

// cmdCd changes the current object.
func (s *Shell) cmdCd(args []string) {
	if len(args) == 0 || args[0] == "/" {
		s.cwd = ""
		return
	}
	if args[0] == ".." {
		if s.cwd != "" {
			s.cwd = datamodel.DirectParentPrefix(s.cwd)
		}
		return
	}
	resolved, ok := s.resolveObject(args[0])
	if !ok {
		fmt.Fprintf(s.out, "No such object: %s\n", args[0])
		return
	}
	s.cwd = resolved
}

// cmdCat prints one node in detail.
func (s *Shell) cmdCat(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: cat <path>")
		return
	}
	node, ok := s.resolveNode(args[0])
	if !ok {
		fmt.Fprintf(s.out, "No such node: %s\n", args[0])
		return
	}

	fmt.Fprintf(s.out, "Path:        %s\n", node.Path)
	if node.IsObject {
		fmt.Fprintf(s.out, "Kind:        object (%d children)\n", len(node.Children))
	} else {
		fmt.Fprintf(s.out, "Type:        %s\n", node.Type)
		fmt.Fprintf(s.out, "Access:      %s\n", node.Access)
		if node.HasValue() {
			fmt.Fprintf(s.out, "Value:       %v\n", node.Value)
		}
	}
	if node.Description != "" {
		fmt.Fprintf(s.out, "Description: %s\n", node.Description)
	}
	if node.IsCustom {
		fmt.Fprintln(s.out, "Custom:      yes")
	}
	if r := node.Range; r != nil {
		if r.MinValue != nil {
			fmt.Fprintf(s.out, "Min:         %v\n", *r.MinValue)
		}
		if r.MaxValue != nil {
			fmt.Fprintf(s.out, "Max:         %v\n", *r.MaxValue)
		}
		if len(r.AllowedValues) > 0 {
			fmt.Fprintf(s.out, "Allowed:     %s\n", strings.Join(r.AllowedValues, ", "))
		}
	}
	for _, ev := range node.Events {
		fmt.Fprintf(s.out, "Event:       %s\n", ev.Name)
	}
	for _, fn := range node.Functions {
		fmt.Fprintf(s.out, "Function:    %s\n", fn.Name)
	}
}

// cmdFind lists all paths containing the given text, case-insensitively.
func (s *Shell) cmdFind(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: find <text>")
		return
	}
	needle := strings.ToLower(args[0])
	count := 0
	for _, path := range s.order {
		if strings.Contains(strings.ToLower(path), needle) {
			fmt.Fprintf(s.out, "  %s\n", path)
			count++
		}
	}
	fmt.Fprintf(s.out, "%d match(es)\n", count)
}

// cmdInfo prints a summary of the collection.
func (s *Shell) cmdInfo() {
	objects, params, custom := 0, 0, 0
	for _, path := range s.order {
		n := s.index[path]
		if n.IsObject {
			objects++
		} else {
			params++
		}
		if n.IsCustom {
			custom++
		}
	}
	fmt.Fprintf(s.out, "Source:  %s\n", s.label)
	fmt.Fprintf(s.out, "Nodes:   %d (%d objects, %d parameters)\n", len(s.order), objects, params)
	if custom > 0 {
		fmt.Fprintf(s.out, "Custom:  %d\n", custom)
	}
}

// cmdSave writes the model to a document file.
func (s *Shell) cmdSave(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: save <file>")
		return
	}
	doc := extract.NewFileStore(args[0])
	if err := doc.SetNodes(s.nodes); err != nil {
		fmt.Fprintf(s.out, "Save failed: %v\n", err)
		return
	}
	if err := doc.Save(); err != nil {
		fmt.Fprintf(s.out, "Save failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Saved %d nodes to %s\n", len(s.nodes), args[0])
}

// cmdCompare compares the model against a saved document. The browsed
// model is source 1.
func (s *Shell) cmdCompare(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: compare <file>")
		return
	}
	other, err := extract.NewFileStore(args[0]).Extract(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Compare failed: %v\n", err)
		return
	}
	result := compare.Compare(s.nodes, other)
	if err := report.NewTextWriter(s.out, false).WriteComparison(result); err != nil {
		fmt.Fprintf(s.out, "Compare failed: %v\n", err)
	}
}

// resolveObject resolves a user supplied name to an object path, trying
// the current directory first and then the absolute form.
func (s *Shell) resolveObject(arg string) (string, bool) {
	for _, c := range []string{s.cwd + arg + ".", s.cwd + arg, arg + ".", arg} {
		if n, ok := s.index[c]; ok && n.IsObject {
			return n.Path, true
		}
	}
	return "", false
}

// resolveNode resolves a user supplied name to any node.
func (s *Shell) resolveNode(arg string) (*datamodel.Node, bool) {
	for _, c := range []string{s.cwd + arg, arg, s.cwd + arg + ".", arg + "."} {
		if n, ok := s.index[c]; ok {
			return n, true
		}
	}
	return nil, false
}

// isDirectChildOf reports whether path sits exactly one level below base.
// The empty base is the root above Device.
func (s *Shell) isDirectChildOf(base, path string) bool {
	if base == "" {
		return len(datamodel.Segments(path)) == 1
	}
	return datamodel.IsDirectChild(base, path)
}
