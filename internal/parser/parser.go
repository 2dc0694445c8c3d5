// Package parser finds the module specifiers of a JavaScript file and
// substitutes them in place.
//
// Parsing is done with tree-sitter. Substitution splices only the bytes of the
// string literal, so every other byte of the file (comments, a #! line,
// formatting, bindings) comes out exactly as it went in.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ErrSyntax is returned when tree-sitter cannot parse the file cleanly.
var ErrSyntax = errors.New("syntax error")

const (
	nodeImportStatement = "import_statement"
	nodeExportStatement = "export_statement"
	nodeString          = "string"
	fieldSource         = "source"
)

// importAssertion matches the legacy `from '...' assert {` attribute syntax,
// which the grammar only knows in its `with {` form.
var importAssertion = regexp.MustCompile(`(['"][ \t]*)assert([ \t]*\{)`)

// Kind represents the statement a specifier belongs to
type Kind int

const (
	// KindImport is an import declaration: import x from '...'
	KindImport Kind = iota
	// KindExport is a re-export: export { x } from '...'
	KindExport
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindExport:
		return "export"
	default:
		return "import"
	}
}

// Import is one module specifier occurrence.
type Import struct {
	// Specifier is the literal text between the quotes.
	Specifier string
	// Kind is the kind of statement holding the specifier.
	Kind Kind
	// Line is the 1-based line of the statement.
	Line int

	start uint32
	end   uint32
	quote byte
}

// Tree is a parsed file. It is not safe for concurrent use.
type Tree struct {
	source  []byte
	imports []*Import
	edits   map[*Import]string
}

// Parse parses JavaScript source and collects the top-level import and
// re-export statements in document order.
func Parse(ctx context.Context, source []byte) (*Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(javascript.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, normalizeAttributes(source))
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w near line %d", ErrSyntax, firstErrorLine(root))
	}

	t := &Tree{
		source: source,
		edits:  make(map[*Import]string),
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		var kind Kind
		switch stmt.Type() {
		case nodeImportStatement:
			kind = KindImport
		case nodeExportStatement:
			kind = KindExport
		default:
			continue
		}

		src := stmt.ChildByFieldName(fieldSource)
		if src == nil || src.Type() != nodeString {
			continue
		}
		start, end := src.StartByte(), src.EndByte()
		if end-start < 2 {
			continue
		}
		t.imports = append(t.imports, &Import{
			Specifier: string(source[start+1 : end-1]),
			Kind:      kind,
			Line:      int(stmt.StartPoint().Row) + 1,
			start:     start,
			end:       end,
			quote:     source[start],
		})
	}

	return t, nil
}

// normalizeAttributes replaces the assert keyword with "with" and two spaces
// for parsing only. The length is unchanged, so node offsets still index the
// original source.
func normalizeAttributes(source []byte) []byte {
	if !bytes.Contains(source, []byte("assert")) {
		return source
	}
	return importAssertion.ReplaceAll(source, []byte("${1}with  ${2}"))
}

func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPoint().Row) + 1
}

// Imports returns the specifiers in document order.
func (t *Tree) Imports() []*Import {
	return t.imports
}

// Replace sets the new specifier text of imp. The literal keeps its quote
// character.
func (t *Tree) Replace(imp *Import, specifier string) error {
	if _, ok := t.indexOf(imp); !ok {
		return fmt.Errorf("import %q does not belong to this tree", imp.Specifier)
	}
	t.edits[imp] = specifier
	return nil
}

func (t *Tree) indexOf(imp *Import) (int, bool) {
	for i, candidate := range t.imports {
		if candidate == imp {
			return i, true
		}
	}
	return -1, false
}

// Source returns the file with all replacements applied.
func (t *Tree) Source() []byte {
	if len(t.edits) == 0 {
		return t.source
	}

	edited := make([]*Import, 0, len(t.edits))
	for imp := range t.edits {
		edited = append(edited, imp)
	}
	sort.Slice(edited, func(i, j int) bool { return edited[i].start < edited[j].start })

	var b strings.Builder
	b.Grow(len(t.source))
	var last uint32
	for _, imp := range edited {
		b.Write(t.source[last:imp.start])
		b.WriteByte(imp.quote)
		b.WriteString(escape(t.edits[imp], imp.quote))
		b.WriteByte(imp.quote)
		last = imp.end
	}
	b.Write(t.source[last:])
	return []byte(b.String())
}

func escape(s string, quote byte) string {
	if !strings.ContainsAny(s, string(quote)+`\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == quote || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
