package extract

import (
	"regexp"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// typeDecl is one class/interface/enum/record declaration with its 1-based
// line range.
type typeDecl struct {
	name  string
	start int
	end   int
}

// typeIndex resolves a marker line to its owning type declaration.
type typeIndex struct {
	decls []typeDecl
}

var typeDeclKinds = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

// fallback for sources tree-sitter cannot parse into any type declaration
var typeDeclRe = regexp.MustCompile(`^\s*(?:[\w@]+\s+)*(?:class|interface|enum|record)\s+(\w+)`)

// indexTypes parses a Java source file and collects its type declarations.
// When the parse yields nothing (malformed or non-Java input), a line-based
// regex scan is used instead; those declarations have no end line, so only
// nearest-declaration resolution applies to them.
func indexTypes(src []byte, lines []string) *typeIndex {
	ix := &typeIndex{}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sitter.NewLanguage(java.Language()))

	tree := parser.Parse(src, nil)
	if tree != nil {
		defer tree.Close()
		collectTypeDecls(tree.RootNode(), src, ix)
	}

	if len(ix.decls) == 0 {
		for i, line := range lines {
			if m := typeDeclRe.FindStringSubmatch(line); m != nil {
				ix.decls = append(ix.decls, typeDecl{name: m[1], start: i + 1, end: i + 1})
			}
		}
	}
	return ix
}

func collectTypeDecls(node *sitter.Node, src []byte, ix *typeIndex) {
	if typeDeclKinds[node.Kind()] {
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			ix.decls = append(ix.decls, typeDecl{
				name:  string(src[nameNode.StartByte():nameNode.EndByte()]),
				start: int(node.StartPosition().Row) + 1,
				end:   int(node.EndPosition().Row) + 1,
			})
		}
	}
	for i := range node.ChildCount() {
		collectTypeDecls(node.Child(i), src, ix)
	}
}

// Resolve returns the type declaration owning the given 1-based line: the
// smallest enclosing declaration, or failing that the nearest declaration
// starting after the line (annotations sit above the type they annotate),
// or the nearest preceding one.
func (ix *typeIndex) Resolve(line int) (typeDecl, bool) {
	var enclosing *typeDecl
	for i := range ix.decls {
		d := &ix.decls[i]
		if d.start <= line && line <= d.end {
			if enclosing == nil || d.end-d.start < enclosing.end-enclosing.start {
				enclosing = d
			}
		}
	}
	if enclosing != nil {
		return *enclosing, true
	}

	var following *typeDecl
	for i := range ix.decls {
		d := &ix.decls[i]
		if d.start > line && (following == nil || d.start < following.start) {
			following = d
		}
	}
	if following != nil {
		return *following, true
	}

	var preceding *typeDecl
	for i := range ix.decls {
		d := &ix.decls[i]
		if d.start < line && (preceding == nil || d.start > preceding.start) {
			preceding = d
		}
	}
	if preceding != nil {
		return *preceding, true
	}
	return typeDecl{}, false
}
