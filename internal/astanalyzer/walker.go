package astanalyzer

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"thermocode/internal/types"
)

// walker accumulates extracted structure while traversing one parse tree.
// Classes (Go structs) and their methods are assembled separately because
// tree-sitter reports method_declaration nodes at the top level, keyed by
// receiver type name, not nested under their struct's type_declaration.
type walker struct {
	content []byte

	imports    []string
	functions  []types.FunctionInfo
	packageDoc string

	classes          map[string]*types.ClassInfo
	classOrder       []string
	classMethodCount map[string]int
	functionLines    map[string]int

	lastComment string
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.content)
}

func (w *walker) walk(root *sitter.Node) {
	w.classes = make(map[string]*types.ClassInfo)
	w.classMethodCount = make(map[string]int)
	w.functionLines = make(map[string]int)

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "comment":
			w.lastComment = strings.TrimSpace(strings.TrimPrefix(w.text(n), "//"))
			if w.packageDoc == "" {
				w.packageDoc = w.lastComment
			}
		case "import_spec":
			if pathNode := n.ChildByFieldName("path"); pathNode != nil {
				if unquoted, err := strconv.Unquote(w.text(pathNode)); err == nil {
					w.imports = append(w.imports, unquoted)
				}
			}
		case "type_spec":
			w.visitTypeSpec(n)
		case "function_declaration":
			w.visitFunction(n, "")
		case "method_declaration":
			w.visitMethod(n)
		}

		if n.Type() != "comment" {
			w.lastComment = ""
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(root)
}

func (w *walker) visitTypeSpec(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	typeNode := n.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil || typeNode.Type() != "struct_type" {
		return
	}
	name := w.text(nameNode)

	var bases []string
	fieldList := typeNode.ChildByFieldName("body")
	if fieldList != nil {
		for i := 0; i < int(fieldList.NamedChildCount()); i++ {
			field := fieldList.NamedChild(i)
			if field.Type() != "field_declaration" {
				continue
			}
			// An embedded field has a type but no field name child.
			if field.ChildByFieldName("name") == nil {
				if typeChild := field.ChildByFieldName("type"); typeChild != nil {
					bases = append(bases, w.text(typeChild))
				}
			}
		}
	}

	cls := &types.ClassInfo{Name: name, Line: int(n.StartPoint().Row) + 1, Bases: bases}
	w.classes[name] = cls
	w.classOrder = append(w.classOrder, name)
}

func (w *walker) visitFunction(n *sitter.Node, receiverType string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)

	var args []string
	if paramsNode := n.ChildByFieldName("parameters"); paramsNode != nil {
		for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
			param := paramsNode.NamedChild(i)
			if nameField := param.ChildByFieldName("name"); nameField != nil {
				args = append(args, w.text(nameField))
			}
		}
	}

	isAsync := false
	if len(args) > 0 {
		if typeNode := w.firstParamType(n); typeNode != "" && strings.Contains(typeNode, "context.Context") {
			isAsync = true
		}
	}

	fullName := name
	if receiverType != "" {
		fullName = receiverType + "." + name
	}

	w.functions = append(w.functions, types.FunctionInfo{
		Name:      fullName,
		Line:      int(n.StartPoint().Row) + 1,
		Args:      args,
		IsPrivate: len(name) > 0 && strings.ToLower(name[:1]) == name[:1],
		IsAsync:   isAsync,
	})
	w.functionLines[fullName] = int(n.EndPoint().Row) - int(n.StartPoint().Row) + 1
}

func (w *walker) firstParamType(n *sitter.Node) string {
	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil || paramsNode.NamedChildCount() == 0 {
		return ""
	}
	first := paramsNode.NamedChild(0)
	if typeNode := first.ChildByFieldName("type"); typeNode != nil {
		return w.text(typeNode)
	}
	return ""
}

func (w *walker) visitMethod(n *sitter.Node) {
	receiverNode := n.ChildByFieldName("receiver")
	receiverType := ""
	if receiverNode != nil {
		receiverType = receiverTypeName(w.text(receiverNode))
	}
	w.visitFunction(n, receiverType)

	nameNode := n.ChildByFieldName("name")
	if nameNode != nil && receiverType != "" {
		w.classMethodCount[receiverType]++
		if cls, ok := w.classes[receiverType]; ok {
			cls.Methods = append(cls.Methods, w.text(nameNode))
		}
	}
}

// receiverTypeName strips the receiver variable name and pointer star,
// e.g. "(l *Lattice)" -> "Lattice".
func receiverTypeName(receiver string) string {
	r := strings.Trim(receiver, "()")
	fields := strings.Fields(r)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "*")
}

func (w *walker) classesWithMethods() []types.ClassInfo {
	out := make([]types.ClassInfo, 0, len(w.classOrder))
	for _, name := range w.classOrder {
		out = append(out, *w.classes[name])
	}
	return out
}
