package compiler

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set"
)

// Errors reported when symbol information does not match the AST. They
// signal a contract violation by the front end, not a user error.
var (
	ErrUnknownClass  = errors.New("unknown class")
	ErrUnknownMember = errors.New("unknown member")
	ErrCyclicClass   = errors.New("cyclic class hierarchy")
)

// ---------------------------------------------------------------------------
// Hierarchy: child -> parent graph over class names
// ---------------------------------------------------------------------------

// Hierarchy is the class-hierarchy graph. The code generator only reads it.
type Hierarchy struct {
	parents map[string]string
}

// NewHierarchy builds the graph from class declarations.
func NewHierarchy(classes []*ClassDecl) *Hierarchy {
	h := &Hierarchy{parents: make(map[string]string)}
	for _, c := range classes {
		h.parents[c.Name] = c.Parent
	}
	return h
}

// Parent returns the declared parent of name, or "" for a root class.
func (h *Hierarchy) Parent(name string) string {
	return h.parents[name]
}

// Contains reports whether name is a node of the graph.
func (h *Hierarchy) Contains(name string) bool {
	_, ok := h.parents[name]
	return ok
}

// Ancestors returns name followed by its parents, nearest first.
func (h *Hierarchy) Ancestors(name string) ([]string, error) {
	seen := mapset.NewSet()
	var chain []string
	for cur := name; cur != ""; cur = h.parents[cur] {
		if !seen.Add(cur) {
			return nil, fmt.Errorf("%w: %s", ErrCyclicClass, name)
		}
		if !h.Contains(cur) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, cur)
		}
		chain = append(chain, cur)
	}
	return chain, nil
}

// IsSubclass reports whether child equals or inherits from ancestor.
func (h *Hierarchy) IsSubclass(child, ancestor string) bool {
	chain, err := h.Ancestors(child)
	if err != nil {
		return false
	}
	for _, c := range chain {
		if c == ancestor {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// ClassTable: per-class member tables
// ---------------------------------------------------------------------------

// MemberKind tags the outcome of a member lookup.
type MemberKind int

const (
	MemberAbsent MemberKind = iota
	MemberField
	MemberMethod
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberMethod:
		return "method"
	}
	return "absent"
}

// Member is the result of looking a name up in a class.
type Member struct {
	Kind   MemberKind
	Owner  string      // class declaring the member
	Type   Type        // field type, or FptrType for methods
	Method *MethodDecl // set for MemberMethod
}

// ClassTable answers symbol queries over a program's classes.
type ClassTable struct {
	classes   map[string]*ClassDecl
	hierarchy *Hierarchy
}

// NewClassTable indexes the classes of prog.
func NewClassTable(prog *Program) *ClassTable {
	t := &ClassTable{
		classes:   make(map[string]*ClassDecl),
		hierarchy: NewHierarchy(prog.Classes),
	}
	for _, c := range prog.Classes {
		t.classes[c.Name] = c
	}
	return t
}

// Hierarchy returns the class-hierarchy graph.
func (t *ClassTable) Hierarchy() *Hierarchy {
	return t.hierarchy
}

// Class returns the declaration of name.
func (t *ClassTable) Class(name string) (*ClassDecl, bool) {
	c, ok := t.classes[name]
	return c, ok
}

// LookupMember resolves name in class and its ancestors. A missing member
// yields MemberAbsent with a nil error; a missing class is an error.
func (t *ClassTable) LookupMember(class, name string) (Member, error) {
	if _, ok := t.classes[class]; !ok {
		return Member{}, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	chain, err := t.hierarchy.Ancestors(class)
	if err != nil {
		return Member{}, err
	}
	for _, owner := range chain {
		c := t.classes[owner]
		if f := c.Field(name); f != nil {
			return Member{Kind: MemberField, Owner: owner, Type: f.Type}, nil
		}
		if m := c.Method(name); m != nil {
			return Member{Kind: MemberMethod, Owner: owner, Type: MethodType(m), Method: m}, nil
		}
	}
	return Member{Kind: MemberAbsent}, nil
}

// Constructor returns the explicit constructor of class, or nil when the
// class only has the synthesized zero-argument one.
func (t *ClassTable) Constructor(class string) (*MethodDecl, error) {
	c, ok := t.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return c.Constructor, nil
}

// MethodType is the function pointer type of m.
func MethodType(m *MethodDecl) *FptrType {
	params := make([]Type, len(m.Args))
	for i, a := range m.Args {
		params[i] = a.Type
	}
	ret := m.ReturnType
	if ret == nil {
		ret = Null
	}
	return &FptrType{Params: params, Return: ret}
}
