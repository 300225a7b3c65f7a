package slash

import (
	"errors"
	"reflect"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// NodeKind tells where a node sits in the three-level tree
type NodeKind int

const (
	KindCommand    NodeKind = iota // top-level leaf
	KindGroup                      // top-level group
	KindSubGroup                   // group nested in a group
	KindSubCommand                 // leaf under a group or subgroup
)

func (k NodeKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindGroup:
		return "group"
	case KindSubGroup:
		return "subgroup"
	case KindSubCommand:
		return "subcommand"
	}
	return "unknown"
}

// OptionSpec is one typed option of a leaf, in handler parameter order
type OptionSpec struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Choices     []Choice

	enum   *Enum
	goType reflect.Type
	def    reflect.Value
}

// Default returns the value used when the option is omitted
func (o OptionSpec) Default() any {
	if !o.def.IsValid() {
		return nil
	}
	return o.def.Interface()
}

type binding struct {
	fn       reflect.Value
	factory  *Factory
	receiver bool
}

// Node is one command, group or subgroup of a compiled tree
type Node struct {
	Name              string
	Description       string
	Kind              NodeKind
	ID                string
	Options           []OptionSpec
	Children          []*Node
	DefaultPermission *bool

	parent   *Node
	children map[string]*Node
	handler  *binding
}

// IsLeaf reports whether the node is invocable
func (n *Node) IsLeaf() bool { return n.handler != nil }

// Child returns the direct child called name
func (n *Node) Child(name string) *Node {
	if n.children == nil {
		return nil
	}
	return n.children[name]
}

// Path returns the space separated invocation path, e.g. "math add"
func (n *Node) Path() string {
	parts := []string{n.Name}
	for p := n.parent; p != nil; p = p.parent {
		parts = append([]string{p.Name}, parts...)
	}
	return strings.Join(parts, " ")
}

func (n *Node) addChild(c *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	c.parent = n
	n.children[c.Name] = c
	n.Children = append(n.Children, c)
}

var errAlreadyBound = errors.New("tree identifiers already bound")

// Tree is the compiled command set of one registration scope.
// It is not modified after Bind; re-registration builds a new Tree.
type Tree struct {
	roots   []*Node
	byName  map[string]*Node
	byID    map[string]*Node
	unbound []string
	bound   bool
}

func newTree() *Tree {
	return &Tree{byName: make(map[string]*Node)}
}

// Commands returns the top-level nodes in declaration order
func (t *Tree) Commands() []*Node {
	out := make([]*Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// Command returns the top-level node called name
func (t *Tree) Command(name string) *Node {
	return t.byName[name]
}

// Walk visits every node depth first
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range t.roots {
		visit(r, 0)
	}
}

// Lookup resolves a server-assigned top-level id plus the nested option path to a leaf
func (t *Tree) Lookup(id string, path []string) (*Node, error) {
	node := t.byID[id]
	if node == nil {
		return nil, ErrUnregisteredCommand
	}
	for _, name := range path {
		next := node.Child(name)
		if next == nil {
			return nil, ErrUnregisteredCommand
		}
		node = next
	}
	if !node.IsLeaf() {
		return nil, ErrUnregisteredCommand
	}
	return node, nil
}

// Bind writes the identifiers returned by the platform onto the top-level nodes,
// matching by exact name. Returned entries with unknown names are ignored.
// It returns the names of nodes that received no identifier.
func (t *Tree) Bind(registered []*discordgo.ApplicationCommand) ([]string, error) {
	if t.bound {
		return nil, errAlreadyBound
	}
	t.bound = true
	t.byID = make(map[string]*Node, len(registered))
	for _, rc := range registered {
		if rc == nil {
			continue
		}
		node := t.byName[rc.Name]
		if node == nil || node.ID != "" {
			continue
		}
		node.ID = rc.ID
		t.byID[rc.ID] = node
	}
	for _, r := range t.roots {
		if r.ID == "" {
			t.unbound = append(t.unbound, r.Name)
		}
	}
	return t.Unbound(), nil
}

// Unbound returns the top-level names left without an identifier after Bind
func (t *Tree) Unbound() []string {
	out := make([]string, len(t.unbound))
	copy(out, t.unbound)
	return out
}

// Payload renders the tree as the bulk overwrite body
func (t *Tree) Payload() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(t.roots))
	for _, r := range t.roots {
		cmd := &discordgo.ApplicationCommand{
			Type:        discordgo.ChatApplicationCommand,
			Name:        r.Name,
			Description: r.Description,
		}
		if r.DefaultPermission != nil && !*r.DefaultPermission {
			none := int64(0)
			cmd.DefaultMemberPermissions = &none
		}
		if r.IsLeaf() {
			cmd.Options = optionPayload(r.Options)
		} else {
			cmd.Options = childPayload(r.Children)
		}
		out = append(out, cmd)
	}
	return out
}

func childPayload(children []*Node) []*discordgo.ApplicationCommandOption {
	out := make([]*discordgo.ApplicationCommandOption, 0, len(children))
	for _, c := range children {
		opt := &discordgo.ApplicationCommandOption{
			Name:        c.Name,
			Description: c.Description,
		}
		if c.Kind == KindSubGroup {
			opt.Type = discordgo.ApplicationCommandOptionSubCommandGroup
			opt.Options = childPayload(c.Children)
		} else {
			opt.Type = discordgo.ApplicationCommandOptionSubCommand
			opt.Options = optionPayload(c.Options)
		}
		out = append(out, opt)
	}
	return out
}

func optionPayload(specs []OptionSpec) []*discordgo.ApplicationCommandOption {
	out := make([]*discordgo.ApplicationCommandOption, 0, len(specs))
	for _, s := range specs {
		opt := &discordgo.ApplicationCommandOption{
			Type:        s.Type.wireType(),
			Name:        s.Name,
			Description: s.Description,
			Required:    s.Required,
		}
		for _, c := range s.Choices {
			opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  c.Name,
				Value: c.Value,
			})
		}
		out = append(out, opt)
	}
	return out
}
