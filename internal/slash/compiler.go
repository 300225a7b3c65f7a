package slash

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keepmind9/slashkit/pkg/constants"
)

var (
	contextType = reflect.TypeOf((*Context)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()

	userType    = reflect.TypeOf((*discordgo.User)(nil))
	memberType  = reflect.TypeOf((*discordgo.Member)(nil))
	channelType = reflect.TypeOf((*discordgo.Channel)(nil))
	roleType    = reflect.TypeOf((*discordgo.Role)(nil))

	namePattern = regexp.MustCompile(`^[-_\p{L}\p{N}]{1,32}$`)
)

// Compile validates the declarations of one scope and builds its tree.
// Any error rejects the whole scope; no partial tree is returned.
func Compile(ctx context.Context, modules []*Module) (*Tree, error) {
	c := &compiler{ctx: ctx, tree: newTree()}
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := c.module(m); err != nil {
			return nil, err
		}
	}
	if len(c.tree.roots) > constants.MaxTopLevelCommands {
		return nil, compileErr(ErrTooMany, "scope", "%d top-level commands (max %d)",
			len(c.tree.roots), constants.MaxTopLevelCommands)
	}
	return c.tree, nil
}

type compiler struct {
	ctx  context.Context
	tree *Tree
}

func (c *compiler) module(m *Module) error {
	for i := range m.Commands {
		node, err := c.leaf(&m.Commands[i], KindCommand, m.Factory, "")
		if err != nil {
			return err
		}
		if err := c.addRoot(node); err != nil {
			return err
		}
	}
	for i := range m.Groups {
		node, err := c.group(&m.Groups[i], KindGroup, m.Factory, "")
		if err != nil {
			return err
		}
		if err := c.addRoot(node); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) addRoot(n *Node) error {
	if _, dup := c.tree.byName[n.Name]; dup {
		return compileErr(ErrDuplicateName, n.Name, "top-level command declared twice")
	}
	c.tree.byName[n.Name] = n
	c.tree.roots = append(c.tree.roots, n)
	return nil
}

func (c *compiler) group(g *Group, kind NodeKind, inherited *Factory, prefix string) (*Node, error) {
	name, err := checkName(g.Name, g.Description, prefix)
	if err != nil {
		return nil, err
	}
	path := joinPath(prefix, name)

	if len(g.Commands) > 0 && len(g.SubGroups) > 0 {
		return nil, compileErr(ErrAmbiguousGroupShape, path, "")
	}
	if len(g.Commands) == 0 && len(g.SubGroups) == 0 {
		return nil, compileErr(ErrAmbiguousGroupShape, path, "group declares neither subcommands nor subgroups")
	}
	if kind == KindSubGroup && len(g.SubGroups) > 0 {
		return nil, compileErr(ErrNestingTooDeep, path, "")
	}
	if len(g.Commands)+len(g.SubGroups) > constants.MaxOptions {
		return nil, compileErr(ErrTooMany, path, "more than %d children", constants.MaxOptions)
	}

	factory := inherited
	if g.Factory != nil {
		factory = g.Factory
	}

	node := &Node{
		Name:              name,
		Description:       g.Description,
		Kind:              kind,
		DefaultPermission: g.DefaultPermission,
	}
	for i := range g.Commands {
		child, err := c.leaf(&g.Commands[i], KindSubCommand, factory, path)
		if err != nil {
			return nil, err
		}
		if node.Child(child.Name) != nil {
			return nil, compileErr(ErrDuplicateName, joinPath(path, child.Name), "subcommand declared twice")
		}
		node.addChild(child)
	}
	for i := range g.SubGroups {
		child, err := c.group(&g.SubGroups[i], KindSubGroup, factory, path)
		if err != nil {
			return nil, err
		}
		if node.Child(child.Name) != nil {
			return nil, compileErr(ErrDuplicateName, joinPath(path, child.Name), "subgroup declared twice")
		}
		node.addChild(child)
	}
	return node, nil
}

func (c *compiler) leaf(cmd *Command, kind NodeKind, factory *Factory, prefix string) (*Node, error) {
	name, err := checkName(cmd.Name, cmd.Description, prefix)
	if err != nil {
		return nil, err
	}
	path := joinPath(prefix, name)

	b, paramTypes, err := bindHandler(cmd.Handler, factory, len(cmd.Params), path)
	if err != nil {
		return nil, err
	}

	node := &Node{
		Name:              name,
		Description:       cmd.Description,
		Kind:              kind,
		DefaultPermission: cmd.DefaultPermission,
		handler:           b,
	}
	seen := make(map[string]bool, len(cmd.Params))
	for i := range cmd.Params {
		spec, err := c.option(&cmd.Params[i], paramTypes[i], path)
		if err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, compileErr(ErrDuplicateName, joinPath(path, spec.Name), "option declared twice")
		}
		seen[spec.Name] = true
		node.Options = append(node.Options, spec)
	}
	return node, nil
}

// bindHandler checks the handler shape and returns the Go types of its option parameters
func bindHandler(handler any, factory *Factory, params int, path string) (*binding, []reflect.Type, error) {
	fn := reflect.ValueOf(handler)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, nil, compileErr(ErrInvalidHandlerSignature, path, "handler must be a func")
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, nil, compileErr(ErrInvalidHandlerSignature, path, "handler must not be variadic")
	}
	if ft.NumOut() != 1 || ft.Out(0) != errorType {
		return nil, nil, compileErr(ErrInvalidHandlerSignature, path, "handler must return exactly one error")
	}

	b := &binding{fn: fn, factory: factory}
	offset := 0
	if ft.NumIn() > 0 && ft.In(0) != contextType {
		if factory == nil {
			return nil, nil, compileErr(ErrInvalidHandlerSignature, path, "first parameter must be *slash.Context")
		}
		if !factory.typ.AssignableTo(ft.In(0)) {
			return nil, nil, compileErr(ErrInvalidHandlerSignature, path,
				"receiver %s does not accept factory value %s", ft.In(0), factory.typ)
		}
		b.receiver = true
		offset = 1
	}
	if ft.NumIn() <= offset || ft.In(offset) != contextType {
		return nil, nil, compileErr(ErrInvalidHandlerSignature, path, "first parameter must be *slash.Context")
	}
	if got := ft.NumIn() - offset - 1; got != params {
		return nil, nil, compileErr(ErrInvalidHandlerSignature, path,
			"handler takes %d options but %d are declared", got, params)
	}

	types := make([]reflect.Type, 0, params)
	for i := offset + 1; i < ft.NumIn(); i++ {
		types = append(types, ft.In(i))
	}
	return b, types, nil
}

func (c *compiler) option(p *Param, goType reflect.Type, prefix string) (OptionSpec, error) {
	name, err := checkName(p.Name, p.Description, prefix)
	if err != nil {
		return OptionSpec{}, err
	}
	path := joinPath(prefix, name)

	typ, err := inferType(p, goType)
	if err != nil {
		return OptionSpec{}, compileErr(ErrUnsupportedParameterType, path, "%v", err)
	}

	spec := OptionSpec{
		Name:        name,
		Description: p.Description,
		Type:        typ,
		Required:    !p.Optional,
		enum:        p.Enum,
		goType:      goType,
	}

	sources := 0
	if len(p.Choices) > 0 {
		sources++
	}
	if p.Enum != nil {
		sources++
	}
	if p.Provider != nil {
		sources++
	}
	if sources > 1 {
		return OptionSpec{}, compileErr(ErrConflictingChoices, path, "")
	}

	switch {
	case len(p.Choices) > 0:
		spec.Choices = append([]Choice(nil), p.Choices...)
	case p.Enum != nil:
		for _, n := range p.Enum.names {
			spec.Choices = append(spec.Choices, Choice{Name: n, Value: n})
		}
	case p.Provider != nil:
		choices, err := p.Provider(c.ctx)
		if err != nil {
			return OptionSpec{}, &CompileError{Kind: ErrChoiceProvider, Path: path, Detail: err.Error()}
		}
		spec.Choices = choices
	}
	if len(spec.Choices) > constants.MaxChoices {
		return OptionSpec{}, compileErr(ErrTooMany, path, "%d choices (max %d)", len(spec.Choices), constants.MaxChoices)
	}

	if p.Optional {
		def, err := defaultValue(p.Default, goType)
		if err != nil {
			return OptionSpec{}, compileErr(ErrUnsupportedParameterType, path, "%v", err)
		}
		spec.def = def
	}
	return spec, nil
}

func inferType(p *Param, goType reflect.Type) (OptionType, error) {
	var inferred OptionType
	switch {
	case p.Enum != nil:
		if p.Enum.typ != goType {
			return 0, fmt.Errorf("enumeration of %s bound to parameter of %s", p.Enum.typ, goType)
		}
		inferred = OptionChoice
	case goType.Kind() == reflect.String:
		inferred = OptionText
	case goType.Kind() == reflect.Int64:
		inferred = OptionInteger
	case goType.Kind() == reflect.Bool:
		inferred = OptionBoolean
	case goType == userType || goType == memberType:
		inferred = OptionUser
	case goType == channelType:
		inferred = OptionChannel
	case goType == roleType:
		inferred = OptionRole
	default:
		return 0, fmt.Errorf("cannot map %s to an option type", goType)
	}
	if p.Type != OptionUnset && p.Type != inferred {
		return 0, fmt.Errorf("declared %s but parameter is %s", p.Type, goType)
	}
	return inferred, nil
}

func defaultValue(def any, goType reflect.Type) (reflect.Value, error) {
	if def == nil {
		return reflect.Zero(goType), nil
	}
	v := reflect.ValueOf(def)
	switch {
	case v.Type().AssignableTo(goType):
		return v, nil
	case v.Type().ConvertibleTo(goType) && v.Kind() != reflect.String && goType.Kind() != reflect.String:
		return v.Convert(goType), nil
	}
	return reflect.Value{}, fmt.Errorf("default %T is not assignable to %s", def, goType)
}

func checkName(name, description, prefix string) (string, error) {
	lowered := strings.ToLower(name)
	if !namePattern.MatchString(lowered) {
		return "", compileErr(ErrInvalidName, joinPath(prefix, name), "name must be 1-%d letters, digits, '-' or '_'",
			constants.MaxCommandNameLength)
	}
	if n := len([]rune(description)); n == 0 || n > constants.MaxDescriptionLength {
		return "", compileErr(ErrInvalidName, joinPath(prefix, lowered), "description must be 1-%d characters",
			constants.MaxDescriptionLength)
	}
	return lowered, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + " " + name
}
