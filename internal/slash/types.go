package slash

import (
	"context"
	"reflect"

	"github.com/bwmarrin/discordgo"
)

// OptionType is the semantic type of a command option
type OptionType int

const (
	OptionUnset OptionType = iota
	OptionText
	OptionInteger
	OptionBoolean
	OptionChoice
	OptionUser
	OptionChannel
	OptionRole
)

func (t OptionType) String() string {
	switch t {
	case OptionText:
		return "text"
	case OptionInteger:
		return "integer"
	case OptionBoolean:
		return "boolean"
	case OptionChoice:
		return "choice"
	case OptionUser:
		return "user"
	case OptionChannel:
		return "channel"
	case OptionRole:
		return "role"
	default:
		return "unset"
	}
}

// wireType maps the semantic type onto the platform's option type.
// Enumerations travel as strings.
func (t OptionType) wireType() discordgo.ApplicationCommandOptionType {
	switch t {
	case OptionText, OptionChoice:
		return discordgo.ApplicationCommandOptionString
	case OptionInteger:
		return discordgo.ApplicationCommandOptionInteger
	case OptionBoolean:
		return discordgo.ApplicationCommandOptionBoolean
	case OptionUser:
		return discordgo.ApplicationCommandOptionUser
	case OptionChannel:
		return discordgo.ApplicationCommandOptionChannel
	case OptionRole:
		return discordgo.ApplicationCommandOptionRole
	}
	return 0
}

// Choice is one entry of an option's fixed choice set
type Choice struct {
	Name  string
	Value any
}

// ChoiceProvider computes an option's choices. It is called once per compile pass.
type ChoiceProvider func(ctx context.Context) ([]Choice, error)

// EnumMember names one value of an enumeration
type EnumMember[T any] struct {
	Name  string
	Value T
}

// Member is shorthand for building an EnumMember
func Member[T any](name string, value T) EnumMember[T] {
	return EnumMember[T]{Name: name, Value: value}
}

// Enum describes a Go type whose values are chosen by member name
type Enum struct {
	typ     reflect.Type
	names   []string
	members map[string]reflect.Value
}

// NewEnum builds an enumeration from its members, in declaration order
func NewEnum[T any](members ...EnumMember[T]) *Enum {
	e := &Enum{
		typ:     reflect.TypeOf((*T)(nil)).Elem(),
		members: make(map[string]reflect.Value, len(members)),
	}
	for _, m := range members {
		if _, dup := e.members[m.Name]; dup {
			continue
		}
		e.names = append(e.names, m.Name)
		e.members[m.Name] = reflect.ValueOf(m.Value)
	}
	return e
}

// Names returns the member names in declaration order
func (e *Enum) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Parse returns the member value named name
func (e *Enum) Parse(name string) (any, bool) {
	v, ok := e.members[name]
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// Factory builds the handler-owning value for one invocation
type Factory struct {
	typ reflect.Type
	fn  func(services any) (any, error)
}

// NewFactory wraps a constructor. services is the value configured on the Extension.
func NewFactory[T any](fn func(services any) (T, error)) *Factory {
	return &Factory{
		typ: reflect.TypeOf((*T)(nil)).Elem(),
		fn: func(services any) (any, error) {
			return fn(services)
		},
	}
}

// BeforeExecutor is implemented by handler-owning values that want a pre-invocation hook
type BeforeExecutor interface {
	BeforeExecution(c *Context) error
}

// AfterExecutor is implemented by handler-owning values that want a post-invocation hook
type AfterExecutor interface {
	AfterExecution(c *Context) error
}

// Param declares one handler parameter after the *Context
type Param struct {
	Name        string
	Description string
	// Type may be left unset; it is then inferred from the handler's Go parameter type.
	Type     OptionType
	Optional bool
	// Default is used when an optional option is omitted. Nil means the zero value.
	Default  any
	Choices  []Choice
	Enum     *Enum
	Provider ChoiceProvider
}

// Command declares an invocable leaf.
//
// Handler is a func whose parameters are, in order: the owning value (only when
// a Factory is in effect), *Context, then one value per Param. It returns error.
type Command struct {
	Name              string
	Description       string
	Handler           any
	Params            []Param
	DefaultPermission *bool
}

// Group declares a command group. A group holds either Commands or SubGroups, never both.
type Group struct {
	Name              string
	Description       string
	Factory           *Factory // overrides the module factory for this group
	Commands          []Command
	SubGroups         []Group
	DefaultPermission *bool
}

// Module is the unit passed to Register: a set of top-level commands and groups
// that share an owning-value factory.
type Module struct {
	Name     string
	Factory  *Factory
	Commands []Command
	Groups   []Group
}

// Bool returns a pointer to b, for DefaultPermission fields
func Bool(b bool) *bool { return &b }
