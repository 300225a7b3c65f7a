package slash

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/bwmarrin/discordgo"
)

// RawKind tags the wire representation of an option value
type RawKind int

const (
	RawString RawKind = iota + 1
	RawInteger
	RawBoolean
	RawSnowflake
)

func (k RawKind) String() string {
	switch k {
	case RawString:
		return "string"
	case RawInteger:
		return "integer"
	case RawBoolean:
		return "boolean"
	case RawSnowflake:
		return "snowflake"
	}
	return "unknown"
}

// RawValue is a loosely typed option value as received from the platform
type RawValue struct {
	Kind RawKind
	Str  string // RawString and RawSnowflake
	Int  int64
	Bool bool
}

// StringValue, IntegerValue, BooleanValue and SnowflakeValue build RawValues
func StringValue(s string) RawValue     { return RawValue{Kind: RawString, Str: s} }
func IntegerValue(n int64) RawValue     { return RawValue{Kind: RawInteger, Int: n} }
func BooleanValue(b bool) RawValue      { return RawValue{Kind: RawBoolean, Bool: b} }
func SnowflakeValue(id string) RawValue { return RawValue{Kind: RawSnowflake, Str: id} }

// RawOption is one named option of an invocation
type RawOption struct {
	Name  string
	Value RawValue
}

func rawFromOption(o *discordgo.ApplicationCommandInteractionDataOption) (RawValue, error) {
	switch o.Type {
	case discordgo.ApplicationCommandOptionString:
		if s, ok := o.Value.(string); ok {
			return StringValue(s), nil
		}
	case discordgo.ApplicationCommandOptionInteger:
		switch v := o.Value.(type) {
		case float64:
			if v == math.Trunc(v) {
				return IntegerValue(int64(v)), nil
			}
		case int64:
			return IntegerValue(v), nil
		case int:
			return IntegerValue(int64(v)), nil
		}
	case discordgo.ApplicationCommandOptionBoolean:
		if b, ok := o.Value.(bool); ok {
			return BooleanValue(b), nil
		}
	case discordgo.ApplicationCommandOptionUser,
		discordgo.ApplicationCommandOptionChannel,
		discordgo.ApplicationCommandOptionRole,
		discordgo.ApplicationCommandOptionMentionable:
		if s, ok := o.Value.(string); ok {
			return SnowflakeValue(s), nil
		}
	}
	return RawValue{}, &DecodeError{
		Kind:   ErrTypeMismatch,
		Option: o.Name,
		Err:    fmt.Errorf("wire type %d carries %T", o.Type, o.Value),
	}
}

// Resolved is the per-event entity cache sent alongside an invocation
type Resolved struct {
	GuildID string
	Data    *discordgo.ApplicationCommandInteractionDataResolved
}

func (r *Resolved) member(id string) *discordgo.Member {
	if r == nil || r.Data == nil || r.Data.Members == nil {
		return nil
	}
	m := r.Data.Members[id]
	if m == nil {
		return nil
	}
	// Resolved members omit the user; attach it from the users table.
	if m.User == nil {
		if u := r.user(id); u != nil {
			cp := *m
			cp.User = u
			return &cp
		}
	}
	return m
}

func (r *Resolved) user(id string) *discordgo.User {
	if r == nil || r.Data == nil || r.Data.Users == nil {
		return nil
	}
	return r.Data.Users[id]
}

func (r *Resolved) channel(id string) *discordgo.Channel {
	if r == nil || r.Data == nil || r.Data.Channels == nil {
		return nil
	}
	return r.Data.Channels[id]
}

func (r *Resolved) role(id string) *discordgo.Role {
	if r == nil || r.Data == nil || r.Data.Roles == nil {
		return nil
	}
	return r.Data.Roles[id]
}

func (r *Resolved) guildID() string {
	if r == nil {
		return ""
	}
	return r.GuildID
}

// Decode converts one raw option value into the typed argument spec declares
func Decode(ctx context.Context, raw RawValue, spec OptionSpec, resolved *Resolved, fetcher EntityFetcher) (any, error) {
	v, err := decode(ctx, raw, spec, resolved, fetcher)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func decode(ctx context.Context, raw RawValue, spec OptionSpec, resolved *Resolved, fetcher EntityFetcher) (reflect.Value, error) {
	mismatch := func(want RawKind) error {
		return &DecodeError{
			Kind:   ErrTypeMismatch,
			Option: spec.Name,
			Err:    fmt.Errorf("declared %s, wire value is %s (want %s)", spec.Type, raw.Kind, want),
		}
	}

	switch spec.Type {
	case OptionText:
		if raw.Kind != RawString {
			return reflect.Value{}, mismatch(RawString)
		}
		return reflect.ValueOf(raw.Str).Convert(spec.goType), nil

	case OptionInteger:
		if raw.Kind != RawInteger {
			return reflect.Value{}, mismatch(RawInteger)
		}
		return reflect.ValueOf(raw.Int).Convert(spec.goType), nil

	case OptionBoolean:
		if raw.Kind != RawBoolean {
			return reflect.Value{}, mismatch(RawBoolean)
		}
		return reflect.ValueOf(raw.Bool).Convert(spec.goType), nil

	case OptionChoice:
		if raw.Kind != RawString {
			return reflect.Value{}, mismatch(RawString)
		}
		m, ok := spec.enum.members[raw.Str]
		if !ok {
			return reflect.Value{}, &DecodeError{Kind: ErrUnknownChoice, Option: spec.Name, Err: fmt.Errorf("%q", raw.Str)}
		}
		return m, nil

	case OptionUser, OptionChannel, OptionRole:
		if raw.Kind != RawSnowflake {
			return reflect.Value{}, mismatch(RawSnowflake)
		}
		entity, err := resolveEntity(ctx, raw.Str, spec, resolved, fetcher)
		if err != nil {
			return reflect.Value{}, &DecodeError{Kind: ErrEntityUnresolved, Option: spec.Name, Err: err}
		}
		return reflect.ValueOf(entity), nil
	}
	return reflect.Value{}, &DecodeError{Kind: ErrTypeMismatch, Option: spec.Name, Err: fmt.Errorf("undecodable type %s", spec.Type)}
}

// resolveEntity consults the resolved cache and falls back to exactly one remote fetch
func resolveEntity(ctx context.Context, id string, spec OptionSpec, resolved *Resolved, fetcher EntityFetcher) (any, error) {
	switch spec.goType {
	case memberType:
		if m := resolved.member(id); m != nil {
			return m, nil
		}
		if resolved.guildID() == "" {
			return nil, fmt.Errorf("member %s outside a guild", id)
		}
		return fetchOnce(fetcher, func(f EntityFetcher) (*discordgo.Member, error) {
			return f.FetchMember(ctx, resolved.guildID(), id)
		})

	case userType:
		if m := resolved.member(id); m != nil && m.User != nil {
			return m.User, nil
		}
		if u := resolved.user(id); u != nil {
			return u, nil
		}
		return fetchOnce(fetcher, func(f EntityFetcher) (*discordgo.User, error) {
			return f.FetchUser(ctx, id)
		})

	case channelType:
		if c := resolved.channel(id); c != nil {
			return c, nil
		}
		return fetchOnce(fetcher, func(f EntityFetcher) (*discordgo.Channel, error) {
			return f.FetchChannel(ctx, id)
		})

	case roleType:
		if r := resolved.role(id); r != nil {
			return r, nil
		}
		return fetchOnce(fetcher, func(f EntityFetcher) (*discordgo.Role, error) {
			return f.FetchRole(ctx, resolved.guildID(), id)
		})
	}
	return nil, fmt.Errorf("no entity kind for %s", spec.goType)
}

func fetchOnce[T any](fetcher EntityFetcher, fetch func(EntityFetcher) (*T, error)) (*T, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("not in resolved data and no fetcher configured")
	}
	v, err := fetch(fetcher)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("fetch returned nothing")
	}
	return v, nil
}

// decodeArgs builds the handler arguments of leaf node in declaration order
func decodeArgs(ctx context.Context, node *Node, opts []RawOption, resolved *Resolved, fetcher EntityFetcher) ([]reflect.Value, error) {
	byName := make(map[string]RawValue, len(opts))
	for _, o := range opts {
		byName[o.Name] = o.Value
	}
	args := make([]reflect.Value, 0, len(node.Options))
	for _, spec := range node.Options {
		raw, present := byName[spec.Name]
		if !present {
			if spec.Required {
				return nil, &DecodeError{Kind: ErrMissingOption, Option: spec.Name}
			}
			args = append(args, spec.def)
			continue
		}
		v, err := decode(ctx, raw, spec, resolved, fetcher)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}
