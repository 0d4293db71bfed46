// Package loadercfg decodes a loosely-typed scenario (as parsed from JSON
// or YAML by the caller into a map[string]any) into the strict structs
// biscuit.Authorize consumes, the same "decode generic config into strict
// domain structs" discipline nomad's agent configuration uses throughout.
package loadercfg

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/biscuit-eval/datalog/datalog"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
)

// TermConfig is the surface a scenario file writes a term as: a bare
// string/number/bool/hex-string/timestamp for a ground value, or a
// string prefixed with "$" for a variable. It decodes directly into
// datalog.Term via the decode hook below.
type TermConfig = datalog.Term

// PredicateConfig is one predicate application: a name plus its argument
// terms.
type PredicateConfig struct {
	Name string     `mapstructure:"name"`
	Args []TermConfig `mapstructure:"args"`
}

func (p PredicateConfig) toPredicate() datalog.Predicate {
	return datalog.NewPredicate(p.Name, p.Args...)
}

// ScopeConfig mirrors datalog.ScopeElement: exactly one of Authority,
// Previous, or PublicKey should be set.
type ScopeConfig struct {
	Authority bool   `mapstructure:"authority"`
	Previous  bool   `mapstructure:"previous"`
	PublicKey string `mapstructure:"public_key"`
}

func (s ScopeConfig) toElement() (datalog.ScopeElement, error) {
	switch {
	case s.Authority:
		return datalog.OnlyAuthority(), nil
	case s.Previous:
		return datalog.Previous(), nil
	case s.PublicKey != "":
		return datalog.ByPublicKey(datalog.NewPublicKey([]byte(s.PublicKey))), nil
	default:
		return datalog.ScopeElement{}, fmt.Errorf("scope entry sets none of authority/previous/public_key")
	}
}

func toScope(cfgs []ScopeConfig) ([]datalog.ScopeElement, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	out := make([]datalog.ScopeElement, 0, len(cfgs))
	var errs *multierror.Error
	for i, c := range cfgs {
		el, err := c.toElement()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("scope[%d]: %w", i, err))
			continue
		}
		out = append(out, el)
	}
	return out, errs.ErrorOrNil()
}

// RuleConfig is a Horn clause over PredicateConfig, plus a raw expression
// list the caller expresses in tree form (ExpressionConfig) for
// readability.
type RuleConfig struct {
	Head        PredicateConfig   `mapstructure:"head"`
	Body        []PredicateConfig `mapstructure:"body"`
	Expressions []ExpressionConfig `mapstructure:"expressions"`
	Scope       []ScopeConfig     `mapstructure:"scope"`
}

func (r RuleConfig) toRule() (datalog.Rule, error) {
	body := make([]datalog.Predicate, len(r.Body))
	for i, p := range r.Body {
		body[i] = p.toPredicate()
	}
	exprs, err := toExpressions(r.Expressions)
	if err != nil {
		return datalog.Rule{}, err
	}
	scope, err := toScope(r.Scope)
	if err != nil {
		return datalog.Rule{}, err
	}
	return datalog.Rule{Head: r.Head.toPredicate(), Body: body, Expressions: exprs, Scope: scope}, nil
}

// QueryItemConfig is one disjunct of a check or policy.
type QueryItemConfig struct {
	Body        []PredicateConfig  `mapstructure:"body"`
	Expressions []ExpressionConfig `mapstructure:"expressions"`
	Scope       []ScopeConfig      `mapstructure:"scope"`
}

func (q QueryItemConfig) toQueryItem() (datalog.QueryItem, error) {
	body := make([]datalog.Predicate, len(q.Body))
	for i, p := range q.Body {
		body[i] = p.toPredicate()
	}
	exprs, err := toExpressions(q.Expressions)
	if err != nil {
		return datalog.QueryItem{}, err
	}
	scope, err := toScope(q.Scope)
	if err != nil {
		return datalog.QueryItem{}, err
	}
	return datalog.QueryItem{Body: body, Expressions: exprs, Scope: scope}, nil
}

// CheckConfig is a disjunction of QueryItemConfig.
type CheckConfig struct {
	Queries []QueryItemConfig `mapstructure:"queries"`
}

func (c CheckConfig) toCheck() (datalog.Check, error) {
	items := make([]datalog.QueryItem, len(c.Queries))
	var errs *multierror.Error
	for i, q := range c.Queries {
		item, err := q.toQueryItem()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("queries[%d]: %w", i, err))
			continue
		}
		items[i] = item
	}
	if err := errs.ErrorOrNil(); err != nil {
		return datalog.Check{}, err
	}
	return datalog.Check{Queries: items}, nil
}

// PolicyConfig is an ordered (kind, disjunction) pair; Kind is "allow" or
// "deny".
type PolicyConfig struct {
	Kind    string            `mapstructure:"kind"`
	Queries []QueryItemConfig `mapstructure:"queries"`
}

func (p PolicyConfig) toPolicy() (datalog.Policy, error) {
	kind := datalog.PolicyAllow
	switch strings.ToLower(p.Kind) {
	case "allow", "":
		kind = datalog.PolicyAllow
	case "deny":
		kind = datalog.PolicyDeny
	default:
		return datalog.Policy{}, fmt.Errorf("policy kind %q must be \"allow\" or \"deny\"", p.Kind)
	}
	items := make([]datalog.QueryItem, len(p.Queries))
	var errs *multierror.Error
	for i, q := range p.Queries {
		item, err := q.toQueryItem()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("queries[%d]: %w", i, err))
			continue
		}
		items[i] = item
	}
	if err := errs.ErrorOrNil(); err != nil {
		return datalog.Policy{}, err
	}
	return datalog.Policy{Kind: kind, Queries: items}, nil
}

// BlockConfig is one block's facts/rules/checks/default scope/context.
type BlockConfig struct {
	Facts        []PredicateConfig `mapstructure:"facts"`
	Rules        []RuleConfig      `mapstructure:"rules"`
	Checks       []CheckConfig     `mapstructure:"checks"`
	DefaultScope []ScopeConfig     `mapstructure:"default_scope"`
	Context      string            `mapstructure:"context"`
}

// AuthorityBlockConfig additionally carries the authority block's own
// revocation id.
type AuthorityBlockConfig struct {
	BlockConfig  `mapstructure:",squash"`
	RevocationID string `mapstructure:"revocation_id"`
}

// ExtraBlockConfig additionally carries the public key identifying the
// block and its revocation id. BlockConfig is embedded with the ",squash"
// tag so an extra block's
// facts/rules/checks sit at the same level as public_key/revocation_id.
type ExtraBlockConfig struct {
	BlockConfig  `mapstructure:",squash"`
	PublicKey    string `mapstructure:"public_key"`
	RevocationID string `mapstructure:"revocation_id"`
}

// AuthorizerConfig is the authorizer's own block plus its ordered
// policies.
type AuthorizerConfig struct {
	BlockConfig `mapstructure:",squash"`
	Policies    []PolicyConfig `mapstructure:"policies"`
}

// LimitsConfig mirrors datalog.Limits with caller-friendly field names;
// MaxTimeMillis decodes into Limits.MaxTime.
type LimitsConfig struct {
	MaxFacts       int `mapstructure:"max_facts"`
	MaxIterations  int `mapstructure:"max_iterations"`
	MaxTimeMillis  int `mapstructure:"max_time_millis"`
	MaxRegexLength int `mapstructure:"max_regex_length"`
}

func (l LimitsConfig) toLimits() datalog.Limits {
	limits := datalog.DefaultLimits()
	if l.MaxFacts > 0 {
		limits.MaxFacts = l.MaxFacts
	}
	if l.MaxIterations > 0 {
		limits.MaxIterations = l.MaxIterations
	}
	if l.MaxTimeMillis > 0 {
		limits.MaxTime = time.Duration(l.MaxTimeMillis) * time.Millisecond
	}
	if l.MaxRegexLength > 0 {
		limits.MaxRegexLength = l.MaxRegexLength
	}
	return limits
}

// Scenario is the root of a decoded scenario file.
type Scenario struct {
	Limits     LimitsConfig         `mapstructure:"limits"`
	Authority  AuthorityBlockConfig `mapstructure:"authority"`
	Extras     []ExtraBlockConfig `mapstructure:"extras"`
	Authorizer AuthorizerConfig   `mapstructure:"authorizer"`
}

// Decode parses raw (as produced by a JSON/YAML unmarshal into
// map[string]any) into a Scenario, using decodeHook to turn bare
// scalars into datalog.Term/datalog.Value wherever the target struct
// expects one. Every validation error is accumulated via go-multierror
// rather than stopping at the first.
func Decode(raw map[string]any) (*Scenario, error) {
	var scenario Scenario
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(decodeHook),
		WeaklyTypedInput: true,
		Result:           &scenario,
	})
	if err != nil {
		return nil, fmt.Errorf("loadercfg: building decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("loadercfg: decoding scenario: %w", err)
	}
	return &scenario, nil
}

var (
	termType  = reflect.TypeOf(datalog.Term{})
	valueType = reflect.TypeOf(datalog.Value{})
)

// decodeHook intercepts any field typed datalog.Term or datalog.Value and
// builds it from the raw scalar, since both types hold unexported fields
// mapstructure could never populate via reflection alone.
func decodeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	switch to {
	case termType:
		return decodeTerm(data)
	case valueType:
		return decodeValue(data)
	default:
		return data, nil
	}
}

func decodeTerm(data interface{}) (datalog.Term, error) {
	if s, ok := data.(string); ok && strings.HasPrefix(s, "$") {
		return datalog.Var(strings.TrimPrefix(s, "$")), nil
	}
	v, err := decodeValue(data)
	if err != nil {
		return datalog.Term{}, err
	}
	return datalog.Val(v), nil
}

func decodeValue(data interface{}) (datalog.Value, error) {
	switch v := data.(type) {
	case bool:
		return datalog.Bool(v), nil
	case int:
		return datalog.Int(int64(v)), nil
	case int64:
		return datalog.Int(v), nil
	case float64:
		return datalog.Int(int64(v)), nil
	case string:
		switch {
		case strings.HasPrefix(v, "hex:"):
			raw, err := hex.DecodeString(strings.TrimPrefix(v, "hex:"))
			if err != nil {
				return datalog.Value{}, fmt.Errorf("loadercfg: invalid hex value %q: %w", v, err)
			}
			return datalog.BytesVal(raw), nil
		default:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return datalog.DateVal(t), nil
			}
			return datalog.Str(v), nil
		}
	case []interface{}:
		elems := make([]datalog.Value, 0, len(v))
		var errs *multierror.Error
		for i, raw := range v {
			elem, err := decodeValue(raw)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("[%d]: %w", i, err))
				continue
			}
			elems = append(elems, elem)
		}
		if err := errs.ErrorOrNil(); err != nil {
			return datalog.Value{}, err
		}
		set, err := datalog.NewSet(elems...)
		if err != nil {
			return datalog.Value{}, err
		}
		return set, nil
	default:
		return datalog.Value{}, fmt.Errorf("loadercfg: cannot decode %T into a value", data)
	}
}
