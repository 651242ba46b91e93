package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// Layer is one configuration fragment: a named map of dotted keys to
// values. Layers are merged in the order supplied to Resolve, so a later
// layer wins over an earlier one key-by-key.
type Layer struct {
	Name   string
	Values map[string]interface{}

	// stringly marks layers whose values arrive as raw strings (env vars,
	// key=value arguments) and must be coerced to the schema type before
	// merging.
	stringly bool
}

// EffectiveConfig is the immutable merged snapshot for one invocation.
// It is safe to share across goroutines.
type EffectiveConfig struct {
	k       *koanf.Koanf
	unknown []string
}

// FileLayer reads a TOML base document. A missing file at the default
// location is not an error; the schema defaults stand in for it.
func FileLayer(path string) (Layer, error) {
	tk := koanf.New(".")
	if err := tk.Load(file.Provider(path), toml.Parser()); err != nil {
		return Layer{}, fmt.Errorf("loading config file %s: %w", path, err)
	}
	return Layer{Name: "file:" + path, Values: tk.All()}, nil
}

// EnvLayer collects overrides from PRAGENT_* environment variables.
// Double underscores separate table levels, so
// PRAGENT_REVIEW__NUM_SUGGESTIONS=2 overrides review.num_suggestions.
func EnvLayer() Layer {
	tk := koanf.New(".")
	tk.Load(env.Provider("PRAGENT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "PRAGENT_")
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	return Layer{Name: "env", Values: tk.All(), stringly: true}
}

// ArgsLayer parses per-invocation overrides given as section.key=value
// strings. These are supplied last to Resolve so explicit arguments win
// over the environment.
func ArgsLayer(pairs []string) (Layer, error) {
	vals := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return Layer{}, fmt.Errorf("config: malformed override %q, want key=value", pair)
		}
		vals[strings.TrimSpace(key)] = value
	}
	return Layer{Name: "args", Values: vals, stringly: true}, nil
}

// OverrideLayer wraps an already-typed map as a layer, mainly for tests
// and programmatic callers.
func OverrideLayer(name string, vals map[string]interface{}) Layer {
	return Layer{Name: name, Values: vals}
}

// Resolve deep-merges the schema defaults, the base layer, and each
// override layer in order into one immutable snapshot. Scalars replace,
// tables merge recursively, lists replace wholesale. The only fatal
// condition is a type mismatch on a recognized key; unknown keys are
// preserved and flagged.
func Resolve(base Layer, overrides ...Layer) (*EffectiveConfig, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	idx := schemaIndex()
	roots := tableRoots()
	unknownSet := make(map[string]struct{})

	layers := append([]Layer{base}, overrides...)
	for _, layer := range layers {
		if len(layer.Values) == 0 {
			continue
		}
		vals, unknown, err := validateLayer(layer, idx, roots)
		if err != nil {
			return nil, err
		}
		for _, u := range unknown {
			unknownSet[u] = struct{}{}
		}
		if err := k.Load(confmap.Provider(vals, "."), nil); err != nil {
			return nil, fmt.Errorf("merging %s layer: %w", layer.Name, err)
		}
	}

	unknown := make([]string, 0, len(unknownSet))
	for u := range unknownSet {
		unknown = append(unknown, u)
	}
	sort.Strings(unknown)
	for _, u := range unknown {
		log.Warn().Str("key", u).Msg("config: unrecognized option retained without validation")
	}

	return &EffectiveConfig{k: k, unknown: unknown}, nil
}

// ResolveDefault builds the usual CLI layering: defaults, optional TOML
// file, environment, then explicit argument overrides.
func ResolveDefault(configPath string, argOverrides []string) (*EffectiveConfig, error) {
	base := Layer{Name: "file:none"}
	if configPath != "" {
		var err error
		base, err = FileLayer(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		for _, candidate := range []string{"./pragent.toml", "$HOME/.pragent.toml"} {
			candidate = os.ExpandEnv(candidate)
			if _, err := os.Stat(candidate); err == nil {
				if loaded, err := FileLayer(candidate); err == nil {
					base = loaded
				}
				break
			}
		}
	}

	args, err := ArgsLayer(argOverrides)
	if err != nil {
		return nil, err
	}
	return Resolve(base, EnvLayer(), args)
}

// validateLayer checks every key in the layer against the schema, coercing
// stringly values to their declared type. It returns the (possibly
// coerced) values and the list of unrecognized keys.
func validateLayer(layer Layer, idx map[string]Option, roots []string) (map[string]interface{}, []string, error) {
	vals := make(map[string]interface{}, len(layer.Values))
	var unknown []string

	for key, value := range layer.Values {
		opt, recognized := idx[key]
		if !recognized {
			if underTableRoot(key, roots) {
				vals[key] = value
				continue
			}
			unknown = append(unknown, key)
			vals[key] = value
			continue
		}

		if layer.stringly {
			coerced, err := coerceString(fmt.Sprintf("%v", value), opt.Kind)
			if err != nil {
				return nil, nil, &ConfigError{Key: key, Expected: opt.Kind, Value: value, Layer: layer.Name}
			}
			vals[key] = coerced
			continue
		}

		if !matchesKind(value, opt.Kind) {
			return nil, nil, &ConfigError{Key: key, Expected: opt.Kind, Value: value, Layer: layer.Name}
		}
		vals[key] = value
	}

	return vals, unknown, nil
}

func underTableRoot(key string, roots []string) bool {
	for _, root := range roots {
		if strings.HasPrefix(key, root+".") {
			return true
		}
	}
	return false
}

// matchesKind reports whether a typed value satisfies the declared kind.
// TOML integers arrive as int64 and arrays as []interface{}, so both are
// accepted alongside their native Go forms.
func matchesKind(v interface{}, kind Kind) bool {
	switch kind {
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		switch v.(type) {
		case int, int32, int64:
			return true
		case float64:
			f := v.(float64)
			return f == float64(int64(f))
		}
		return false
	case KindFloat:
		switch v.(type) {
		case float32, float64, int, int64:
			return true
		}
		return false
	case KindString:
		_, ok := v.(string)
		return ok
	case KindList:
		switch v.(type) {
		case []interface{}, []string:
			return true
		}
		return false
	case KindTable:
		_, ok := v.(map[string]interface{})
		return ok
	}
	return false
}

// coerceString converts a raw string from env or key=value arguments into
// the schema-declared type. Failure to parse is a type mismatch.
func coerceString(s string, kind Kind) (interface{}, error) {
	switch kind {
	case KindBool:
		return strconv.ParseBool(strings.TrimSpace(s))
	case KindInt:
		return strconv.Atoi(strings.TrimSpace(s))
	case KindFloat:
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	case KindString:
		return s, nil
	case KindList:
		if strings.TrimSpace(s) == "" {
			return []string{}, nil
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case KindTable:
		return nil, fmt.Errorf("cannot set table %q from a flat value", s)
	}
	return nil, fmt.Errorf("unknown kind")
}

// Accessors. The underlying koanf instance is never exposed, and table
// reads return deep copies, so a resolved snapshot cannot be mutated.

func (c *EffectiveConfig) Bool(path string) bool        { return c.k.Bool(path) }
func (c *EffectiveConfig) Int(path string) int          { return c.k.Int(path) }
func (c *EffectiveConfig) Float(path string) float64    { return c.k.Float64(path) }
func (c *EffectiveConfig) String(path string) string    { return c.k.String(path) }
func (c *EffectiveConfig) Strings(path string) []string { return c.k.Strings(path) }
func (c *EffectiveConfig) Has(path string) bool         { return c.k.Exists(path) }

// Table returns a deep copy of a nested table, e.g. providers.gitlab.
func (c *EffectiveConfig) Table(path string) map[string]interface{} {
	raw, ok := c.k.Get(path).(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return maps.Copy(raw)
}

// All returns a flat dotted-key copy of the whole snapshot.
func (c *EffectiveConfig) All() map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range c.k.All() {
		out[key] = value
	}
	return out
}

// Unknown lists override keys that were merged without schema validation.
func (c *EffectiveConfig) Unknown() []string {
	out := make([]string, len(c.unknown))
	copy(out, c.unknown)
	return out
}
