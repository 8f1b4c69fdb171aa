// Package config loads the per-environment settings of the PDND client.
//
// A configuration file is a JSON (or YAML) object keyed by environment
// name; each environment holds a flat map of settings:
//
//	{
//	  "collaudo": {
//	    "kid": "key-id",
//	    "issuer": "client-id",
//	    "clientId": "client-id",
//	    "purposeId": "purpose-id",
//	    "privKeyPath": "/etc/pdnd/key.pem",
//	    "audience": "auth.uat.interop.pagopa.it/client-assertion",
//	    "endpoint": "https://auth.uat.interop.pagopa.it/token.oauth2"
//	  }
//	}
//
// Values are resolved in priority order:
//
//	envDefault struct tags     (lowest priority)
//	selected environment map   (medium priority)
//	Environment variables      (highest priority)
//
// # Struct Tags
//
//   - `json:"key"`: the key read from the environment map
//   - `env:"VAR_NAME"`: maps the field to an environment variable
//   - `envDefault:"value"`: sets a default when the field is zero-valued
//   - `required:"true"`: fails validation if the field remains zero after loading
//
// # Usage
//
//	var s config.Settings
//	err := config.New().
//	    WithFile("configs/config.json").
//	    WithEnvironment("collaudo").
//	    WithEnvPrefix("PDND").
//	    Load(&s)
//
// The raw key-value view of the same section is available through
// [Loader.Environment].
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// durationType caches the reflect.Type for time.Duration. time.Duration has
// Kind() == Int64, so it needs to be told apart from plain int64 fields.
var durationType = reflect.TypeOf(time.Duration(0))

// Loader builds and executes configuration loading with a layered
// resolution strategy. Use [New] to create a Loader and configure it
// with [Loader.WithFile], [Loader.WithEnvironment] and
// [Loader.WithEnvPrefix] before calling [Loader.Load].
//
// Loader is not safe for concurrent use.
type Loader struct {
	envPrefix   string
	filePath    string
	environment string
}

// New creates a new [Loader] that loads from environment variables only
// (no file, no prefix).
func New() *Loader {
	return &Loader{}
}

// WithEnvPrefix sets a prefix that is prepended (with an underscore
// separator) to all environment variable names derived from the "env"
// struct tag. For example, WithEnvPrefix("PDND") causes a field tagged
// `env:"CLIENT_ID"` to read from PDND_CLIENT_ID.
//
// The prefix is automatically uppercased.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = strings.ToUpper(prefix)
	return l
}

// WithFile sets the path to a JSON or YAML configuration file. The format
// is detected by extension (.json, .yaml, .yml). Unlike environment
// variables, a configured file must exist. Relative paths are resolved
// against the working directory.
func (l *Loader) WithFile(path string) *Loader {
	l.filePath = path
	return l
}

// WithEnvironment selects the top-level key of the configuration file whose
// map is loaded. When empty, the whole document is treated as one flat
// environment.
func (l *Loader) WithEnvironment(name string) *Loader {
	l.environment = name
	return l
}

// Load populates the given struct pointer with configuration values
// resolved in priority order (highest wins):
//
//  1. envDefault struct tags (lowest priority)
//  2. The selected environment of the configuration file
//  3. Environment variables from "env" struct tags (highest priority)
//
// After loading, fields tagged `required:"true"` must hold non-zero values,
// and if the struct implements [Validator] its Validate method is called.
//
// The cfg parameter must be a non-nil pointer to a struct. Loading failures
// return [sserr.CodeConfiguration] or [sserr.CodeConfigurationEnvironment];
// missing required fields return [sserr.CodeConfigurationMissing].
func (l *Loader) Load(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return sserr.New(sserr.CodeConfiguration,
			"config: Load requires a non-nil pointer to a struct")
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return sserr.New(sserr.CodeConfiguration,
			"config: Load requires a pointer to a struct")
	}

	if err := applyDefaults(rv); err != nil {
		return err
	}

	if l.filePath != "" {
		env, err := l.Environment()
		if err != nil {
			return err
		}
		if err := applySection(rv, env.values); err != nil {
			return err
		}
	}

	if err := applyEnv(rv, l.envPrefix); err != nil {
		return err
	}

	return validate(cfg, rv)
}

// MustLoad is a generic convenience function that creates a zero-valued
// instance of T, loads configuration into it, and returns the populated
// value. It panics if loading or validation fails.
func MustLoad[T any](loader *Loader) T {
	var cfg T
	if err := loader.Load(&cfg); err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

// Environment reads the configuration file and returns the selected
// environment as an immutable key-value view.
func (l *Loader) Environment() (*Environment, error) {
	if l.filePath == "" {
		return nil, sserr.New(sserr.CodeConfiguration,
			"config: no configuration file set")
	}

	doc, err := l.readFile()
	if err != nil {
		return nil, err
	}

	if l.environment == "" {
		return newEnvironment("", doc), nil
	}

	raw, ok := doc[l.environment]
	if !ok {
		return nil, sserr.Newf(sserr.CodeConfigurationEnvironment,
			"config: environment %q not found in %s", l.environment, l.filePath)
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, sserr.Newf(sserr.CodeConfigurationEnvironment,
			"config: environment %q in %s is not an object", l.environment, l.filePath)
	}
	return newEnvironment(l.environment, section), nil
}

// readFile reads and decodes the whole configuration document.
func (l *Loader) readFile() (map[string]any, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeConfiguration,
			"config: failed to read file %q", l.filePath)
	}

	var doc map[string]any
	switch ext := strings.ToLower(filepath.Ext(l.filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, sserr.Wrapf(err, sserr.CodeConfiguration,
				"config: failed to parse YAML file %q", l.filePath)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, sserr.Wrapf(err, sserr.CodeConfiguration,
				"config: failed to parse JSON file %q", l.filePath)
		}
	default:
		return nil, sserr.Newf(sserr.CodeConfiguration,
			"config: unsupported file extension %q (use .json, .yaml, or .yml)", ext)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// applyDefaults recursively traverses the struct and sets fields to
// their envDefault tag values when the field holds its zero value.
func applyDefaults(rv reflect.Value) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			if err := applyDefaults(field); err != nil {
				return err
			}
			continue
		}

		tag := sf.Tag.Get("envDefault")
		if tag == "" || !field.IsZero() {
			continue
		}

		if err := setField(field, tag); err != nil {
			return sserr.Wrapf(err, sserr.CodeConfiguration,
				"config: failed to apply default for field %q", sf.Name)
		}
	}

	return nil
}

// applySection sets fields from the environment map, matching keys against
// the field's json tag name. Nested structs read from a nested map under
// their own json key.
func applySection(rv reflect.Value, section map[string]any) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		key := jsonName(sf)
		if key == "" {
			continue
		}
		raw, ok := section[key]
		if !ok || raw == nil {
			continue
		}

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			nested, ok := raw.(map[string]any)
			if !ok {
				return sserr.Newf(sserr.CodeConfiguration,
					"config: setting %q must be an object", key)
			}
			if err := applySection(field, nested); err != nil {
				return err
			}
			continue
		}

		value, err := scalarString(raw)
		if err != nil {
			return sserr.Wrapf(err, sserr.CodeConfiguration,
				"config: invalid value for setting %q", key)
		}
		if err := setField(field, value); err != nil {
			return sserr.Wrapf(err, sserr.CodeConfiguration,
				"config: failed to set field %q from setting %q", sf.Name, key)
		}
	}

	return nil
}

// jsonName returns the key name from the field's json tag, or "" when the
// field has no tag or is excluded with "-".
func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// scalarString renders a decoded JSON/YAML scalar in the textual form
// understood by setField.
func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := scalarString(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// applyEnv recursively traverses the struct and sets fields from
// environment variables specified by the "env" struct tag. For nested
// structs, the parent's env tag value is prepended as a prefix.
func applyEnv(rv reflect.Value, prefix string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		envTag := sf.Tag.Get("env")

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			nestedPrefix := prefix
			if envTag != "" {
				if nestedPrefix != "" {
					nestedPrefix = nestedPrefix + "_" + envTag
				} else {
					nestedPrefix = envTag
				}
			}
			if err := applyEnv(field, nestedPrefix); err != nil {
				return err
			}
			continue
		}

		if envTag == "" {
			continue
		}

		envKey := envTag
		if prefix != "" {
			envKey = prefix + "_" + envTag
		}

		val, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}

		if err := setField(field, val); err != nil {
			return sserr.Wrapf(err, sserr.CodeConfiguration,
				"config: failed to set field %q from env var %q", sf.Name, envKey)
		}
	}

	return nil
}

// setField parses the string value and sets the reflect.Value according
// to its kind. Supported types:
//
//   - string (and named string types like [Secret])
//   - bool
//   - int, int8, int16, int32, int64
//   - time.Duration (time.ParseDuration, or a bare number of seconds)
//   - []string (comma-separated, whitespace-trimmed)
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cannot parse bool %q: %w", value, err)
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("cannot parse integer %q: %w", value, err)
		}
		field.SetInt(n)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)

	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}

	return nil
}

// parseDuration accepts Go duration strings ("5m") and plain integers,
// which are read as seconds to match the numeric lifetimes used in PDND
// configuration files.
func parseDuration(value string) (time.Duration, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("cannot parse duration %q: %w", value, err)
	}
	return d, nil
}
