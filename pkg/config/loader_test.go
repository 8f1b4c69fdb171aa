package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// ===========================================================================
// Test Types
// ===========================================================================

type basicConfig struct {
	Host    string        `json:"host" env:"HOST" envDefault:"localhost"`
	Port    int           `json:"port" env:"PORT" envDefault:"8080"`
	Debug   bool          `json:"debug" env:"DEBUG" envDefault:"false"`
	Timeout time.Duration `json:"timeout" env:"TIMEOUT" envDefault:"30s"`
	Tags    []string      `json:"tags" env:"TAGS"`
	Token   Secret        `json:"token" env:"TOKEN"`
}

type requiredConfig struct {
	Name string `json:"name" env:"NAME" required:"true"`
}

type nestedConfig struct {
	App   string      `json:"app" env:"APP"`
	Redis redisSubCfg `json:"redis" env:"REDIS"`
}

type redisSubCfg struct {
	Host string `json:"host" env:"HOST" required:"true"`
	DB   int    `json:"db" env:"DB"`
}

type validatableStdlibConfig struct {
	Name string `json:"name"`
}

func (c *validatableStdlibConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// writeTestFile creates a file in the test's temp directory and returns
// its path. The test is failed if the file cannot be written.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writeTestFile() error: %v", err)
	}
	return path
}

const multiEnvJSON = `{
  "collaudo": {"host": "uat.example", "port": 8443, "debug": true, "timeout": "10s", "tags": ["a", "b"]},
  "produzione": {"host": "prod.example", "port": 443, "timeout": 60}
}`

// ===========================================================================
// Load: Input Validation Tests
// ===========================================================================

// TestLoader_Load_NilPointer verifies that Load rejects a nil pointer.
func TestLoader_Load_NilPointer(t *testing.T) {
	err := New().Load((*basicConfig)(nil))
	if !sserr.HasCode(err, sserr.CodeConfiguration) {
		t.Fatalf("Load(nil) error = %v, want CodeConfiguration", err)
	}
}

// TestLoader_Load_NonStruct verifies that Load rejects a pointer to a
// non-struct type.
func TestLoader_Load_NonStruct(t *testing.T) {
	n := 0
	if err := New().Load(&n); !sserr.IsConfiguration(err) {
		t.Fatalf("Load(&int) error = %v, want configuration error", err)
	}
	if err := New().Load(basicConfig{}); !sserr.IsConfiguration(err) {
		t.Fatalf("Load(struct) error = %v, want configuration error", err)
	}
}

// ===========================================================================
// Load: Defaults and Environment Selection
// ===========================================================================

// TestLoader_Load_Defaults_Applied verifies envDefault tags without a file.
func TestLoader_Load_Defaults_Applied(t *testing.T) {
	var cfg basicConfig
	if err := New().Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != 8080 || cfg.Timeout != 30*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

// TestLoader_Load_SelectsEnvironment verifies that only the selected
// environment's map is applied.
func TestLoader_Load_SelectsEnvironment(t *testing.T) {
	path := writeTestFile(t, "config.json", multiEnvJSON)

	var cfg basicConfig
	if err := New().WithFile(path).WithEnvironment("collaudo").Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Host != "uat.example" {
		t.Errorf("Host = %q, want %q", cfg.Host, "uat.example")
	}
	if cfg.Port != 8443 {
		t.Errorf("Port = %d, want %d", cfg.Port, 8443)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if len(cfg.Tags) != 2 || cfg.Tags[0] != "a" || cfg.Tags[1] != "b" {
		t.Errorf("Tags = %v, want [a b]", cfg.Tags)
	}
}

// TestLoader_Load_NumericDurationIsSeconds verifies that a bare number in
// the file is read as seconds.
func TestLoader_Load_NumericDurationIsSeconds(t *testing.T) {
	path := writeTestFile(t, "config.json", multiEnvJSON)

	var cfg basicConfig
	if err := New().WithFile(path).WithEnvironment("produzione").Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m", cfg.Timeout)
	}
	if cfg.Debug {
		t.Error("Debug = true, want default false")
	}
}

// TestLoader_Load_UnknownEnvironment verifies the dedicated error code for
// an environment key absent from the file.
func TestLoader_Load_UnknownEnvironment(t *testing.T) {
	path := writeTestFile(t, "config.json", multiEnvJSON)

	var cfg basicConfig
	err := New().WithFile(path).WithEnvironment("sviluppo").Load(&cfg)
	if !sserr.HasCode(err, sserr.CodeConfigurationEnvironment) {
		t.Fatalf("Load() error = %v, want CodeConfigurationEnvironment", err)
	}
}

// TestLoader_Load_EnvironmentNotObject verifies that a scalar environment
// value is rejected.
func TestLoader_Load_EnvironmentNotObject(t *testing.T) {
	path := writeTestFile(t, "config.json", `{"collaudo": "nope"}`)

	var cfg basicConfig
	err := New().WithFile(path).WithEnvironment("collaudo").Load(&cfg)
	if !sserr.HasCode(err, sserr.CodeConfigurationEnvironment) {
		t.Fatalf("Load() error = %v, want CodeConfigurationEnvironment", err)
	}
}

// TestLoader_Load_FlatDocument verifies that without an environment the
// whole document is one section.
func TestLoader_Load_FlatDocument(t *testing.T) {
	path := writeTestFile(t, "config.json", `{"host": "flat", "port": 1}`)

	var cfg basicConfig
	if err := New().WithFile(path).Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Host != "flat" || cfg.Port != 1 {
		t.Errorf("cfg = %+v, want host=flat port=1", cfg)
	}
}

// TestLoader_Load_YAMLFile verifies YAML files with environment sections.
func TestLoader_Load_YAMLFile(t *testing.T) {
	path := writeTestFile(t, "config.yaml", `
collaudo:
  host: yaml-host
  port: 3000
  timeout: 15s
  redis:
    host: cache.local
    db: 2
`)

	var cfg basicConfig
	if err := New().WithFile(path).WithEnvironment("collaudo").Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Host != "yaml-host" || cfg.Port != 3000 || cfg.Timeout != 15*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}

	var nested nestedConfig
	if err := New().WithFile(path).WithEnvironment("collaudo").Load(&nested); err != nil {
		t.Fatalf("Load() nested error: %v", err)
	}
	if nested.Redis.Host != "cache.local" || nested.Redis.DB != 2 {
		t.Errorf("nested = %+v", nested)
	}
}

// TestLoader_Load_MissingFile verifies that a configured file must exist.
func TestLoader_Load_MissingFile(t *testing.T) {
	var cfg basicConfig
	err := New().WithFile(filepath.Join(t.TempDir(), "missing.json")).Load(&cfg)
	if !sserr.HasCode(err, sserr.CodeConfiguration) {
		t.Fatalf("Load() error = %v, want CodeConfiguration", err)
	}
}

// TestLoader_Load_FileErrors covers unreadable and unsupported files.
func TestLoader_Load_FileErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"invalid json", "config.json", `{"collaudo": `},
		{"invalid yaml", "config.yaml", "collaudo: [unclosed"},
		{"unsupported extension", "config.toml", `host = "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, tt.file, tt.body)
			var cfg basicConfig
			if err := New().WithFile(path).Load(&cfg); !sserr.IsConfiguration(err) {
				t.Fatalf("Load() error = %v, want configuration error", err)
			}
		})
	}
}

// TestLoader_Load_ParentRelativePath verifies that a path leaving the
// working directory is read like any other.
func TestLoader_Load_ParentRelativePath(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "configs"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "work"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "configs", "config.json"), []byte(`{"host": "parent"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(filepath.Join(root, "work"))

	var cfg basicConfig
	if err := New().WithFile("../configs/config.json").Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "parent" {
		t.Errorf("Host = %q, want %q", cfg.Host, "parent")
	}
}

// TestLoader_Load_DotsInFileName verifies that ".." inside a file name is
// not mistaken for a parent directory.
func TestLoader_Load_DotsInFileName(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, "v1..2.json", `{"host": "dots"}`)

	var cfg basicConfig
	if err := New().WithFile(path).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "dots" {
		t.Errorf("Host = %q, want %q", cfg.Host, "dots")
	}
}

// TestLoader_Load_InvalidValueType verifies that a nested object where a
// scalar is expected is rejected.
func TestLoader_Load_InvalidValueType(t *testing.T) {
	path := writeTestFile(t, "config.json", `{"host": {"nested": true}}`)

	var cfg basicConfig
	if err := New().WithFile(path).Load(&cfg); !sserr.IsConfiguration(err) {
		t.Fatalf("Load() error = %v, want configuration error", err)
	}
}

// ===========================================================================
// Load: Environment Variables
// ===========================================================================

// TestLoader_Load_EnvOverridesFile verifies that prefixed environment
// variables take precedence over file values.
func TestLoader_Load_EnvOverridesFile(t *testing.T) {
	path := writeTestFile(t, "config.json", multiEnvJSON)
	t.Setenv("PDND_HOST", "from-env")
	t.Setenv("PDND_TOKEN", "s3cret")

	var cfg basicConfig
	err := New().WithFile(path).WithEnvironment("collaudo").WithEnvPrefix("pdnd").Load(&cfg)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Host != "from-env" {
		t.Errorf("Host = %q, want %q", cfg.Host, "from-env")
	}
	if cfg.Port != 8443 {
		t.Errorf("Port = %d, want file value 8443", cfg.Port)
	}
	if cfg.Token.Value() != "s3cret" {
		t.Errorf("Token.Value() = %q, want %q", cfg.Token.Value(), "s3cret")
	}
}

// TestLoader_Load_NestedEnvPrefix verifies nested struct env prefixes.
func TestLoader_Load_NestedEnvPrefix(t *testing.T) {
	t.Setenv("PDND_REDIS_HOST", "redis.env")

	var cfg nestedConfig
	if err := New().WithEnvPrefix("PDND").Load(&cfg); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Redis.Host != "redis.env" {
		t.Errorf("Redis.Host = %q, want %q", cfg.Redis.Host, "redis.env")
	}
}

// TestLoader_Load_InvalidEnvValues verifies parse failures from env vars.
func TestLoader_Load_InvalidEnvValues(t *testing.T) {
	tests := []struct{ key, value string }{
		{"PORT", "not-a-number"},
		{"DEBUG", "maybe"},
		{"TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			var cfg basicConfig
			if err := New().Load(&cfg); !sserr.IsConfiguration(err) {
				t.Fatalf("Load() error = %v, want configuration error", err)
			}
		})
	}
}

// ===========================================================================
// Load: Validation
// ===========================================================================

// TestLoader_Load_RequiredField_Missing verifies the missing-setting code
// and that the message names the json key.
func TestLoader_Load_RequiredField_Missing(t *testing.T) {
	var cfg requiredConfig
	err := New().Load(&cfg)
	if !sserr.HasCode(err, sserr.CodeConfigurationMissing) {
		t.Fatalf("Load() error = %v, want CodeConfigurationMissing", err)
	}
	e, _ := sserr.AsError(err)
	if e.Message != `config: required setting "name" is empty` {
		t.Errorf("Message = %q", e.Message)
	}
}

// TestLoader_Load_NestedRequiredField_Missing verifies the dotted path.
func TestLoader_Load_NestedRequiredField_Missing(t *testing.T) {
	var cfg nestedConfig
	err := New().Load(&cfg)
	e, ok := sserr.AsError(err)
	if !ok || e.Code != sserr.CodeConfigurationMissing {
		t.Fatalf("Load() error = %v, want CodeConfigurationMissing", err)
	}
	if e.Message != `config: required setting "redis.host" is empty` {
		t.Errorf("Message = %q", e.Message)
	}
}

// TestLoader_Load_Validator_StdlibError verifies that plain errors from a
// Validator are wrapped as configuration errors.
func TestLoader_Load_Validator_StdlibError(t *testing.T) {
	var cfg validatableStdlibConfig
	if err := New().Load(&cfg); !sserr.HasCode(err, sserr.CodeConfiguration) {
		t.Fatalf("Load() error = %v, want CodeConfiguration", err)
	}
}

// TestMustLoad verifies both the success and panic paths.
func TestMustLoad(t *testing.T) {
	cfg := MustLoad[basicConfig](New())
	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want %q", cfg.Host, "localhost")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustLoad() did not panic on missing required field")
		}
	}()
	_ = MustLoad[requiredConfig](New())
}

// ===========================================================================
// Environment
// ===========================================================================

// TestLoader_Environment_Get verifies the raw key-value accessor.
func TestLoader_Environment_Get(t *testing.T) {
	path := writeTestFile(t, "config.json", multiEnvJSON)

	env, err := New().WithFile(path).WithEnvironment("collaudo").Environment()
	if err != nil {
		t.Fatalf("Environment() error: %v", err)
	}

	if env.Name() != "collaudo" {
		t.Errorf("Name() = %q", env.Name())
	}
	if got := env.Get("host", nil); got != "uat.example" {
		t.Errorf("Get(host) = %v", got)
	}
	if got := env.Get("purposeId", "fallback"); got != "fallback" {
		t.Errorf("Get(missing) = %v, want fallback", got)
	}
	if got := env.GetString("port", ""); got != "8443" {
		t.Errorf("GetString(port) = %q, want %q", got, "8443")
	}
	if got := env.GetString("missing", "def"); got != "def" {
		t.Errorf("GetString(missing) = %q, want def", got)
	}
	keys := env.Keys()
	if len(keys) != 5 || keys[0] != "debug" {
		t.Errorf("Keys() = %v", keys)
	}
}

// TestLoader_Environment_NoFile verifies the error without a file.
func TestLoader_Environment_NoFile(t *testing.T) {
	if _, err := New().Environment(); !sserr.IsConfiguration(err) {
		t.Fatalf("Environment() error = %v, want configuration error", err)
	}
}
