package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/zone"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes the environment variables that override server settings
const EnvPrefix = "MULTIZONE_"

// Config represents the complete configuration of one app
type Config struct {
	Server struct {
		Name        string `yaml:"name"`
		Listen      string `yaml:"listen"`
		LogLevel    string `yaml:"log_level"`
		AssetPrefix string `yaml:"asset_prefix"`
		AssetRoot   string `yaml:"asset_root"`
		TLS         struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
			CAFile   string `yaml:"ca_file"`
		} `yaml:"tls"`
	} `yaml:"server"`

	Zones []ZoneConfig `yaml:"zones"`

	Headers struct {
		Templates []HeaderTemplate `yaml:"templates"`
		Inject    []HeaderInject   `yaml:"inject"`
	} `yaml:"headers"`
}

// HeaderTemplate is a named template given inline or read from a file
type HeaderTemplate struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	File     string `yaml:"file"`
}

// HeaderInject adds a header to requests forwarded to a zone ("*" for all).
// The value is an inline template or a reference to a named one.
type HeaderInject struct {
	Zone     string `yaml:"zone"`
	Header   string `yaml:"header"`
	Template string `yaml:"template"`
	Ref      string `yaml:"ref"`
}

// ZoneConfig describes one zone the app forwards to
type ZoneConfig struct {
	Name        string `yaml:"name"`
	Destination struct {
		Policy  string   `yaml:"policy"`
		Env     []string `yaml:"env"`
		Default string   `yaml:"default"`
	} `yaml:"destination"`
}

// DefaultMain returns the orchestrating app's built-in configuration
func DefaultMain() *Config {
	var c Config
	c.Server.Name = "main-app"
	c.Server.Listen = ":3000"
	c.Server.LogLevel = "info"

	var z ZoneConfig
	z.Name = "zone-one"
	z.Destination.Policy = string(zone.PolicyEnv)
	z.Destination.Env = []string{"NEXT_PUBLIC_ZONE_ONE_DOMAIN", "ZONE_ONE_DOMAIN"}
	z.Destination.Default = "http://localhost:3001"
	c.Zones = []ZoneConfig{z}
	return &c
}

// DefaultZone returns zone-one's built-in configuration
func DefaultZone() *Config {
	var c Config
	c.Server.Name = "zone-one"
	c.Server.Listen = ":3001"
	c.Server.LogLevel = "info"
	c.Server.AssetPrefix = "/zone-one-static"
	c.Server.AssetRoot = "_next"
	return &c
}

// Load starts from defaults (may be nil), decodes the YAML file at path on
// top when path is set, applies environment overrides from env, and
// validates the result.
func Load(path string, defaults *Config, env zone.Env) (*Config, error) {
	var config Config
	if defaults != nil {
		config = *defaults
		config.Zones = append([]ZoneConfig(nil), defaults.Zones...)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if env != nil {
		setConfigFromEnv(&config, env)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setConfigFromEnv overrides string fields of the server section from
// variables named after their yaml path, e.g. MULTIZONE_SERVER_LISTEN.
func setConfigFromEnv(cfg *Config, env zone.Env) {
	var walk func(v reflect.Value, prefix string)
	walk = func(v reflect.Value, prefix string) {
		typ := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			name := strings.ToUpper(prefix + typ.Field(i).Tag.Get("yaml"))
			switch field.Kind() {
			case reflect.Struct:
				walk(field, name+"_")
			case reflect.String:
				if val, ok := env(name); ok && val != "" {
					field.SetString(val)
				}
			}
		}
	}
	walk(reflect.ValueOf(&cfg.Server).Elem(), EnvPrefix+"SERVER_")
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// validate checks if the configuration is valid and fills in defaults
func (c *Config) validate() error {
	if c.Server.Name == "" {
		return invalid("server.name is required")
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":3000"
	}
	if _, err := logger.ParseLevel(c.Server.LogLevel); err != nil {
		return invalid("server.log_level: %v", err)
	}

	if c.Server.AssetPrefix != "" {
		if !strings.HasPrefix(c.Server.AssetPrefix, "/") || strings.Trim(c.Server.AssetPrefix, "/") == "" {
			return invalid("server.asset_prefix %q must be an absolute path below /", c.Server.AssetPrefix)
		}
		c.Server.AssetPrefix = strings.TrimRight(c.Server.AssetPrefix, "/")
	}
	c.Server.AssetRoot = strings.Trim(c.Server.AssetRoot, "/")
	if c.Server.AssetRoot == "" {
		c.Server.AssetRoot = "_next"
	}
	if strings.Contains(c.Server.AssetRoot, "/") {
		return invalid("server.asset_root %q must be a single path segment", c.Server.AssetRoot)
	}

	tls := c.Server.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return invalid("server.tls.cert_file and server.tls.key_file must be set together")
	}
	if tls.CAFile != "" && tls.CertFile == "" {
		return invalid("server.tls.ca_file requires cert_file and key_file")
	}
	for _, f := range []string{tls.CertFile, tls.KeyFile, tls.CAFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return invalid("server.tls: %v", err)
		}
	}

	seen := make(map[string]bool)
	for i := range c.Zones {
		z := &c.Zones[i]
		if err := zone.ValidateName(z.Name); err != nil {
			return invalid("zones[%d]: %v", i, err)
		}
		if seen[z.Name] {
			return invalid("zones[%d]: duplicate zone %q", i, z.Name)
		}
		seen[z.Name] = true

		d := &z.Destination
		if d.Policy == "" {
			d.Policy = string(zone.PolicyEnv)
		}
		switch zone.Policy(d.Policy) {
		case zone.PolicyEnv, zone.PolicyStatic:
		default:
			return invalid("zones[%d].destination.policy %q must be env or static", i, d.Policy)
		}
		if zone.Policy(d.Policy) == zone.PolicyEnv && len(d.Env) == 0 {
			return invalid("zones[%d].destination.env needs at least one variable name", i)
		}
		if d.Default == "" {
			return invalid("zones[%d].destination.default is required", i)
		}
		if err := zone.ValidateBaseURL(d.Default); err != nil {
			return invalid("zones[%d].destination.default: %v", i, err)
		}
	}

	named := make(map[string]bool)
	for i, tmpl := range c.Headers.Templates {
		if tmpl.Name == "" {
			return invalid("headers.templates[%d] needs a name", i)
		}
		if (tmpl.Template == "") == (tmpl.File == "") {
			return invalid("headers.templates[%d] needs exactly one of template and file", i)
		}
		if tmpl.File != "" {
			if _, err := os.Stat(tmpl.File); err != nil {
				return invalid("headers.templates[%d]: %v", i, err)
			}
		}
		named[tmpl.Name] = true
	}
	for i, h := range c.Headers.Inject {
		if h.Zone == "" || h.Header == "" {
			return invalid("headers.inject[%d] needs zone and header", i)
		}
		if (h.Template == "") == (h.Ref == "") {
			return invalid("headers.inject[%d] needs exactly one of template and ref", i)
		}
		if h.Ref != "" && !named[h.Ref] {
			return invalid("headers.inject[%d] references unknown template %q", i, h.Ref)
		}
	}

	return nil
}

// Level returns the parsed log level
func (c *Config) Level() logger.LogLevel {
	level, _ := logger.ParseLevel(c.Server.LogLevel)
	return level
}

// ResolveZones resolves every configured zone's base URL against env, in
// configuration order
func (c *Config) ResolveZones(env zone.Env) []zone.Zone {
	r := zone.NewResolver(env)
	zones := make([]zone.Zone, 0, len(c.Zones))
	for _, z := range c.Zones {
		zones = append(zones, r.ResolveZone(z.Name, zone.Destination{
			Policy:     zone.Policy(z.Destination.Policy),
			Candidates: z.Destination.Env,
			Default:    z.Destination.Default,
		}))
	}
	return zones
}
