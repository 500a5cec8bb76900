package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/zone"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "cert.pem")
	keyPath := filepath.Join(tmpDir, "key.pem")
	for _, path := range []string{certPath, keyPath} {
		assert.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	}

	configPath := writeConfig(t, `
server:
  name: main-app
  listen: :8080
  log_level: debug
  tls:
    cert_file: `+certPath+`
    key_file: `+keyPath+`

zones:
  - name: zone-one
    destination:
      env: [NEXT_PUBLIC_ZONE_ONE_DOMAIN, ZONE_ONE_DOMAIN]
      default: http://localhost:3001
  - name: blog
    destination:
      policy: static
      default: https://blog.example.com/

headers:
  templates:
    - name: origin
      template: "{{.Host}}"
  inject:
    - zone: "*"
      header: X-Forwarded-Zone
      template: "{{.Zone}}"
`)

	config, err := Load(configPath, nil, zone.MapEnv(nil))
	assert.NoError(t, err)

	assert.Equal(t, "main-app", config.Server.Name)
	assert.Equal(t, ":8080", config.Server.Listen)
	assert.Equal(t, logger.LevelDebug, config.Level())
	assert.Equal(t, certPath, config.Server.TLS.CertFile)
	assert.Len(t, config.Zones, 2)
	assert.Equal(t, "env", config.Zones[0].Destination.Policy)
	assert.Equal(t, "static", config.Zones[1].Destination.Policy)
	assert.Len(t, config.Headers.Templates, 1)
	assert.Equal(t, "X-Forwarded-Zone", config.Headers.Inject[0].Header)

	zones := config.ResolveZones(zone.MapEnv(map[string]string{
		"ZONE_ONE_DOMAIN": "https://z1.example/",
	}))
	assert.Equal(t, []zone.Zone{
		{Name: "zone-one", BaseURL: "https://z1.example"},
		{Name: "blog", BaseURL: "https://blog.example.com"},
	}, zones)

	_, err = Load(filepath.Join(tmpDir, "missing.yaml"), nil, zone.OSEnv())
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	main, err := Load("", DefaultMain(), zone.MapEnv(nil))
	assert.NoError(t, err)
	assert.Equal(t, ":3000", main.Server.Listen)
	assert.Equal(t, []zone.Zone{{Name: "zone-one", BaseURL: "http://localhost:3001"}}, main.ResolveZones(zone.MapEnv(nil)))

	z, err := Load("", DefaultZone(), zone.MapEnv(nil))
	assert.NoError(t, err)
	assert.Equal(t, ":3001", z.Server.Listen)
	assert.Equal(t, "/zone-one-static", z.Server.AssetPrefix)
	assert.Equal(t, "_next", z.Server.AssetRoot)
	assert.Empty(t, z.Zones)
}

func TestDefaultsNotShared(t *testing.T) {
	defaults := DefaultMain()
	path := writeConfig(t, `
zones:
  - name: other
    destination:
      env: [OTHER_DOMAIN]
      default: http://localhost:3009
`)
	c, err := Load(path, defaults, zone.MapEnv(nil))
	assert.NoError(t, err)
	assert.Equal(t, "other", c.Zones[0].Name)
	assert.Equal(t, "zone-one", defaults.Zones[0].Name)
}

func TestEnvOverrides(t *testing.T) {
	env := zone.MapEnv(map[string]string{
		"MULTIZONE_SERVER_LISTEN":        ":9000",
		"MULTIZONE_SERVER_LOG_LEVEL":     "warn",
		"MULTIZONE_SERVER_ASSET_PREFIX":  "/assets/",
		"MULTIZONE_SERVER_TLS_CERT_FILE": "",
	})
	c, err := Load("", DefaultZone(), env)
	assert.NoError(t, err)
	assert.Equal(t, ":9000", c.Server.Listen)
	assert.Equal(t, logger.LevelWarn, c.Level())
	assert.Equal(t, "/assets", c.Server.AssetPrefix)
	assert.Empty(t, c.Server.TLS.CertFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing server name",
			content: "server:\n  listen: :3000\n",
		},
		{
			name:    "bad log level",
			content: "server:\n  name: a\n  log_level: loud\n",
		},
		{
			name:    "relative asset prefix",
			content: "server:\n  name: a\n  asset_prefix: zone-one-static\n",
		},
		{
			name:    "nested asset root",
			content: "server:\n  name: a\n  asset_root: _next/static\n",
		},
		{
			name:    "cert without key",
			content: "server:\n  name: a\n  tls:\n    cert_file: /tmp/cert.pem\n",
		},
		{
			name:    "missing cert file",
			content: "server:\n  name: a\n  tls:\n    cert_file: /nonexistent/cert.pem\n    key_file: /nonexistent/key.pem\n",
		},
		{
			name: "env policy without default",
			content: `
server: {name: a}
zones:
  - name: zone-one
    destination:
      env: [ZONE_ONE_DOMAIN]
`,
		},
		{
			name: "env policy without variables",
			content: `
server: {name: a}
zones:
  - name: zone-one
    destination:
      default: http://localhost:3001
`,
		},
		{
			name: "malformed default",
			content: `
server: {name: a}
zones:
  - name: zone-one
    destination:
      policy: static
      default: localhost:3001
`,
		},
		{
			name: "unknown policy",
			content: `
server: {name: a}
zones:
  - name: zone-one
    destination:
      policy: dns
      default: http://localhost:3001
`,
		},
		{
			name: "duplicate zone",
			content: `
server: {name: a}
zones:
  - {name: zone-one, destination: {policy: static, default: "http://a.example"}}
  - {name: zone-one, destination: {policy: static, default: "http://b.example"}}
`,
		},
		{
			name: "invalid zone name",
			content: `
server: {name: a}
zones:
  - {name: "Zone One", destination: {policy: static, default: "http://a.example"}}
`,
		},
		{
			name: "template with inline and file",
			content: `
server: {name: a}
headers:
  templates:
    - {name: t, template: "{{.Zone}}", file: /tmp/t.tmpl}
`,
		},
		{
			name: "missing template file",
			content: `
server: {name: a}
headers:
  templates:
    - {name: t, file: /nonexistent/t.tmpl}
`,
		},
		{
			name: "unknown template ref",
			content: `
server: {name: a}
headers:
  inject:
    - {zone: "*", header: X-Zone, ref: missing}
`,
		},
		{
			name: "header without zone",
			content: `
server: {name: a}
headers:
  inject:
    - header: X-Zone
      template: "{{.Zone}}"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil, zone.MapEnv(nil))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSampleConfigs(t *testing.T) {
	main, err := Load("../../configs/main-app.yaml", DefaultMain(), zone.MapEnv(nil))
	assert.NoError(t, err)
	assert.Equal(t, "main-app", main.Server.Name)
	assert.Len(t, main.Headers.Inject, 2)

	z, err := Load("../../configs/zone-one.yaml", DefaultZone(), zone.MapEnv(nil))
	assert.NoError(t, err)
	assert.Equal(t, "/zone-one-static", z.Server.AssetPrefix)
}
