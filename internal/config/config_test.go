package config

import (
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 16, cfg.MaxJobs)
	assert.Equal(t, 127, cfg.NotFoundStatus)
	assert.Equal(t, os.FileMode(0644), cfg.FileMode())
	assert.Equal(t, `\u@\h:\w\$ `, cfg.Prompt)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "/etc/jobsh.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/home/u/.config/jobsh/jobsh.yaml", []byte(`
max_jobs: 4
output_mode: "0600"
log_level: debug
`), 0644))

	for _, path := range []string{"/home/u/.config/jobsh/jobsh.yaml", "/home/u/.config/jobsh"} {
		t.Run(path, func(t *testing.T) {
			cfg, err := Load(fsys, path)
			require.NoError(t, err)

			assert.Equal(t, 4, cfg.MaxJobs)
			assert.Equal(t, os.FileMode(0600), cfg.FileMode())
			assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
			// Untouched fields keep their defaults.
			assert.Equal(t, 64, cfg.EventQueue)
			assert.True(t, cfg.Color)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "max_job: 3\n",
		"zero capacity":  "max_jobs: 0\n",
		"huge status":    "not_found_status: 300\n",
		"bad mode":       "output_mode: \"0999\"\n",
		"mode too large": "output_mode: \"7777\"\n",
		"bad level":      "log_level: loud\n",
		"empty prompt":   "prompt: \"\"\n",
		"not yaml":       "max_jobs: [\n",
	}

	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, "jobsh.yaml", []byte(contents), 0644))

			_, err := Load(fsys, "jobsh.yaml")
			assert.Error(t, err)
		})
	}
}
