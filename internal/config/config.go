// Package config loads the shell's settings from a YAML file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const ConfigurationName = "jobsh.yaml"

type Configuration struct {
	MaxJobs        int    `json:"max_jobs" validate:"gte=1,lte=1024"`
	EventQueue     int    `json:"event_queue" validate:"gte=1,lte=4096"`
	NotFoundStatus int    `json:"not_found_status" validate:"gte=1,lte=255"`
	OutputMode     string `json:"output_mode" validate:"required,filemode"`
	Prompt         string `json:"prompt" validate:"required"`
	HistoryLimit   int    `json:"history_limit" validate:"gte=0"`
	LogLevel       string `json:"log_level" validate:"oneof=debug info warn error"`
	Color          bool   `json:"color"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	if err := validate.RegisterValidation("filemode", func(fl validator.FieldLevel) bool {
		_, err := parseMode(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}

	return validate.Struct(c)
}

// FileMode returns the permission bits for created output files.
func (c *Configuration) FileMode() os.FileMode {
	mode, err := parseMode(c.OutputMode)
	if err != nil {
		return 0644
	}
	return mode
}

func (c *Configuration) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

func parseMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	if v > 0777 {
		return 0, fmt.Errorf("mode %s out of range", s)
	}
	return os.FileMode(v), nil
}

func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Load reads path from fsys over the built-in defaults. A missing file is not
// an error; an unreadable or invalid one is. If path names a directory the
// file ConfigurationName inside it is used.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	out := Default()
	if path == "" {
		return out, nil
	}

	if info, err := fsys.Stat(path); err == nil && info.IsDir() {
		path = strings.TrimSuffix(path, "/") + "/" + ConfigurationName
	}

	contents, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return out, nil
	case err != nil:
		return nil, err
	}

	if err := yaml.UnmarshalStrict(contents, out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
