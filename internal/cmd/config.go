package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Thiagojm/go-bitbabbler/internal/configpaths"
)

// ConfigCommand groups configuration helpers.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Write a configuration template"`
}

// ConfigInit writes a template holding every configurable flag with its
// default, in the format the startup loader will read back.
type ConfigInit struct {
	Format string `help:"Template format" enum:"json,yaml,toml" default:"json"`
	Output string `short:"o" help:"Destination path (defaults to the user config directory)"`
	Force  bool   `help:"Overwrite an existing file"`
}

func (c *ConfigInit) Run(logger *slog.Logger) error {
	dest := c.Output
	if dest == "" {
		var err error
		dest, err = configpaths.DefaultConfigPath(c.Format)
		if err != nil {
			return err
		}
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s exists, use --force to overwrite", dest)
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	root := configTemplate()
	var data []byte
	var err error
	switch c.Format {
	case "yaml":
		data, err = yaml.Marshal(root)
	case "toml":
		data, err = toml.Marshal(root)
	default:
		data, err = json.MarshalIndent(root, "", "  ")
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	logger.Info("configuration template written", "path", dest, "format", c.Format)
	return nil
}

// configTemplate builds the template map from the flag structs, so defaults
// stay in one place.
func configTemplate() map[string]any {
	root := buildMapFromStruct(reflect.TypeOf(DeviceFlags{}))
	root["log"] = buildMapFromStruct(reflect.TypeOf(LogConfig{}))
	return root
}

// buildMapFromStruct derives config keys and default values from a flag
// struct's fields and tags. Keys are the snake_case form the config resolver
// looks up; embedded structs with a prefix become nested maps.
func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("kong") == "-" {
			continue
		}
		if _, isCmd := f.Tag.Lookup("cmd"); isCmd {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			sub := buildMapFromStruct(f.Type)
			if name := strings.TrimSuffix(f.Tag.Get("prefix"), "."); name != "" {
				out[name] = sub
			} else {
				for k, v := range sub {
					out[k] = v
				}
			}
			continue
		}

		if val := defaultValueForField(f.Type, f.Tag.Get("default")); val != nil {
			out[configKey(f.Name)] = val
		}
	}
	return out
}

// configKey converts a Go field name to the snake_case key the resolver uses
// (OutDir becomes out_dir).
func configKey(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def != "" {
			return def
		}
		return "0s"
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return false
		}
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(def, 10, 64)
		if err != nil {
			return int64(0)
		}
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(def, 10, 64)
		if err != nil {
			return uint64(0)
		}
		return n
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return float64(0)
		}
		return f
	case reflect.Struct:
		return buildMapFromStruct(t)
	default:
		return nil
	}
}
