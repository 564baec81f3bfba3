package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// field is one settable leaf of Config, addressed as "section.key".
type field struct {
	key   string
	value reflect.Value
}

// fields walks cfg using the toml tags, so keys always match the file format.
func fields(cfg *Config) []field {
	var out []field
	root := reflect.ValueOf(cfg).Elem()
	for i := 0; i < root.NumField(); i++ {
		section := tagName(root.Type().Field(i))
		sv := root.Field(i)
		for j := 0; j < sv.NumField(); j++ {
			out = append(out, field{
				key:   section + "." + tagName(sv.Type().Field(j)),
				value: sv.Field(j),
			})
		}
	}
	return out
}

func tagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	var keys []string
	for _, f := range fields(Default()) {
		keys = append(keys, f.key)
	}
	sort.Strings(keys)
	return keys
}

// SetValue parses raw according to the key's type and stores it in cfg.
func SetValue(cfg *Config, key, raw string) error {
	for _, f := range fields(cfg) {
		if f.key != key {
			continue
		}
		switch f.value.Kind() {
		case reflect.String:
			f.value.SetString(raw)
		case reflect.Int:
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%s must be an integer", key)
			}
			f.value.SetInt(int64(n))
		case reflect.Bool:
			b, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%s must be true or false", key)
			}
			f.value.SetBool(b)
		default:
			return fmt.Errorf("%s has unsupported type %s", key, f.value.Kind())
		}
		return nil
	}
	return fmt.Errorf("unknown config key %q", key)
}

// envName maps "poll.snapshot_interval" to STARTIFY_POLL_SNAPSHOT_INTERVAL.
func envName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	for _, key := range Keys() {
		v, ok := lookup(envName(key))
		if !ok || v == "" {
			continue
		}
		if err := SetValue(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", envName(key), err)
		}
	}
	return nil
}
