// Copyright 2025 The Tenet Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config implements engine configuration parsing and validation.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/tenet-prover/tenet/logging"
	"github.com/tenet-prover/tenet/types"
)

// Config represents the configuration the closure engine can be started
// with. Fields left unset assume their defaults when the configuration is
// parsed or validated.
type Config struct {
	// IgnoreInstances erases instance-implicit arguments from congruence
	// keys, so applications differing only in resolved instances collide.
	IgnoreInstances *bool `json:"ignore_instances,omitempty"`
	// Values treats literals as interpreted values, enabling disequality
	// propagation between distinct literals.
	Values *bool `json:"values,omitempty"`
	// AllHO disables the first-order approximation for every function
	// symbol, tracking occurrences of all partial applications.
	AllHO *bool `json:"all_ho,omitempty"`
	// FOFns lists the function symbols internalized first-order: child
	// occurrences are recorded at full arity only and partial applications
	// are skipped. Congruence detection is intentionally incomplete for
	// these symbols at other arities. Ignored when AllHO is true.
	FOFns []string `json:"fo_fns,omitempty"`
	// Transparency names the unfolding mode used when comparing congruence
	// keys: all, reducible or none.
	Transparency *string `json:"transparency,omitempty"`
	// LogLevel names the minimum level emitted by the engine logger.
	LogLevel *string `json:"log_level,omitempty"`
}

// ParseConfig returns a valid Config object with defaults injected. The raw
// bytes can be YAML or JSON. Unknown fields are rejected.
func ParseConfig(raw []byte) (*Config, error) {
	var result Config
	objValue := reflect.ValueOf(&result).Elem()
	knownFields := map[string]reflect.Value{}
	for i := 0; i != objValue.NumField(); i++ {
		jsonName := strings.Split(objValue.Type().Field(i).Tag.Get("json"), ",")[0]
		knownFields[jsonName] = objValue.Field(i)
	}

	var fields map[string]json.RawMessage
	if err := unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	var unknown []string
	for key, chunk := range fields {
		field, found := knownFields[key]
		if !found {
			unknown = append(unknown, key)
			continue
		}
		if err := unmarshal(chunk, field.Addr().Interface()); err != nil {
			return nil, fmt.Errorf("invalid value for %v: %w", key, err)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown configuration keys: %v", strings.Join(unknown, ", "))
	}

	return &result, result.validateAndInjectDefaults()
}

// Default returns the configuration assumed when no configuration is
// supplied.
func Default() *Config {
	c := &Config{}
	// Defaults cannot fail validation.
	_ = c.validateAndInjectDefaults()
	return c
}

// TransparencyMode returns the configured transparency as a types mode.
func (c *Config) TransparencyMode() types.Transparency {
	m, _ := types.TransparencyFromString(*c.Transparency)
	return m
}

// Level returns the configured log level.
func (c *Config) Level() logging.Level {
	l, _ := logging.ParseLevel(*c.LogLevel)
	return l
}

func (c *Config) validateAndInjectDefaults() error {
	if c.IgnoreInstances == nil {
		c.IgnoreInstances = boolPtr(true)
	}
	if c.Values == nil {
		c.Values = boolPtr(true)
	}
	if c.AllHO == nil {
		c.AllHO = boolPtr(false)
	}
	if c.Transparency == nil {
		c.Transparency = stringPtr(types.TransparencyAll.String())
	} else if _, err := types.TransparencyFromString(*c.Transparency); err != nil {
		return err
	}
	if c.LogLevel == nil {
		c.LogLevel = stringPtr(logging.Info.String())
	} else if _, err := logging.ParseLevel(*c.LogLevel); err != nil {
		return err
	}
	return nil
}

// unmarshal decodes a YAML or JSON value into the specified type.
func unmarshal(bs []byte, v any) error {
	if json.Valid(bs) {
		decoder := json.NewDecoder(strings.NewReader(string(bs)))
		decoder.UseNumber()
		return decoder.Decode(v)
	}
	nbs, err := yaml.YAMLToJSON(bs)
	if err != nil {
		return fmt.Errorf("error converting YAML to JSON: %w", err)
	}
	return unmarshal(nbs, v)
}

func boolPtr(v bool) *bool {
	return &v
}

func stringPtr(v string) *string {
	return &v
}
