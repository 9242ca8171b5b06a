//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package suite

import (
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-dialogtest-go/errs"
)

type suiteFile struct {
	SuiteSpec *suiteSpec `yaml:"suite-spec"`
	Tests     []*Test    `yaml:"tests"`
}

type suiteSpec struct {
	Name   string              `yaml:"name"`
	Type   string              `yaml:"type"`
	Config []map[string]string `yaml:"config"`
}

// Load reads, decodes and validates a suite file.
func Load(path string) (*Suite, *errs.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "cannot read suite file "+path, err)
	}
	return Parse(data)
}

// Parse decodes and validates suite YAML.
func Parse(data []byte) (*Suite, *errs.Error) {
	var file suiteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errs.Wrap(errs.KindYamlParsing, "cannot parse suite file", err)
	}

	s := &Suite{Tests: file.Tests}
	if file.SuiteSpec != nil {
		s.Name = file.SuiteSpec.Name
		s.Type = Type(file.SuiteSpec.Type)
		s.Config = flattenConfig(file.SuiteSpec.Config)
	}
	for _, t := range s.Tests {
		if t != nil && t.Lang == "" {
			t.Lang = DefaultLang
		}
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// flattenConfig folds the YAML sequence of single-key mappings into one map.
// A key given twice keeps the last value.
func flattenConfig(entries []map[string]string) map[string]string {
	config := make(map[string]string, len(entries))
	for _, entry := range entries {
		for k, v := range entry {
			config[k] = v
		}
	}
	return config
}

// Validate checks the structural rules of a suite. Messages are stable:
// reporters and callers match on them.
func Validate(s *Suite) *errs.Error {
	if s.Name == "" {
		return errs.New(errs.KindYamlParsing, "Suite name not specified")
	}
	if s.Type == "" {
		return errs.New(errs.KindYamlParsing, "Suite type not specified")
	}
	if s.Type != TypeDialogflow && s.Type != TypeVAP {
		return errs.New(errs.KindYamlParsing, "Unknown suite type found: "+string(s.Type))
	}
	if len(s.Tests) == 0 {
		return errs.New(errs.KindYamlParsing, "No tests found in suite")
	}
	for _, t := range s.Tests {
		if err := validateTest(t); err != nil {
			return err
		}
	}
	return nil
}

func validateTest(t *Test) *errs.Error {
	if t == nil || t.Name == "" {
		return errs.New(errs.KindYamlParsing, "Test name not specified")
	}
	if _, err := language.Parse(t.Lang); err != nil {
		return errs.New(errs.KindYamlParsing, "Unsupported language tag: "+t.Lang)
	}
	if len(t.Assertions) == 0 {
		return errs.New(errs.KindYamlParsing, "Test assertions missing for "+t.Name)
	}
	for _, a := range t.Assertions {
		if err := validateAssertion(t.Name, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(testName string, a *Assertion) *errs.Error {
	if a == nil || a.UserSays == "" {
		return errs.New(errs.KindYamlParsing, "Test assertions missing userSays for "+testName)
	}
	if len(a.BotRespondsWith) == 0 {
		return errs.New(errs.KindYamlParsing, "Test assertions missing botRespondsWith for "+testName)
	}
	for _, intent := range a.BotRespondsWith {
		if intent == "" {
			return errs.New(errs.KindYamlParsing, "Test assertions missing botRespondsWith for "+testName)
		}
	}
	for _, c := range a.ResponseChecks {
		if c == nil || c.Expression == "" {
			return errs.New(errs.KindYamlParsing, "Response check expression not specified for "+testName)
		}
		if !operators[c.Operator] {
			return errs.New(errs.KindYamlParsing, "Unknown response check operator found: "+string(c.Operator))
		}
		if c.Value.Kind() == ValueUnset {
			return errs.New(errs.KindYamlParsing, "Response check value not specified for "+testName)
		}
	}
	return nil
}
