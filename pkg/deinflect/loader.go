package deinflect

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML layout of a rule table:
//
//	rules:
//	  - name: past
//	    strip: た
//	    append: る
//	    to: v1
//	  - name: negative
//	    strip: ない
//	    append: る
//	    from: [adj-i]
//	    to: v1
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules decodes a YAML rule table.
func LoadRules(r io.Reader) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	for i, rule := range f.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule %d: missing name", i)
		}
		if rule.Strip == "" {
			return nil, fmt.Errorf("rule %d (%s): missing strip suffix", i, rule.Name)
		}
	}
	return f.Rules, nil
}

// LoadRulesFile reads a YAML rule table from path.
func LoadRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadRules(f)
}
