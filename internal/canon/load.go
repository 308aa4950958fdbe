package canon

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Rule file modes.
const (
	ModeExtend  = "extend"
	ModeReplace = "replace"
)

// RuleFile is the on-disk shape of a rule table.
//
//	mode: extend
//	rules:
//	  - family: storage
//	    canonical: sum
//	    forms: [合計, 総和]
type RuleFile struct {
	Mode  string `yaml:"mode" validate:"omitempty,oneof=extend replace"`
	Rules []Rule `yaml:"rules" validate:"required,min=1,dive"`
}

var validate = validator.New()

// LoadRuleFile reads and validates a YAML rule file.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return ParseRuleFile(data)
}

// ParseRuleFile decodes and validates YAML rule file content.
func ParseRuleFile(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidRules, err)
	}
	if err := validate.Struct(&rf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if rf.Mode == "" {
		rf.Mode = ModeExtend
	}
	return &rf, nil
}

// ResolveRules returns the rule table to use. With no path the built-in table is
// returned. Extension rules are placed before the built-in ones so that more specific
// custom spellings are tried first.
func ResolveRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	rf, err := LoadRuleFile(path)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Str("mode", rf.Mode).
		Int("rules", len(rf.Rules)).
		Msg("Loaded rewrite rules")

	if rf.Mode == ModeReplace {
		return rf.Rules, nil
	}
	return append(append([]Rule{}, rf.Rules...), DefaultRules()...), nil
}
