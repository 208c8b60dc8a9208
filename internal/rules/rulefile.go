package rules

import (
	"fmt"
	"os"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML layout of a rule file.
type ruleFile struct {
	Types []typeSpec `yaml:"types"`
}

type typeSpec struct {
	Name        string              `yaml:"name"`
	Group       string              `yaml:"group"`
	Description string              `yaml:"description"`
	Patterns    []string            `yaml:"patterns"`
	FirstLines  []string            `yaml:"first_lines"`
	Languages   []string            `yaml:"languages"`
	Params      []paramSpec         `yaml:"params"`
	Regions     map[string]string   `yaml:"regions"`
	Blocks      []blockSpec         `yaml:"blocks"`
	Rules       []ruleSpec          `yaml:"rules"`
	Keywords    map[string][]string `yaml:"keywords"`
}

type paramSpec struct {
	Name        string `yaml:"name"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

type blockSpec struct {
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Region string `yaml:"region"`
}

type ruleSpec struct {
	Pattern  string `yaml:"pattern"`
	Region   string `yaml:"region"`
	Submatch int    `yaml:"submatch"`
}

// ParseRuleFile reads the file types defined in a YAML rule file.
func ParseRuleFile(path string) ([]*FileType, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading rule file %s", path)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, nil, &ParseError{Path: path, Message: "malformed YAML", Err: err}
	}

	regions := make(map[string]string)
	types := make([]*FileType, 0, len(rf.Types))
	for i, spec := range rf.Types {
		if spec.Name == "" {
			return nil, nil, &ParseError{Path: path, Message: fmt.Sprintf("type #%d has no name", i+1)}
		}
		ft := NewFileType(spec.Name, spec.Group, spec.Description)
		ft.patterns = spec.Patterns
		for _, fl := range spec.FirstLines {
			re, err := regexp.Compile(fl)
			if err != nil {
				return nil, nil, &ParseError{Path: path, Message: "type " + spec.Name + ": bad first line pattern", Err: err}
			}
			ft.firstLines = append(ft.firstLines, re)
		}
		ft.languages = spec.Languages
		ft.spec = spec
		for _, p := range spec.Params {
			ft.AddParam(p.Name, p.Value, p.Description)
		}
		for region, parent := range spec.Regions {
			regions[region] = parent
		}
		types = append(types, ft)
	}
	return types, regions, nil
}
