package origins

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML form of a Rules record. Rule tables are plain data,
// so site maintainers can add an origin without touching Go code.
type ruleFile struct {
	Name        string   `yaml:"name"`
	Property    string   `yaml:"property"`
	Item        string   `yaml:"item"`
	URLTemplate string   `yaml:"url_template"`
	IsWiki      bool     `yaml:"is_wiki"`
	HideURL     bool     `yaml:"hide_url"`
	QueryBased  bool     `yaml:"query_based"`
	Hosts       []string `yaml:"hosts"`
	IDPattern   string   `yaml:"id_pattern"`
	PlainText   bool     `yaml:"plain_text"`
	Region      string   `yaml:"region"`
	NoCrossref  bool     `yaml:"no_crossref"`

	Identity     []yamlPropertyRule `yaml:"identity"`
	Singles      []yamlPropertyRule `yaml:"singles"`
	Multis       []yamlPropertyRule `yaml:"multis"`
	SplitNames   []yamlPropertyRule `yaml:"split_names"`
	Dates        []yamlDateRule     `yaml:"dates"`
	Quantities   []yamlPropertyRule `yaml:"quantities"`
	Media        []yamlPropertyRule `yaml:"media"`
	Reported     []yamlPropertyRule `yaml:"reported"`
	Names        []yamlNameRule     `yaml:"names"`
	Descriptions []yamlDescRule     `yaml:"descriptions"`
}

type yamlPropertyRule struct {
	Property string   `yaml:"property"`
	Pattern  string   `yaml:"pattern"`
	Category string   `yaml:"category"`
	Exclude  []string `yaml:"exclude"`
	Alt      []string `yaml:"alt"`
}

type yamlDateRule struct {
	Property   string `yaml:"property"`
	Pattern    string `yaml:"pattern"`
	RangeStart string `yaml:"range_start"`
	RangeEnd   string `yaml:"range_end"`
}

type yamlNameRule struct {
	Language string `yaml:"language"`
	Pattern  string `yaml:"pattern"`
	All      bool   `yaml:"all"`
}

type yamlDescRule struct {
	Language string `yaml:"language"`
	Pattern  string `yaml:"pattern"`
}

// LoadDir reads every .yaml/.yml rule table under dir and registers it. A
// missing directory is not an error: most installs run on builtins only.
func LoadDir(registry *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read rules dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		rules, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		registry.Register(rules)
	}

	return nil
}

// LoadFile parses one YAML rule table into a compiled Rules record.
func LoadFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse compiles a YAML rule table.
func Parse(data []byte) (*Rules, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if file.Property == "" {
		return nil, fmt.Errorf("rules without a property")
	}

	rules := &Rules{
		Name:        file.Name,
		Property:    file.Property,
		Item:        file.Item,
		URLTemplate: file.URLTemplate,
		IsWiki:      file.IsWiki,
		HideURL:     file.HideURL,
		QueryBased:  file.QueryBased,
		Hosts:       file.Hosts,
		PlainText:   file.PlainText,
		NoCrossref:  file.NoCrossref,
	}

	var err error
	if rules.IDPattern, err = compileOptional(file.IDPattern); err != nil {
		return nil, err
	}
	if rules.Region, err = compileOptional(file.Region); err != nil {
		return nil, err
	}

	if rules.Identity, err = compileProperty(file.Identity); err != nil {
		return nil, err
	}
	if rules.Singles, err = compileProperty(file.Singles); err != nil {
		return nil, err
	}
	if rules.Multis, err = compileProperty(file.Multis); err != nil {
		return nil, err
	}
	if rules.SplitNames, err = compileProperty(file.SplitNames); err != nil {
		return nil, err
	}
	if rules.Quantities, err = compileProperty(file.Quantities); err != nil {
		return nil, err
	}
	if rules.Media, err = compileProperty(file.Media); err != nil {
		return nil, err
	}
	if rules.Reported, err = compileProperty(file.Reported); err != nil {
		return nil, err
	}

	for _, d := range file.Dates {
		pattern, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("date rule %s: %w", d.Property, err)
		}
		rules.Dates = append(rules.Dates, DateRule{
			Property:   d.Property,
			Pattern:    pattern,
			RangeStart: d.RangeStart,
			RangeEnd:   d.RangeEnd,
		})
	}

	for _, n := range file.Names {
		pattern, err := regexp.Compile(n.Pattern)
		if err != nil {
			return nil, fmt.Errorf("name rule (%s): %w", n.Language, err)
		}
		rules.Names = append(rules.Names, NameRule{Language: n.Language, Pattern: pattern, All: n.All})
	}

	for _, d := range file.Descriptions {
		pattern, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("description rule (%s): %w", d.Language, err)
		}
		rules.Descriptions = append(rules.Descriptions, DescriptionRule{Language: d.Language, Pattern: pattern})
	}

	return rules, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func compileProperty(in []yamlPropertyRule) ([]PropertyRule, error) {
	var out []PropertyRule
	for _, r := range in {
		pattern, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Property, err)
		}
		out = append(out, PropertyRule{
			Property: r.Property,
			Rule: Rule{
				Pattern:  pattern,
				Category: r.Category,
				Exclude:  r.Exclude,
				Alt:      r.Alt,
			},
		})
	}
	return out, nil
}
