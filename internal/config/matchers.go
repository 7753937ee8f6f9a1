package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/streammd/streammd/parser"
)

// MatcherFile holds custom block matchers and annotation detectors loaded
// from a standalone YAML file:
//
//	matchers:
//	  - element: callout
//	    pattern: '^:::\w+'
//	    end: ':::'
//	annotations:
//	  - kind: issue
//	    pattern: '#\d+'
//
// All patterns are validated on load so a bad file fails before any input
// is parsed.
type MatcherFile struct {
	Matchers []MatcherConfig

	detectors []parser.AnnotationDetector
}

type annotationDef struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
}

// LoadMatcherFile reads and validates a matcher definition file.
func LoadMatcherFile(path string) (*MatcherFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matcher file: %w", err)
	}

	var raw struct {
		Matchers    []MatcherConfig `yaml:"matchers"`
		Annotations []annotationDef `yaml:"annotations"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse matcher file %s: %w", path, err)
	}

	mf := &MatcherFile{Matchers: raw.Matchers}
	for _, mc := range raw.Matchers {
		if mc.Element == "" {
			return nil, fmt.Errorf("%s: matcher with empty element name", path)
		}
		if _, err := mc.build(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, def := range raw.Annotations {
		if def.Kind == "" {
			return nil, fmt.Errorf("%s: annotation with empty kind", path)
		}
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid annotation pattern %q: %w", path, def.Pattern, err)
		}
		mf.detectors = append(mf.detectors, &parser.RegexAnnotation{Kind: def.Kind, Pattern: re})
	}
	return mf, nil
}

// AnnotationOptions translates the file's annotation definitions into
// parser options.
func (f *MatcherFile) AnnotationOptions() []parser.Option {
	opts := make([]parser.Option, 0, len(f.detectors))
	for _, d := range f.detectors {
		opts = append(opts, parser.WithAnnotationDetector(d))
	}
	return opts
}
