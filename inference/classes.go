package inference

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultClasses are the surveyed species, in training index order.
var DefaultClasses = []string{"france", "joon", "kikuimo", "oohangonsou", "ookinkeigiku"}

// namesEntry matches one "index: 'name'" pair of an exported model's names metadata.
var namesEntry = regexp.MustCompile(`(\d+)\s*:\s*['"]([^'"]*)['"]`)

// PlaceholderName is the name given to a class index with no known name.
func PlaceholderName(i int) string {
	return fmt.Sprintf("cls_%d", i)
}

// DenseNames converts an index to name map into a slice covering 0..max index.
func DenseNames(m map[int]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		if k >= 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Ints(keys)

	names := make([]string, keys[len(keys)-1]+1)
	for i := range names {
		name, ok := m[i]
		if !ok || name == "" {
			name = PlaceholderName(i)
		}
		names[i] = name
	}
	return names
}

// ParseNames parses the names metadata written by Ultralytics exports, e.g.
// "{0: 'france', 1: 'joon'}".
func ParseNames(s string) []string {
	m := map[int]string{}
	for _, match := range namesEntry.FindAllStringSubmatch(s, -1) {
		i, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		m[i] = match[2]
	}
	return DenseNames(m)
}

// LoadNamesFile reads class names from a dataset YAML file. The names entry
// may be a list or an index to name mapping.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - []string: The class names in index order.
//   - error: An error if the file cannot be read or has no usable names entry.
func LoadNamesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read names file %s", path)
	}

	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse names file %s", path)
	}

	var names []string
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		if err := doc.Names.Decode(&names); err != nil {
			return nil, errors.Wrapf(err, "invalid names list in %s", path)
		}
	case yaml.MappingNode:
		m := map[int]string{}
		if err := doc.Names.Decode(&m); err != nil {
			return nil, errors.Wrapf(err, "invalid names mapping in %s", path)
		}
		names = DenseNames(m)
	default:
		return nil, errors.Errorf("names file %s has no names entry", path)
	}
	if len(names) == 0 {
		return nil, errors.Errorf("names file %s lists no classes", path)
	}
	return names, nil
}

// ResolveClasses picks the class names for a model: the configured list, then
// the names file, then the names embedded in the model, then DefaultClasses.
func ResolveClasses(cfg Config, modelNames []string) ([]string, error) {
	if len(cfg.Classes) > 0 {
		return append([]string(nil), cfg.Classes...), nil
	}
	if cfg.NamesFile != "" {
		return LoadNamesFile(cfg.NamesFile)
	}
	if len(modelNames) > 0 {
		return modelNames, nil
	}
	return append([]string(nil), DefaultClasses...), nil
}

// FitClasses sizes names to the model's class count, naming extra indices
// with PlaceholderName.
func FitClasses(names []string, numClasses int) []string {
	if numClasses <= 0 || len(names) == numClasses {
		return names
	}
	out := make([]string, numClasses)
	for i := range out {
		if i < len(names) {
			out[i] = names[i]
		} else {
			out[i] = PlaceholderName(i)
		}
	}
	return out
}
