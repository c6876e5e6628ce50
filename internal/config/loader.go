package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source is where a config key got its value.
type Source struct {
	Kind   SourceKind
	Name   string // for default
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // dotted key -> last file that set it
	Files   []string          // every file read, includes before their includer
}

// LoadWithSources loads the config at the default location.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and everything it includes. A missing file
// yields the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &fileLoader{seen: make(map[string]bool)}
	raw, sources := RawConfig{}, map[string]Source{}

	if _, err := os.Stat(path); err == nil {
		raw, sources, err = l.load(path, nil)
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, withSource(err, sources)
	}
	return &LoadResult{Config: cfg, Sources: sources, Files: l.files}, nil
}

// fileLoader walks one include graph. A file reached twice is merged once.
type fileLoader struct {
	seen  map[string]bool
	files []string
}

func (l *fileLoader) load(path string, chain []string) (RawConfig, map[string]Source, error) {
	canon, err := canonicalPath(path)
	if err != nil {
		return RawConfig{}, nil, err
	}
	if slices.Contains(chain, canon) {
		return RawConfig{}, nil, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(chain, " -> "), canon)
	}
	if l.seen[canon] {
		return RawConfig{}, map[string]Source{}, nil
	}
	l.seen[canon] = true

	data, err := os.ReadFile(canon)
	if err != nil {
		return RawConfig{}, nil, fmt.Errorf("%s: failed to read: %w", canon, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, nil, fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}
	var own RawConfig
	if err := decodeStrict(data, &own); err != nil {
		return RawConfig{}, nil, fmt.Errorf("%s: %w", canon, err)
	}
	ownSources := make(map[string]Source)
	indexSources(rootMapping(&doc), canon, "", ownSources)

	merged, sources := RawConfig{}, map[string]Source{}
	for _, inc := range own.Include {
		paths, err := includePaths(canon, inc)
		if err != nil {
			at := ownSources["include"]
			return RawConfig{}, nil, fmt.Errorf("%s:%d:%d: include %q: %w", canon, at.Line, at.Column, inc, err)
		}
		for _, p := range paths {
			raw, src, err := l.load(p, append(chain, canon))
			if err != nil {
				return RawConfig{}, nil, err
			}
			merged = merged.merge(raw)
			for k, v := range src {
				sources[k] = v
			}
		}
	}

	// the including file wins over its includes
	merged = merged.merge(own)
	for k, v := range ownSources {
		sources[k] = v
	}
	l.files = append(l.files, canon)
	return merged, sources, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// includePaths resolves an include entry against the including file. A
// directory expands to its .yaml and .yml files in name order.
func includePaths(from, inc string) ([]string, error) {
	if inc == "" {
		return nil, fmt.Errorf("path is empty")
	}
	if rest, ok := strings.CutPrefix(inc, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		inc = filepath.Join(home, rest)
	}
	if !filepath.IsAbs(inc) {
		inc = filepath.Join(filepath.Dir(from), inc)
	}

	info, err := os.Stat(inc)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{inc}, nil
	}
	entries, err := os.ReadDir(inc)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		out = append(out, filepath.Join(inc, e.Name()))
	}
	// ReadDir already sorts by name
	return out, nil
}

func rootMapping(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// indexSources records the position of every key under node. Lists are
// recorded as a whole.
func indexSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if prefix != "" {
			key = prefix + "." + key
		}
		out[key] = Source{Kind: SourceFile, File: file, Line: val.Line, Column: val.Column}
		indexSources(val, file, key, out)
	}
}

// withSource points a validation error at the file position of its key,
// or of the nearest parent key a file set.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	for path := verr.Path; path != ""; path = parentPath(path) {
		if src, ok := sources[path]; ok {
			verr.Source = src
			break
		}
	}
	return err
}

func parentPath(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return ""
	}
	return path[:i]
}
