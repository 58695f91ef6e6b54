package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
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

type Source struct {
	Kind   SourceKind
	File   string
	Line   int
	Column int
}

func (s Source) String() string {
	if s.Kind == SourceFile && s.File != "" {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
	return string(SourceDefault)
}

type LoadResult struct {
	Config  *Config
	Path    string
	Sources map[string]Source // YAML-path -> last writer source
	Files   []string          // all loaded files, in load order
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and returns file-level sources for introspection.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields the
// defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	top := layer{sources: map[string]Source{}}

	if _, err := os.Stat(path); err == nil {
		ld := &includeLoader{visited: map[string]bool{}}
		loaded, err := ld.load(path)
		if err != nil {
			return nil, err
		}
		top = loaded
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg, err := BuildEffectiveConfig(top.raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, top.locate(err)
	}

	return &LoadResult{
		Config:  cfg,
		Path:    path,
		Sources: top.sources,
		Files:   top.files,
	}, nil
}

// layer is one file merged over everything it includes.
type layer struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
}

func (l *layer) overlay(o layer) {
	l.raw = l.raw.merge(o.raw)
	maps.Copy(l.sources, o.sources)
	l.files = append(l.files, o.files...)
}

// locate fills in the file position of a validation error.
func (l layer) locate(err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := l.sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}

// includeLoader follows include directives depth first. A file reached twice
// through different branches is loaded once; a file that includes itself
// through its own chain is an error.
type includeLoader struct {
	visited map[string]bool
	chain   []string
}

func (ld *includeLoader) load(path string) (layer, error) {
	file := resolveFile(path)
	if slices.Contains(ld.chain, file) {
		return layer{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(ld.chain, " -> "), file)
	}
	out := layer{sources: map[string]Source{}}
	if ld.visited[file] {
		return out, nil
	}
	ld.visited[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return layer{}, fmt.Errorf("%s: failed to read: %w", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return layer{}, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}
	var own RawConfig
	if err := decodeStrictYAML(data, &own); err != nil {
		return layer{}, fmt.Errorf("%s: %w", file, err)
	}
	root := documentRoot(&doc)

	ld.chain = append(ld.chain, file)
	defer func() { ld.chain = ld.chain[:len(ld.chain)-1] }()

	for _, inc := range includeNodes(root) {
		targets, err := includeTargets(file, inc.Value)
		if err != nil {
			return layer{}, fmt.Errorf("%s: include %q: %w", position(file, inc), inc.Value, err)
		}
		for _, target := range targets {
			sub, err := ld.load(target)
			if err != nil {
				return layer{}, err
			}
			out.overlay(sub)
		}
	}

	// This file overrides its includes.
	out.overlay(layer{raw: own, sources: keyPositions(root, file), files: []string{file}})
	return out, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// resolveFile returns the absolute, symlink-free form of path when it can be
// computed, so that one file reached by two names is loaded once.
func resolveFile(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return path
}

// includeTargets resolves an include value relative to the including file.
// A directory expands to its *.yaml and *.yml files in name order.
func includeTargets(from, include string) ([]string, error) {
	switch {
	case include == "":
		return nil, fmt.Errorf("path is empty")
	case include == "~" || strings.HasPrefix(include, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		include = filepath.Join(home, include[1:])
	case !filepath.IsAbs(include):
		include = filepath.Join(filepath.Dir(from), include)
	}

	info, err := os.Stat(include)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{include}, nil
	}

	entries, err := os.ReadDir(include)
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, ent := range entries {
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			if !ent.IsDir() {
				targets = append(targets, filepath.Join(include, ent.Name()))
			}
		}
	}
	return targets, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func position(file string, n *yaml.Node) string {
	return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}.String()
}

// keyPositions maps every dotted key path in a mapping to the position of its
// value. Hotkey command names are folded to lower case to match the decoder.
func keyPositions(root *yaml.Node, file string) map[string]Source {
	out := map[string]Source{}
	var walk func(n *yaml.Node, prefix string)
	walk = func(n *yaml.Node, prefix string) {
		if n.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i].Value, n.Content[i+1]
			if prefix == "hotkeys" {
				key = strings.ToLower(strings.TrimSpace(key))
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			out[key] = Source{Kind: SourceFile, File: file, Line: val.Line, Column: val.Column}
			walk(val, key)
		}
	}
	walk(root, "")
	return out
}

// includeNodes returns the scalar entries of the top-level include key.
func includeNodes(root *yaml.Node) []*yaml.Node {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			return []*yaml.Node{val}
		case yaml.SequenceNode:
			var items []*yaml.Node
			for _, item := range val.Content {
				if item.Kind == yaml.ScalarNode {
					items = append(items, item)
				}
			}
			return items
		}
		return nil
	}
	return nil
}
