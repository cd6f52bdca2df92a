/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppendRepository adds repo to the settings file at path, leaving the rest
// of the document as written. The previous contents are saved to
// path+".backup" first. It reports false when an entry with the same name
// already exists.
func AppendRepository(path string, repo Repository) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading settings: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return false, fmt.Errorf("parsing settings: %w", err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return false, errors.New("settings file is not a YAML mapping")
	}
	root := doc.Content[0]

	repos := lookup(root, "repositories")
	if repos == nil {
		repos = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "repositories"}, repos)
	}
	if repos.Kind != yaml.SequenceNode {
		// "repositories:" with no value decodes as a null scalar.
		*repos = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	}

	for _, n := range repos.Content {
		if name := lookup(n, "name"); name != nil && name.Value == repo.Name {
			return false, nil
		}
	}

	var entry yaml.Node
	if err := entry.Encode(repo); err != nil {
		return false, fmt.Errorf("encoding repository: %w", err)
	}
	repos.Content = append(repos.Content, &entry)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return false, fmt.Errorf("encoding settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return false, fmt.Errorf("encoding settings: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path+".backup", b, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("writing backup: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("writing settings: %w", err)
	}
	return true, nil
}

// lookup returns the value node for key in a mapping node.
func lookup(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
