// Package frontmatter reads the optional yaml header that the content build
// pipeline places in front of rendered pages.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const separator = "---\n"

type Meta struct {
	Title      string   `yaml:"title"`
	Slug       string   `yaml:"slug"`
	DocumentID string   `yaml:"document_id"`
	Difficulty string   `yaml:"difficulty"`
	Tags       []string `yaml:"tags"`
}

// Split separates the header from the body. Content without a header yields
// zero Meta and the content unchanged.
func Split(content string) (Meta, string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, separator) {
		return Meta{}, content, nil
	}
	rest := strings.TrimPrefix(content, separator)
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		return Meta{}, "", fmt.Errorf("invalid frontmatter: missing closing separator")
	}
	var meta Meta
	if err := yaml.Unmarshal([]byte(rest[:idx]), &meta); err != nil {
		return Meta{}, "", fmt.Errorf("unmarshal frontmatter: %w", err)
	}
	return meta, rest[idx+len("\n---\n"):], nil
}
