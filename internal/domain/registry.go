// Package domain holds the closed set of conversation domains and their settings.
package domain

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Tag identifies a conversation domain
type Tag string

// Known domains
const (
	Strive     Tag = "strive"
	RealEstate Tag = "real-estate"
)

// Config is the turn-time configuration of one domain
type Config struct {
	Tag            Tag
	Name           string
	SystemPrompt   string
	SearchEnabled  bool
	CRMSyncEnabled bool
	Temperature    float32
	MaxTokens      int
}

var registry = map[Tag]Config{
	Strive: {
		Tag:          Strive,
		Name:         "Strive Tech",
		SystemPrompt: mustPrompt("strive.md"),
		Temperature:  0.7,
		MaxTokens:    2000,
	},
	RealEstate: {
		Tag:            RealEstate,
		Name:           "Real Estate",
		SystemPrompt:   mustPrompt("real_estate.md"),
		SearchEnabled:  true,
		CRMSyncEnabled: true,
		Temperature:    0.7,
		MaxTokens:      2000,
	},
}

func mustPrompt(name string) string {
	b, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		panic(fmt.Sprintf("domain: missing embedded prompt %s: %v", name, err))
	}
	return strings.TrimSpace(string(b))
}

// Lookup resolves a tag. The second result is false for unknown tags.
func Lookup(tag string) (Config, bool) {
	cfg, ok := registry[Tag(tag)]
	return cfg, ok
}

// Tags lists the known domain tags in sorted order
func Tags() []string {
	tags := make([]string, 0, len(registry))
	for t := range registry {
		tags = append(tags, string(t))
	}
	sort.Strings(tags)
	return tags
}
