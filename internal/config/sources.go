package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourcesFile is the YAML layout of the sources config:
//
//	pipelines:
//	  hockey:
//	    label: Djurgården Hockey
//	    posted_file: posted_news.json
//	    sources:
//	      - {name: DIF Hockey, type: difhockey, url: https://...}
type SourcesFile struct {
	Pipelines map[string]Pipeline `yaml:"pipelines"`
}

// Pipeline is one posting run: the sources it reads and where it remembers
// what was posted.
type Pipeline struct {
	Name       string   `yaml:"-"`
	Label      string   `yaml:"label"`
	PostedFile string   `yaml:"posted_file"`
	Sources    []Source `yaml:"sources"`
}

type Source struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"` // rss | difhockey | diffotboll
	URL        string `yaml:"url"`
	Limit      int    `yaml:"limit"`
	Referer    string `yaml:"referer"`
	Accept     string `yaml:"accept"` // overrides the Accept header of feed requests
	ScrapePage bool   `yaml:"scrape_page"`
	BaseURL    string `yaml:"base_url"`
}

// LoadSources reads all pipeline definitions from path.
func LoadSources(path string) (*SourcesFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sf SourcesFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, p := range sf.Pipelines {
		p.Name = name
		sf.Pipelines[name] = p
	}
	return &sf, nil
}

// Names returns the pipeline names in sorted order.
func (sf *SourcesFile) Names() []string {
	names := make([]string, 0, len(sf.Pipelines))
	for name := range sf.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline returns the named pipeline after checking its sources.
func (sf *SourcesFile) Pipeline(name string) (*Pipeline, error) {
	p, ok := sf.Pipelines[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q (available: %s)", name, strings.Join(sf.Names(), ", "))
	}
	if len(p.Sources) == 0 {
		return nil, fmt.Errorf("pipeline %q has no sources", name)
	}
	for i, s := range p.Sources {
		if s.Name == "" || s.Type == "" || s.URL == "" {
			return nil, fmt.Errorf("pipeline %q source %d: name, type and url are required", name, i)
		}
		if s.Limit < 0 {
			return nil, fmt.Errorf("pipeline %q source %q: limit must not be negative", name, s.Name)
		}
	}
	return &p, nil
}

// PostedPath picks the dedup file: the explicit override, else the
// pipeline's own file, else a name derived from the pipeline.
func (c *Config) PostedPath(p *Pipeline) string {
	if c.PostedFilePath != "" {
		return c.PostedFilePath
	}
	if p.PostedFile != "" {
		return p.PostedFile
	}
	return "posted_" + p.Name + ".json"
}
