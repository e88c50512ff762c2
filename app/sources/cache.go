package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWeight   = 0.5
	DefaultMaxItems = 30
)

type Cache struct {
	sourcesDir string
	cache      map[string]*Source
	mu         sync.RWMutex
}

func NewCache(sourcesDir string) *Cache {
	return &Cache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Source),
	}
}

// Run loads every *.yml file from the sources directory into the cache.
func (c *Cache) Run() error {
	if _, err := os.Stat(c.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		source, err := c.LoadSource(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source loaded", "source", name, "url", source.URL, "enabled", source.Enabled, "allows_scrape", source.AllowsScrape)
	}

	return nil
}

func (c *Cache) LoadSource(name string) (*Source, error) {
	file := filepath.Join(c.sourcesDir, name+".yml")

	source, err := c.parseSource(file)
	if err != nil {
		return nil, err
	}

	if source.Name == "" {
		source.Name = name
	}

	if err := c.validateSource(source); err != nil {
		return nil, fmt.Errorf("invalid source %s: %w", file, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[source.Name] = source

	return source, nil
}

func (c *Cache) GetSource(name string) (*Source, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	source, ok := c.cache[name]
	if !ok {
		return nil, fmt.Errorf("source with name '%s' not found", name)
	}
	return source, nil
}

func (c *Cache) GetSources() map[string]*Source {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copied := make(map[string]*Source, len(c.cache))
	for k, v := range c.cache {
		copied[k] = v
	}
	return copied
}

func (c *Cache) GetEnabledSources() map[string]*Source {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enabled := make(map[string]*Source)
	for k, v := range c.cache {
		if v.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) parseSource(file string) (*Source, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if source.Weight == 0 {
		source.Weight = DefaultWeight
	}
	if source.MaxItems == 0 {
		source.MaxItems = DefaultMaxItems
	}
	if source.Language == "" {
		source.Language = "ja"
	}

	return &source, nil
}

func (c *Cache) validateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}

	if source.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if source.URL == "" {
		return fmt.Errorf("source URL is required")
	}

	if source.Weight < 0 || source.Weight > 1 {
		return fmt.Errorf("source weight must be within [0, 1], got %f", source.Weight)
	}
	if source.MaxItems < 0 {
		return fmt.Errorf("max items must be non-negative")
	}

	switch source.Language {
	case "ja", "en":
	default:
		return fmt.Errorf("unsupported language: %s", source.Language)
	}

	return nil
}
