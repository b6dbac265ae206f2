package logging

import (
	"maps"
	"slices"
	"time"
)

// Config controls the event router. Categories overrides the minimum
// severity per event category, e.g. {"relay": "warn"}.
type Config struct {
	EnabledSinks     []string          `yaml:"sinks"`
	BufferSize       int               `yaml:"bufferSize"`
	MinimumSeverity  Severity          `yaml:"-"`
	Severity         string            `yaml:"minSeverity"`
	Categories       map[string]string `yaml:"categories"`
	Fields           map[string]any    `yaml:"fields"`
	JSON             JSONConfig        `yaml:"json"`
	DropWarnInterval time.Duration     `yaml:"dropWarnInterval"`
}

type JSONConfig struct {
	FilePath      string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		Severity:         "info",
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	return maps.Clone(c.Fields)
}

// CategoryFloors parses Categories into severities.
func (c Config) CategoryFloors() map[string]Severity {
	if len(c.Categories) == 0 {
		return nil
	}
	out := make(map[string]Severity, len(c.Categories))
	for category, level := range c.Categories {
		out[category] = ParseSeverity(level)
	}
	return out
}
