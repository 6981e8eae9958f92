// Package jobcatalog supplies the job descriptions automated runs tailor
// and interview against when the user did not provide one.
package jobcatalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Template   string            `yaml:"template_type"`
	Generic    string            `yaml:"generic"`
	Interviews map[string]string `yaml:"interviews"`
}

// Load reads a catalog file, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	raw := defaultCatalog
	if strings.TrimSpace(path) != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read job catalog: %w", err)
		}
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse job catalog: %w", err)
	}
	c.Generic = strings.TrimSpace(c.Generic)
	if c.Generic == "" {
		return nil, fmt.Errorf("job catalog: generic description is required")
	}
	normalized := make(map[string]string, len(c.Interviews))
	for k, v := range c.Interviews {
		t, err := domain.ParseInterviewType(k)
		if err != nil {
			return nil, fmt.Errorf("job catalog: %w", err)
		}
		normalized[string(t)] = strings.TrimSpace(v)
	}
	c.Interviews = normalized
	if strings.TrimSpace(c.Template) == "" {
		c.Template = "modern"
	}
	return &c, nil
}

func (c *Catalog) GenericJobDescription() string {
	return c.Generic
}

// InterviewJobDescription falls back to the generic description for types
// the catalog does not list.
func (c *Catalog) InterviewJobDescription(t domain.InterviewType) string {
	if jd := c.Interviews[string(t)]; jd != "" {
		return jd
	}
	return c.Generic
}

func (c *Catalog) TemplateType() string {
	return c.Template
}
