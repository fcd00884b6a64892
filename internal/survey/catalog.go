// Package survey holds the question catalog and the scoring rules applied to
// form submissions. A Catalog is immutable once loaded and safe for
// concurrent use.
package survey

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Risk levels reported by Catalog.RiskLevel. RiskNone is used by callers for
// users without any response.
const (
	RiskNone = "none"
	RiskLow  = "low"
	RiskMid  = "mid"
	RiskHigh = "high"
)

// Question is one scored item of the form.
type Question struct {
	Code    string   `yaml:"code"`
	Label   string   `yaml:"label"`
	Choices []string `yaml:"choices"`
	Weights []int    `yaml:"weights"`
	// MissingWeight is applied when the question is unanswered or the answer
	// cannot be mapped. Nil means the midpoint of Weights.
	MissingWeight *float64 `yaml:"missing_weight"`

	missing float64
	choices map[string]int
}

// Thresholds split scores into risk levels: below Mid is low, below High is
// mid, anything else is high.
type Thresholds struct {
	Mid  float64 `yaml:"mid"`
	High float64 `yaml:"high"`
}

// Catalog is the ordered set of scored questions plus the label of the
// question that carries the submitter's external token.
type Catalog struct {
	TokenLabel string            `yaml:"token_label"`
	Risk       Thresholds        `yaml:"risk"`
	Status     map[string]string `yaml:"status"`
	Questions  []Question        `yaml:"questions"`

	index map[string]int
	token string
}

// DefaultCatalog returns the embedded GHQ-12 catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog from path, or returns the embedded default
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(b)
}

// ParseCatalog decodes and validates a yaml catalog.
func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WithTokenLabel returns a copy of c whose token-bearing question label is
// label. An empty label keeps the current one.
func (c *Catalog) WithTokenLabel(label string) (*Catalog, error) {
	if strings.TrimSpace(label) == "" {
		return c, nil
	}
	cp := *c
	cp.Questions = append([]Question(nil), c.Questions...)
	cp.TokenLabel = label
	if err := cp.init(); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (c *Catalog) init() error {
	if len(c.Questions) == 0 {
		return errors.New("catalog: no questions")
	}
	c.token = Normalize(c.TokenLabel)
	if c.token == "" {
		return errors.New("catalog: token_label must not be empty")
	}
	if c.Risk.Mid > c.Risk.High {
		return errors.New("catalog: risk.mid must be <= risk.high")
	}

	c.index = make(map[string]int, 2*len(c.Questions))
	for i := range c.Questions {
		q := &c.Questions[i]
		if strings.TrimSpace(q.Code) == "" || strings.TrimSpace(q.Label) == "" {
			return fmt.Errorf("catalog: question %d needs code and label", i+1)
		}
		if len(q.Weights) == 0 {
			return fmt.Errorf("catalog: %s has no weights", q.Code)
		}
		if len(q.Choices) > 0 && len(q.Choices) != len(q.Weights) {
			return fmt.Errorf("catalog: %s has %d choices but %d weights", q.Code, len(q.Choices), len(q.Weights))
		}

		lo, hi := q.Weights[0], q.Weights[0]
		for _, w := range q.Weights {
			lo, hi = min(lo, w), max(hi, w)
		}
		q.missing = float64(lo+hi) / 2
		if q.MissingWeight != nil {
			q.missing = *q.MissingWeight
		}

		q.choices = make(map[string]int, len(q.Choices))
		for j, ch := range q.Choices {
			q.choices[Normalize(ch)] = j
		}

		for _, key := range []string{Normalize(q.Code), Normalize(q.Label)} {
			if key == c.token {
				return fmt.Errorf("catalog: %s collides with the token label", q.Code)
			}
			if prev, dup := c.index[key]; dup && prev != i {
				return fmt.Errorf("catalog: duplicate question key %q", key)
			}
			c.index[key] = i
		}
	}
	return nil
}

// Lookup finds a question by label or code, after normalization.
func (c *Catalog) Lookup(label string) (*Question, bool) {
	i, ok := c.index[Normalize(label)]
	if !ok {
		return nil, false
	}
	return &c.Questions[i], true
}

// IsTokenLabel reports whether label names the token-bearing question.
func (c *Catalog) IsTokenLabel(label string) bool {
	return Normalize(label) == c.token
}

// RiskLevel maps a score to low, mid or high.
func (c *Catalog) RiskLevel(score float64) string {
	switch {
	case score < c.Risk.Mid:
		return RiskLow
	case score < c.Risk.High:
		return RiskMid
	default:
		return RiskHigh
	}
}

// StatusLabel returns the display label for a risk level, or the level
// itself when the catalog has none configured.
func (c *Catalog) StatusLabel(level string) string {
	if s, ok := c.Status[level]; ok && s != "" {
		return s
	}
	return level
}

// MaxScore is the highest total the catalog can produce.
func (c *Catalog) MaxScore() float64 {
	var total float64
	for _, q := range c.Questions {
		hi := q.missing
		for _, w := range q.Weights {
			hi = max(hi, float64(w))
		}
		total += hi
	}
	return total
}
