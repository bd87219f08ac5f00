package curriculum

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/supertutor/internal/llm"
	"github.com/abhisek/supertutor/internal/plan"
)

//go:embed bank/bank.yaml
var bankYAML []byte

type bankFile struct {
	Goals    []string         `yaml:"goals"`
	Subjects []map[string]any `yaml:"subjects"`
}

// Bank is the curated curriculum table keyed by onboarding subject.
type Bank struct {
	goals    []string
	subjects []string
	plans    map[string]*plan.Course
}

// ParseBank parses and validates a curated bank document. Every subject
// entry must satisfy plan.CourseSchema.
func ParseBank(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse curated bank: %w", err)
	}

	b := &Bank{
		goals: f.Goals,
		plans: make(map[string]*plan.Course, len(f.Subjects)),
	}
	for i, entry := range f.Subjects {
		name, _ := entry["subject"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("curated bank entry %d: subject is required", i)
		}
		key := strings.ToLower(name)
		if _, dup := b.plans[key]; dup {
			return nil, fmt.Errorf("curated bank entry %d: duplicate subject %q", i, name)
		}

		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("curated bank entry %q: %w", name, err)
		}
		if err := llm.Validate(plan.CourseSchema, raw); err != nil {
			return nil, fmt.Errorf("curated bank entry %q: %w", name, err)
		}
		p, err := plan.DecodeCourse(raw)
		if err != nil {
			return nil, fmt.Errorf("curated bank entry %q: %w", name, err)
		}

		b.plans[key] = p
		b.subjects = append(b.subjects, name)
	}
	return b, nil
}

var (
	defaultBankOnce sync.Once
	defaultBank     *Bank
	defaultBankErr  error
)

// DefaultBank returns the embedded curated bank, parsed once.
func DefaultBank() (*Bank, error) {
	defaultBankOnce.Do(func() {
		defaultBank, defaultBankErr = ParseBank(bankYAML)
	})
	return defaultBank, defaultBankErr
}

// Lookup returns the curated plan for subject, matched case-insensitively,
// or nil when the subject is not in the bank.
func (b *Bank) Lookup(subject string) *plan.Course {
	if b == nil {
		return nil
	}
	return b.plans[strings.ToLower(strings.TrimSpace(subject))]
}

// Subjects lists the onboarding subjects in bank order.
func (b *Bank) Subjects() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.subjects...)
}

// Goals lists the learning goals offered during onboarding.
func (b *Bank) Goals() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.goals...)
}
