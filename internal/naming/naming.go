// Package naming suggests display names for newly created identities.
// An optional AI provider proposes names; a deterministic fallback list
// guarantees a suggestion even with no provider configured.
package naming

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed names.yaml
var namesYAML []byte

// Provider defines the interface for AI naming backends.
type Provider interface {
	Name() string
	SuggestName(ctx context.Context, usedNames []string) (string, error)
}

type nameList struct {
	Names []string `yaml:"names"`
}

// Suggester produces display name suggestions. Used names are never
// suggested twice.
type Suggester struct {
	provider Provider
	base     []string
}

// NewSuggester creates a suggester. The provider may be nil, in which
// case only the embedded fallback list is used.
func NewSuggester(provider Provider) *Suggester {
	var list nameList
	if err := yaml.Unmarshal(namesYAML, &list); err != nil {
		// Embedded file, should never happen in practice.
		panic("failed to unmarshal embedded names.yaml: " + err.Error())
	}
	return &Suggester{provider: provider, base: list.Names}
}

// Suggest returns a display name not present in used. The AI provider
// is consulted first; any provider failure falls through to the
// embedded list.
func (s *Suggester) Suggest(ctx context.Context, used map[string]bool) string {
	if s.provider != nil {
		name, err := s.provider.SuggestName(ctx, usedSlice(used))
		if err != nil {
			log.Printf("name provider %s failed, using fallback: %v", s.provider.Name(), err)
		} else if name = strings.TrimSpace(name); name != "" && !used[name] {
			return name
		}
	}
	return s.fallback(used)
}

// fallback returns the first unused base name, then numbered variants,
// then "Unnamed" when everything is exhausted.
func (s *Suggester) fallback(used map[string]bool) string {
	for _, name := range s.base {
		if !used[name] {
			return name
		}
	}
	for i := 2; i < 99; i++ {
		for _, name := range s.base {
			candidate := fmt.Sprintf("%s %d", name, i)
			if !used[candidate] {
				return candidate
			}
		}
	}
	return "Unnamed"
}

func usedSlice(used map[string]bool) []string {
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	return names
}
