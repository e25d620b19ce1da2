package registry

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Policy decides which operations a deployment exposes. Patterns are "*",
// "tool.*" or "tool.operation". Deny overrides allow; an empty allow list
// allows everything.
type Policy struct {
	Allow []string `json:"allow" yaml:"allow" mapstructure:"allow"`
	Deny  []string `json:"deny" yaml:"deny" mapstructure:"deny"`
}

// IsAllowed checks if an operation passes the policy
func (p *Policy) IsAllowed(tool, operation string) bool {
	if p == nil {
		// No policy means allow all
		return true
	}

	for _, denied := range p.Deny {
		if matchPattern(denied, tool, operation) {
			return false
		}
	}

	if len(p.Allow) == 0 {
		return true
	}

	for _, allowed := range p.Allow {
		if matchPattern(allowed, tool, operation) {
			return true
		}
	}

	return false
}

// Validate warns about policies that disable everything.
func (p *Policy) Validate() {
	if p == nil {
		return
	}
	for _, denied := range p.Deny {
		if strings.TrimSpace(denied) == "*" {
			log.Warn().Msg("Policy denies every operation - only clarification replies are possible")
		}
	}
}

func matchPattern(pattern, tool, operation string) bool {
	pattern = Normalize(pattern)
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.TrimSuffix(pattern, ".*") == tool
	case strings.Contains(pattern, "."):
		return pattern == tool+"."+operation
	default:
		// A bare name selects the whole tool
		return pattern == tool
	}
}
