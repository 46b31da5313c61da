// Package core holds cross-cutting runtime concerns shared by the
// server and the KB tooling.
package core

// Environment selects runtime behavior: log verbosity, gin mode.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment maps the ENVIRONMENT value to a known Environment.
// Anything unrecognized falls back to Development so a typo in an env
// file degrades to verbose logging rather than a refused start.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production, Staging, Testing:
		return Environment(v)
	default:
		return Development
	}
}
