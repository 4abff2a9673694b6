package identity

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/goliatone/go-errors"
)

// AccessLevel is what a matched route demands from the request identity.
type AccessLevel int

const (
	// AccessPublic routes never reject, identity or not.
	AccessPublic AccessLevel = iota
	// AccessAuthenticated routes require any identity.
	AccessAuthenticated
	// AccessRole routes require an identity whose role is listed in the
	// rule (or outranks the rule's minimum when MinRole is set).
	AccessRole
)

// PolicyRule maps an HTTP method and a path pattern to an access demand.
// Method "*" matches every method. Patterns are glob expressions with "/"
// as separator, e.g. "/api/users/*" or "/admin/**".
type PolicyRule struct {
	Method  string
	Path    string
	Access  AccessLevel
	Roles   []UserRole
	MinRole UserRole
}

type compiledRule struct {
	rule    PolicyRule
	matcher glob.Glob
}

// Policy is a static ordered rule table evaluated after authentication and
// before the handler. First matching rule wins; unmatched routes default
// to authenticated-only.
type Policy struct {
	rules []compiledRule
}

// NewPolicy compiles the rule table. Rule order is significant. An invalid
// pattern returns an error naming the offending rule.
func NewPolicy(rules ...PolicyRule) (*Policy, error) {
	compiled := make([]compiledRule, 0, len(rules))

	for _, rule := range rules {
		matcher, err := glob.Compile(rule.Path, '/')
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid policy path pattern").
				WithMetadata(map[string]any{
					"method": rule.Method,
					"path":   rule.Path,
				})
		}
		compiled = append(compiled, compiledRule{rule: rule, matcher: matcher})
	}

	return &Policy{rules: compiled}, nil
}

// MustPolicy is NewPolicy for static tables; it panics on a bad pattern.
func MustPolicy(rules ...PolicyRule) *Policy {
	p, err := NewPolicy(rules...)
	if err != nil {
		panic(err)
	}
	return p
}

// Public is shorthand for an open rule.
func Public(method, path string) PolicyRule {
	return PolicyRule{Method: method, Path: path, Access: AccessPublic}
}

// Authenticated is shorthand for an identity-required rule.
func Authenticated(method, path string) PolicyRule {
	return PolicyRule{Method: method, Path: path, Access: AccessAuthenticated}
}

// RequireRoles is shorthand for an exact-role rule.
func RequireRoles(method, path string, roles ...UserRole) PolicyRule {
	return PolicyRule{Method: method, Path: path, Access: AccessRole, Roles: roles}
}

// RequireAtLeast is shorthand for a hierarchy rule.
func RequireAtLeast(method, path string, minRole UserRole) PolicyRule {
	return PolicyRule{Method: method, Path: path, Access: AccessRole, MinRole: minRole}
}

// Evaluate applies the first matching rule to the request identity.
// It returns nil when access is granted, ErrNotAuthenticated when the rule
// demands identity and none is present (401), and ErrInsufficientRole when
// an identity is present but its role does not satisfy the rule (403).
func (p *Policy) Evaluate(method, path string, principal *Principal) error {
	for _, c := range p.rules {
		if !methodMatches(c.rule.Method, method) {
			continue
		}
		if !c.matcher.Match(path) {
			continue
		}
		return applyRule(c.rule, principal)
	}

	// unmatched routes require authentication
	if principal == nil {
		return ErrNotAuthenticated
	}
	return nil
}

func applyRule(rule PolicyRule, principal *Principal) error {
	switch rule.Access {
	case AccessPublic:
		return nil
	case AccessAuthenticated:
		if principal == nil {
			return ErrNotAuthenticated
		}
		return nil
	case AccessRole:
		if principal == nil {
			return ErrNotAuthenticated
		}
		if rule.MinRole != "" && RoleIsAtLeast(principal.Role, rule.MinRole) {
			return nil
		}
		for _, role := range rule.Roles {
			if principal.Role == role {
				return nil
			}
		}
		return ErrInsufficientRole
	default:
		return ErrNotAuthenticated
	}
}

func methodMatches(ruleMethod, requestMethod string) bool {
	if ruleMethod == "" || ruleMethod == "*" {
		return true
	}
	return strings.EqualFold(ruleMethod, requestMethod)
}
