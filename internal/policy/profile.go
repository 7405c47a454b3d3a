package policy

// Profile is the validated security policy the Policy Gate evaluates
// commands against. The profile builder (stack detection, allowlist
// authoring) lives outside the core; Profile is the consumed artifact.
type Profile struct {
	allowed  map[string]bool
	StackTags []string
}

// NewProfile builds a Profile from a set of allowed command names.
func NewProfile(allowedCommands ...string) *Profile {
	p := &Profile{allowed: make(map[string]bool, len(allowedCommands))}
	for _, c := range allowedCommands {
		p.allowed[c] = true
	}
	return p
}

// WithStackTags attaches detected stack fingerprints (informational only;
// the gate never branches on them, matching the reflection-based
// categorization being precomputed upstream of evaluation).
func (p *Profile) WithStackTags(tags ...string) *Profile {
	p.StackTags = append(p.StackTags, tags...)
	return p
}

// Allows reports whether cmd is present in the allowlist.
func (p *Profile) Allows(cmd string) bool {
	if p == nil {
		return false
	}
	return p.allowed[cmd]
}
