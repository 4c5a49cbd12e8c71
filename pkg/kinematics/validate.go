package kinematics

import "fmt"

// ValidationSeverity indicates whether a finding makes the tree unusable or
// is merely advisory.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // breaks name lookups or chains
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Link     string             // offending link (empty if tree-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Link == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] link %q: %s", e.Severity, e.Link, e.Message)
}

// Validate runs structural checks over the tree. An empty result means the
// tree is well formed. It never mutates the tree.
func (t *Tree) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, t.validateLinkNames()...)
	errs = append(errs, t.validateJointNames()...)
	errs = append(errs, t.validateOrder()...)
	if t.DOF() == 0 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("tree %q has no movable joints", t.Name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateLinkNames reports duplicate link names; lookups by name would only
// ever find the first.
func (t *Tree) validateLinkNames() []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, l := range t.Links() {
		if seen[l.Name()] {
			errs = append(errs, ValidationError{
				Link:     l.Name(),
				Message:  "duplicate link name",
				Severity: SeverityError,
			})
		}
		seen[l.Name()] = true
	}
	return errs
}

func (t *Tree) validateJointNames() []ValidationError {
	var errs []ValidationError
	seen := make(map[string]string)
	for _, l := range t.movable() {
		name := l.Joint().Name()
		if name == "" {
			errs = append(errs, ValidationError{
				Link:     l.Name(),
				Message:  "movable joint has no name",
				Severity: SeverityWarning,
			})
			continue
		}
		if other, dup := seen[name]; dup {
			errs = append(errs, ValidationError{
				Link:     l.Name(),
				Message:  fmt.Sprintf("joint name %q already used by link %q", name, other),
				Severity: SeverityWarning,
			})
			continue
		}
		seen[name] = l.Name()
	}
	return errs
}

// validateOrder reports links attached through the arena after the last
// Rebuild; they are invisible to every tree operation until then.
func (t *Tree) validateOrder() []ValidationError {
	if n := len(t.arena.Descendants(t.root)); n != len(t.order) {
		return []ValidationError{{
			Message:  fmt.Sprintf("tree %q tracks %d links but its root spans %d; call Rebuild", t.Name, len(t.order), n),
			Severity: SeverityError,
		}}
	}
	return nil
}
