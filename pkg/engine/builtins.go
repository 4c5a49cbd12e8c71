package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/linkage/pkg/kinematics"
	"github.com/chazu/linkage/pkg/spatial"
	"github.com/chazu/linkage/pkg/tree"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites robot description source before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: arm-length -> arm_length
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //, which is what zygomys reads.
//
// All transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps an r3.Vec.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpRotation wraps a rotation built by `rpy`.
type sexpRotation struct {
	roll, pitch, yaw float64
	rot              r3.Rotation
}

func (r *sexpRotation) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rpy %g %g %g)", r.roll, r.pitch, r.yaw)
}
func (r *sexpRotation) Type() *zygo.RegisteredType { return nil }

// sexpJoint wraps a joint configuration returned by `rotational`, `linear`
// or `fixed` and consumed by `link`.
type sexpJoint struct {
	cfg kinematics.JointConfig
}

func (j *sexpJoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s :name %q)", j.cfg.Type, j.cfg.Name)
}
func (j *sexpJoint) Type() *zygo.RegisteredType { return nil }

// sexpVisual wraps link geometry returned by `box`, `cylinder` or `sphere`.
type sexpVisual struct {
	vis kinematics.Visual
}

func (v *sexpVisual) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", v.vis.Shape)
}
func (v *sexpVisual) Type() *zygo.RegisteredType { return nil }

// sexpLinkRef refers to a link created by `link`.
type sexpLinkRef struct {
	id   tree.NodeID
	name string
}

func (l *sexpLinkRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(link %q)", l.name)
}
func (l *sexpLinkRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// unknownKeywords returns an error naming any keyword outside allowed.
func (a kwArgs) unknownKeywords(fn string, allowed ...string) error {
	var bad []string
	for k := range a.kw {
		found := false
		for _, ok := range allowed {
			if k == ok {
				found = true
				break
			}
		}
		if !found {
			bad = append(bad, ":"+k)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return fmt.Errorf("%s: unknown keyword %s", fn, strings.Join(bad, ", "))
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toAxis accepts :x, :y, :z, the strings "-x", "-y", "-z", or a vec3.
func toAxis(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	name, err := toKeywordString(s)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("expected axis keyword (:x, :y, :z) or vec3: %w", err)
	}
	sign := 1.0
	if strings.HasPrefix(name, "-") {
		sign, name = -1, name[1:]
	}
	switch name {
	case "x":
		return r3.Vec{X: sign}, nil
	case "y":
		return r3.Vec{Y: sign}, nil
	case "z":
		return r3.Vec{Z: sign}, nil
	}
	return r3.Vec{}, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// toVec3 extracts an r3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toRotation extracts a rotation from a sexpRotation.
func toRotation(s zygo.Sexp) (r3.Rotation, error) {
	if r, ok := s.(*sexpRotation); ok {
		return r.rot, nil
	}
	return r3.Rotation{}, fmt.Errorf("expected rpy, got %T (%s)", s, s.SexpString(nil))
}

// toRange reads a two-element list (min max).
func toRange(s zygo.Sexp) (kinematics.Range, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return kinematics.Range{}, err
	}
	if len(items) != 2 {
		return kinematics.Range{}, fmt.Errorf("expected (list min max), got %d elements", len(items))
	}
	lo, err := toFloat64(items[0])
	if err != nil {
		return kinematics.Range{}, fmt.Errorf("min: %w", err)
	}
	hi, err := toFloat64(items[1])
	if err != nil {
		return kinematics.Range{}, fmt.Errorf("max: %w", err)
	}
	return kinematics.Range{Min: lo, Max: hi}, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Robot builder
// ---------------------------------------------------------------------------

// builder accumulates links while the description runs and assembles the
// kinematics.Tree afterwards.
type builder struct {
	arena *tree.Tree[*kinematics.Link]
	ids   map[string]tree.NodeID
	name  string
	root  string
}

func newBuilder() *builder {
	return &builder{
		arena: tree.New[*kinematics.Link](),
		ids:   make(map[string]tree.NodeID),
		name:  "robot",
	}
}

// lookup resolves a link name or link reference.
func (b *builder) lookup(s zygo.Sexp) (tree.NodeID, string, error) {
	if ref, ok := s.(*sexpLinkRef); ok {
		return ref.id, ref.name, nil
	}
	name, err := toString(s)
	if err != nil {
		return tree.None, "", fmt.Errorf("expected link name or reference: %w", err)
	}
	id, ok := b.ids[name]
	if !ok {
		return tree.None, "", fmt.Errorf("no link named %q", name)
	}
	return id, name, nil
}

// finish checks that the links form a single tree and wraps it.
func (b *builder) finish() (*kinematics.Tree, error) {
	if b.arena.Len() == 0 {
		return nil, fmt.Errorf("robot %q defines no links", b.name)
	}
	var roots []tree.NodeID
	for id := tree.NodeID(0); int(id) < b.arena.Len(); id++ {
		if _, ok := b.arena.Parent(id); !ok {
			roots = append(roots, id)
		}
	}
	if b.root != "" {
		id, ok := b.ids[b.root]
		if !ok {
			return nil, fmt.Errorf("robot %q: root link %q is not defined", b.name, b.root)
		}
		if _, attached := b.arena.Parent(id); attached {
			return nil, fmt.Errorf("robot %q: root link %q has a parent", b.name, b.root)
		}
	}
	if len(roots) > 1 {
		names := make([]string, len(roots))
		for i, id := range roots {
			names[i] = b.arena.Payload(id).Name()
		}
		return nil, fmt.Errorf("robot %q has %d unconnected root links: %s", b.name, len(roots), strings.Join(names, ", "))
	}
	return kinematics.NewTree(b.name, b.arena, roots[0])
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the robot description builtins into a zygomys
// environment. The builtins populate b during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	type builtinFunc = func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error)

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (rpy roll pitch yaw)
	// -----------------------------------------------------------------------
	env.AddFunction("rpy", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("rpy requires exactly 3 arguments, got %d", len(args))
		}
		var a [3]float64
		for i, s := range args {
			f, err := toFloat64(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rpy: %s: %w", [3]string{"roll", "pitch", "yaw"}[i], err)
			}
			a[i] = f
		}
		return &sexpRotation{roll: a[0], pitch: a[1], yaw: a[2], rot: spatial.FromRPY(a[0], a[1], a[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (rotational :name "elbow" :axis :y :limits (list -2.0 2.0))
	// (linear :name "slide" :axis (vec3 0 0 1))
	// (fixed :name "mount")
	// -----------------------------------------------------------------------
	joint := func(typ kinematics.JointType) builtinFunc {
		fn := typ.String()
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			allowed := []string{"name", "axis", "limits"}
			if typ == kinematics.Fixed {
				allowed = allowed[:1]
			}
			if err := pa.unknownKeywords(fn, allowed...); err != nil {
				return zygo.SexpNull, err
			}
			cfg := kinematics.JointConfig{Type: typ}
			if v, ok := pa.kw["name"]; ok {
				s, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
				}
				cfg.Name = s
			}
			if typ == kinematics.Fixed {
				return &sexpJoint{cfg: cfg}, nil
			}
			v, ok := pa.kw["axis"]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: :axis is required", fn)
			}
			axis, err := toAxis(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: axis: %w", fn, err)
			}
			cfg.Axis = axis
			if v, ok := pa.kw["limits"]; ok {
				r, err := toRange(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: limits: %w", fn, err)
				}
				cfg.Limits = &r
			}
			if _, err := kinematics.NewJoint(cfg); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			return &sexpJoint{cfg: cfg}, nil
		}
	}
	env.AddFunction("rotational", joint(kinematics.Rotational))
	env.AddFunction("linear", joint(kinematics.Linear))
	env.AddFunction("fixed", joint(kinematics.Fixed))

	// -----------------------------------------------------------------------
	// (box :size (vec3 0.1 0.1 0.3) :origin (vec3 0 0 -0.15) :rotation (rpy 0 0 0))
	// (cylinder :radius 0.03 :length 0.3)
	// (sphere :radius 0.05)
	// -----------------------------------------------------------------------
	visual := func(shape kinematics.Shape, keys ...string) builtinFunc {
		fn := shape.String()
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if err := pa.unknownKeywords(fn, append(keys, "origin", "rotation")...); err != nil {
				return zygo.SexpNull, err
			}
			vis := kinematics.Visual{Shape: shape, Origin: spatial.Identity()}
			for _, k := range keys {
				v, ok := pa.kw[k]
				if !ok {
					return zygo.SexpNull, fmt.Errorf("%s: :%s is required", fn, k)
				}
				var err error
				switch k {
				case "size":
					vis.Size, err = toVec3(v)
				case "radius":
					vis.Radius, err = toFloat64(v)
				case "length":
					vis.Length, err = toFloat64(v)
				}
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %s: %w", fn, k, err)
				}
			}
			if v, ok := pa.kw["origin"]; ok {
				t, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: origin: %w", fn, err)
				}
				vis.Origin.Translation = t
			}
			if v, ok := pa.kw["rotation"]; ok {
				r, err := toRotation(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: rotation: %w", fn, err)
				}
				vis.Origin.Rotation = r
			}
			return &sexpVisual{vis: vis}, nil
		}
	}
	env.AddFunction("box", visual(kinematics.ShapeBox, "size"))
	env.AddFunction("cylinder", visual(kinematics.ShapeCylinder, "radius", "length"))
	env.AddFunction("sphere", visual(kinematics.ShapeSphere, "radius"))

	// -----------------------------------------------------------------------
	// (link "name" :parent "base" :translation (vec3 0 0.1 0) :rotation (rpy 0 0 0)
	//       :joint (rotational ...) :visual (box ...))
	// -----------------------------------------------------------------------
	env.AddFunction("link", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("link requires exactly one name argument")
		}
		linkName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("link: name: %w", err)
		}
		if err := pa.unknownKeywords("link", "parent", "translation", "rotation", "joint", "visual"); err != nil {
			return zygo.SexpNull, err
		}
		if _, dup := b.ids[linkName]; dup {
			return zygo.SexpNull, fmt.Errorf("link: %q is already defined", linkName)
		}

		cfg := kinematics.LinkConfig{Name: linkName, Joint: kinematics.JointConfig{Type: kinematics.Fixed}}
		if v, ok := pa.kw["translation"]; ok {
			if cfg.Translation, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("link %q: translation: %w", linkName, err)
			}
		}
		if v, ok := pa.kw["rotation"]; ok {
			if cfg.Rotation, err = toRotation(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("link %q: rotation: %w", linkName, err)
			}
		}
		if v, ok := pa.kw["joint"]; ok {
			j, ok := v.(*sexpJoint)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("link %q: joint: expected joint, got %T (%s)", linkName, v, v.SexpString(nil))
			}
			cfg.Joint = j.cfg
		}
		if v, ok := pa.kw["visual"]; ok {
			vis, ok := v.(*sexpVisual)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("link %q: visual: expected box, cylinder or sphere, got %T", linkName, v)
			}
			cp := vis.vis
			cfg.Visual = &cp
		}

		parent := tree.None
		if v, ok := pa.kw["parent"]; ok {
			if parent, _, err = b.lookup(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("link %q: parent: %w", linkName, err)
			}
		}

		l, err := kinematics.NewLink(cfg)
		if err != nil {
			return zygo.SexpNull, err
		}
		id := b.arena.Add(l)
		b.ids[linkName] = id
		if parent != tree.None {
			if err := b.arena.Attach(parent, id); err != nil {
				return zygo.SexpNull, fmt.Errorf("link %q: %w", linkName, err)
			}
		}
		return &sexpLinkRef{id: id, name: linkName}, nil
	})

	// -----------------------------------------------------------------------
	// (attach "parent" "child")
	// -----------------------------------------------------------------------
	env.AddFunction("attach", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("attach requires a parent and a child, got %d arguments", len(args))
		}
		parent, pname, err := b.lookup(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attach: parent: %w", err)
		}
		child, cname, err := b.lookup(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attach: child: %w", err)
		}
		if err := b.arena.Attach(parent, child); err != nil {
			return zygo.SexpNull, fmt.Errorf("attach %q to %q: %w", cname, pname, err)
		}
		return &sexpLinkRef{id: child, name: cname}, nil
	})

	// -----------------------------------------------------------------------
	// (robot "arm" :root "base")
	// -----------------------------------------------------------------------
	env.AddFunction("robot", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("robot requires exactly one name argument")
		}
		if err := pa.unknownKeywords("robot", "root"); err != nil {
			return zygo.SexpNull, err
		}
		robotName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("robot: name: %w", err)
		}
		b.name = robotName
		if v, ok := pa.kw["root"]; ok {
			if b.root, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("robot: root: %w", err)
			}
		}
		return zygo.SexpNull, nil
	})
}
