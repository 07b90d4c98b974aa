package world

import (
	"fmt"
	"strings"
)

// Built-in turtle variable slots.
const (
	VarWho = iota
	VarColor
	VarHeading
	VarXcor
	VarYcor
	VarShape
	VarLabel
	VarLabelColor
	VarBreed
	VarHidden
	VarSize
	VarPenSize
	VarPenMode
	numTurtleBuiltins
)

// Built-in patch variable slots.
const (
	VarPxcor = iota
	VarPycor
	VarPcolor
	VarPlabel
	VarPlabelColor
	numPatchBuiltins
)

// Built-in link variable slots.
const (
	VarEnd1 = iota
	VarEnd2
	VarLinkColor
	VarLinkLabel
	VarLinkLabelColor
	VarLinkHidden
	VarLinkBreed
	VarThickness
	VarLinkShape
	VarTieMode
	numLinkBuiltins
)

var (
	turtleBuiltins = []string{"WHO", "COLOR", "HEADING", "XCOR", "YCOR", "SHAPE", "LABEL", "LABEL-COLOR", "BREED", "HIDDEN?", "SIZE", "PEN-SIZE", "PEN-MODE"}
	patchBuiltins  = []string{"PXCOR", "PYCOR", "PCOLOR", "PLABEL", "PLABEL-COLOR"}
	linkBuiltins   = []string{"END1", "END2", "COLOR", "LABEL", "LABEL-COLOR", "HIDDEN?", "BREED", "THICKNESS", "SHAPE", "TIE-MODE"}

	turtleBuiltinTypes = []VarType{TypeNumber, TypeColor, TypeNumber, TypeNumber, TypeNumber, TypeString, TypeAny, TypeColor, TypeBreed, TypeBool, TypeNumber, TypeNumber, TypeString}
	patchBuiltinTypes  = []VarType{TypeNumber, TypeNumber, TypeColor, TypeAny, TypeColor}
	linkBuiltinTypes   = []VarType{TypeAgent, TypeAgent, TypeColor, TypeAny, TypeColor, TypeBool, TypeBreed, TypeNumber, TypeString, TypeString}
)

// Tie modes.
const (
	TieNone  = "none"
	TieFree  = "free"
	TieFixed = "fixed"
)

// BreedDecl declares a turtle or link breed.
type BreedDecl struct {
	Name     string   `json:"name" yaml:"name"`
	Singular string   `json:"singular,omitempty" yaml:"singular"`
	Owns     []string `json:"owns,omitempty" yaml:"owns"`

	// Directed applies to link breeds only.
	Directed bool `json:"directed,omitempty" yaml:"directed"`
}

// Program is the compiled shape of a model: global names, per-kind owned
// variables and breed declarations. The world lays out agent variables from
// it and re-lays them out when a new Program is loaded.
type Program struct {
	Globals    []string    `json:"globals,omitempty" yaml:"globals"`
	TurtlesOwn []string    `json:"turtles_own,omitempty" yaml:"turtles_own"`
	PatchesOwn []string    `json:"patches_own,omitempty" yaml:"patches_own"`
	LinksOwn   []string    `json:"links_own,omitempty" yaml:"links_own"`
	Breeds     []BreedDecl `json:"breeds,omitempty" yaml:"breeds"`
	LinkBreeds []BreedDecl `json:"link_breeds,omitempty" yaml:"link_breeds"`
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

// Normalize upper-cases every identifier; names are case-insensitive.
func (p Program) Normalize() Program {
	out := Program{
		Globals:    upperAll(p.Globals),
		TurtlesOwn: upperAll(p.TurtlesOwn),
		PatchesOwn: upperAll(p.PatchesOwn),
		LinksOwn:   upperAll(p.LinksOwn),
	}
	for _, b := range p.Breeds {
		out.Breeds = append(out.Breeds, normBreed(b))
	}
	for _, b := range p.LinkBreeds {
		out.LinkBreeds = append(out.LinkBreeds, normBreed(b))
	}
	return out
}

func normBreed(b BreedDecl) BreedDecl {
	b.Name = strings.ToUpper(strings.TrimSpace(b.Name))
	b.Singular = strings.ToUpper(strings.TrimSpace(b.Singular))
	b.Owns = upperAll(b.Owns)
	return b
}

// Merge adds the declarations of o that p lacks. Breeds present in both
// gain the owned variables only o declares.
func (p Program) Merge(o Program) Program {
	p, o = p.Normalize(), o.Normalize()
	p.Globals = union(p.Globals, o.Globals)
	p.TurtlesOwn = union(p.TurtlesOwn, o.TurtlesOwn)
	p.PatchesOwn = union(p.PatchesOwn, o.PatchesOwn)
	p.LinksOwn = union(p.LinksOwn, o.LinksOwn)
	p.Breeds = mergeBreeds(p.Breeds, o.Breeds)
	p.LinkBreeds = mergeBreeds(p.LinkBreeds, o.LinkBreeds)
	return p
}

func union(a, b []string) []string {
	for _, n := range b {
		if indexOf(a, n) < 0 {
			a = append(a, n)
		}
	}
	return a
}

func mergeBreeds(a, b []BreedDecl) []BreedDecl {
	out := append([]BreedDecl(nil), a...)
	for _, d := range b {
		found := false
		for i := range out {
			if out[i].Name == d.Name {
				out[i].Owns = union(out[i].Owns, d.Owns)
				found = true
			}
		}
		if !found {
			out = append(out, d)
		}
	}
	return out
}

// Validate rejects duplicate or reserved names.
func (p Program) Validate() error {
	p = p.Normalize()
	if err := uniqueNames("globals", p.Globals, nil); err != nil {
		return err
	}
	if err := uniqueNames("turtles-own", p.TurtlesOwn, turtleBuiltins); err != nil {
		return err
	}
	if err := uniqueNames("patches-own", p.PatchesOwn, patchBuiltins); err != nil {
		return err
	}
	if err := uniqueNames("links-own", p.LinksOwn, linkBuiltins); err != nil {
		return err
	}
	seen := map[string]bool{"TURTLES": true, "PATCHES": true, "LINKS": true}
	for _, b := range p.Breeds {
		if b.Name == "" || seen[b.Name] {
			return fmt.Errorf("breed name %q is empty or already in use", b.Name)
		}
		seen[b.Name] = true
		if err := uniqueNames(b.Name+"-own", b.Owns, append(append([]string{}, turtleBuiltins...), p.TurtlesOwn...)); err != nil {
			return err
		}
	}
	for _, b := range p.LinkBreeds {
		if b.Name == "" || seen[b.Name] {
			return fmt.Errorf("link breed name %q is empty or already in use", b.Name)
		}
		seen[b.Name] = true
		if err := uniqueNames(b.Name+"-own", b.Owns, append(append([]string{}, linkBuiltins...), p.LinksOwn...)); err != nil {
			return err
		}
	}
	return nil
}

func uniqueNames(section string, names, reserved []string) error {
	seen := map[string]bool{}
	for _, r := range reserved {
		seen[r] = true
	}
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%s: empty variable name", section)
		}
		if seen[n] {
			return fmt.Errorf("%s: %s is already defined", section, n)
		}
		seen[n] = true
	}
	return nil
}

// Breed is a named agent subtype. Its member set is the value of the BREED
// variable of every member.
type Breed struct {
	name     string
	singular string
	owns     []string
	link     bool
	directed bool

	// generic is set for the universal TURTLES and LINKS breeds.
	generic bool
	set     *AgentSet
}

func (b *Breed) Name() string       { return b.name }
func (b *Breed) Singular() string   { return b.singular }
func (b *Breed) IsLink() bool       { return b.link }
func (b *Breed) Directed() bool     { return b.directed }
func (b *Breed) Generic() bool      { return b.generic }
func (b *Breed) Members() *AgentSet { return b.set }
func (b *Breed) Owns() []string     { return append([]string(nil), b.owns...) }

func newBreed(decl BreedDecl, link, generic bool) *Breed {
	kind := KindTurtle
	if link {
		kind = KindLink
	}
	b := &Breed{name: decl.Name, singular: singularOf(decl), owns: decl.Owns, link: link, directed: decl.Directed, generic: generic}
	b.set = newAgentSet(kind, decl.Name)
	b.set.breed = b
	return b
}

func singularOf(d BreedDecl) string {
	if d.Singular != "" {
		return d.Singular
	}
	return d.Name
}

// layout is the variable layout derived from a Program.
type layout struct {
	prog       Program
	turtleVars []string
	patchVars  []string
	linkVars   []string
}

func newLayout(p Program) layout {
	l := layout{prog: p}
	l.turtleVars = append(append([]string{}, turtleBuiltins...), p.TurtlesOwn...)
	l.patchVars = append(append([]string{}, patchBuiltins...), p.PatchesOwn...)
	l.linkVars = append(append([]string{}, linkBuiltins...), p.LinksOwn...)
	return l
}

// turtleNames lists variable names of a turtle of breed b.
func (l layout) turtleNames(b *Breed) []string {
	if b == nil || b.generic || len(b.owns) == 0 {
		return l.turtleVars
	}
	return append(append([]string{}, l.turtleVars...), b.owns...)
}

func (l layout) linkNames(b *Breed) []string {
	if b == nil || b.generic || len(b.owns) == 0 {
		return l.linkVars
	}
	return append(append([]string{}, l.linkVars...), b.owns...)
}

func indexOf(names []string, name string) int {
	name = strings.ToUpper(name)
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
