package conductor

// Kind distinguishes which conductor family a LineConfiguration draws its
// phase conductors from.
type Kind int

const (
	KindOverhead Kind = iota
	KindUnderground
	KindTriplex
)

// ExplicitMatrix carries an operator-supplied Z/C matrix in per-mile
// units, used instead of deriving them from geometry.
type ExplicitMatrix struct {
	// Z is Ohm/mile; C, if UseC is true, is nF/mile.
	Z    [3][3]complex128
	C    [3][3]float64
	UseC bool
}

// LineConfiguration composes up to four phase conductors (A, B, C, N), a
// spacing, and either an explicit Z/C matrix or the geometric inputs the
// builder derives Z/C from. When Explicit is set it takes precedence and
// the geometric fields (Kind + conductors + Spacing) are ignored; a
// configuration that sets both is not rejected.
type LineConfiguration struct {
	Name string
	Kind Kind

	// PhaseConductors holds up to four names for whichever Overhead,
	// Underground, or Triplex value the Kind selects; index 3 is the
	// neutral and may be empty if no explicit neutral is wired.
	PhaseConductors [4]string

	Spacing Spacing

	Explicit *ExplicitMatrix

	// UseLineCapacitance toggles whether shunt capacitance is computed at
	// all; when false, Y_abc is forced to zero regardless of what the
	// geometry would otherwise produce.
	UseLineCapacitance bool
}

// IsExplicit reports whether this configuration bypasses geometric
// derivation in favor of an operator-supplied matrix.
func (c *LineConfiguration) IsExplicit() bool { return c.Explicit != nil }
