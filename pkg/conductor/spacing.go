package conductor

// Spacing holds the pairwise distances between conductors (and between
// each conductor and earth) that the geometric line-matrix path needs.
// All distances are in feet. Distance to earth must be >= 0; pairwise
// conductor distances must be > 0 wherever the corresponding phases
// exist.
type Spacing struct {
	// Height above earth for each of A, B, C, N, in that order; used for
	// the image-distance shunt-capacitance construction.
	HeightAboveEarth [4]float64

	// Distance[i][j] is the spacing between conductor i and conductor j,
	// indexed 0=A, 1=B, 2=C, 3=N. Diagonal entries are unused.
	Distance [4][4]float64
}

// Valid reports whether every declared height is non-negative and every
// declared pairwise distance among present conductors is strictly
// positive.
func (s Spacing) Valid(present [4]bool) bool {
	for i, h := range s.HeightAboveEarth {
		if present[i] && h < 0 {
			return false
		}
	}
	for i := 0; i < 4; i++ {
		if !present[i] {
			continue
		}
		for j := 0; j < 4; j++ {
			if i == j || !present[j] {
				continue
			}
			if s.Distance[i][j] <= 0 {
				return false
			}
		}
	}
	return true
}
