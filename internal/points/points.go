// Package points maps list positions to point values.
package points

import (
	"math"

	"github.com/demonlist-ranking/internal/domain"
)

const (
	// MaxPoints is awarded for position 1.
	MaxPoints = 300
	// MinPoints is awarded for the last position of a curve.
	MinPoints = 1

	// StandardCurve is the last position worth points on every list but the challenge list.
	StandardCurve = 200
	// ChallengeCurve is the last position worth points on the challenge list.
	ChallengeCurve = 100
)

// Calculate returns the points for position on a curve that ends at curveMax.
// Positions outside [1, curveMax] are worth nothing; in between the value is
// interpolated linearly from MaxPoints down to MinPoints and rounded half away from zero.
func Calculate(position, curveMax int) int {
	if position < 1 || position > curveMax {
		return 0
	}
	if position == 1 {
		return MaxPoints
	}
	if position == curveMax {
		return MinPoints
	}
	span := float64(MaxPoints - MinPoints)
	p := float64(MaxPoints) - float64(position-1)*span/float64(curveMax-1)
	return int(math.Round(p))
}

// CurveMax returns the curve length for a list.
func CurveMax(listType domain.ListType) int {
	if listType == domain.ListChallenge {
		return ChallengeCurve
	}
	return StandardCurve
}

// ForList returns the points for position on the given list.
func ForList(position int, listType domain.ListType) int {
	return Calculate(position, CurveMax(listType))
}

// AcceptsSubmissions reports whether records may be submitted for a demon at
// position on listType. Challenge positions past the curve are closed.
func AcceptsSubmissions(position int, listType domain.ListType) bool {
	return listType != domain.ListChallenge || position <= ChallengeCurve
}
