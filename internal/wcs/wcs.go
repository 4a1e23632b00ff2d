// Package wcs implements the linear part of the FITS world coordinate system:
// a reference pixel, a reference value and a 2x2 transform. Projections
// (TAN, SIN, ...) are not applied.
package wcs

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/samcharles93/fitskit/internal/fits"
)

var (
	ErrNoWCS    = errors.New("wcs: header has no world coordinate keywords")
	ErrSingular = errors.New("wcs: transform matrix is singular")
)

// Linear maps 1-based pixel coordinates to world coordinates:
//
//	world = CRVAL + CD * (pixel - CRPIX)
type Linear struct {
	CRPix [2]float64
	CRVal [2]float64
	CD    [2][2]float64
	CType [2]string
	CUnit [2]string
}

// FromHeader builds the transform from CDi_j, PCi_j with CDELTi, or CDELTi
// with CROTA2, in that order of preference.
func FromHeader(h fits.Header) (*Linear, error) {
	if !h.Has("CRVAL1") && !h.Has("CRPIX1") && !h.Has("CTYPE1") {
		return nil, ErrNoWCS
	}

	l := &Linear{}
	for i := range 2 {
		n := i + 1
		l.CRPix[i] = h.FloatOr(key("CRPIX", n), 0)
		l.CRVal[i] = h.FloatOr(key("CRVAL", n), 0)
		l.CType[i] = h.StringOr(key("CTYPE", n), "")
		l.CUnit[i] = h.StringOr(key("CUNIT", n), "")
	}

	cdelt := [2]float64{h.FloatOr("CDELT1", 1), h.FloatOr("CDELT2", 1)}
	switch {
	case hasMatrix(h, "CD"):
		for i := range 2 {
			for j := range 2 {
				l.CD[i][j] = h.FloatOr(matrixKey("CD", i+1, j+1), 0)
			}
		}
	case hasMatrix(h, "PC"):
		for i := range 2 {
			for j := range 2 {
				def := 0.0
				if i == j {
					def = 1
				}
				l.CD[i][j] = cdelt[i] * h.FloatOr(matrixKey("PC", i+1, j+1), def)
			}
		}
	default:
		rho := h.FloatOr("CROTA2", 0) * math.Pi / 180
		sin, cos := math.Sincos(rho)
		l.CD = [2][2]float64{
			{cdelt[0] * cos, -cdelt[1] * sin},
			{cdelt[0] * sin, cdelt[1] * cos},
		}
	}
	return l, nil
}

// PixelToWorld converts 1-based FITS pixel coordinates. The centre of the
// first pixel is (1, 1).
func (l *Linear) PixelToWorld(x, y float64) (float64, float64) {
	dx, dy := x-l.CRPix[0], y-l.CRPix[1]
	return l.CRVal[0] + l.CD[0][0]*dx + l.CD[0][1]*dy,
		l.CRVal[1] + l.CD[1][0]*dx + l.CD[1][1]*dy
}

// WorldToPixel is the inverse of PixelToWorld.
func (l *Linear) WorldToPixel(a, b float64) (float64, float64, error) {
	det := l.CD[0][0]*l.CD[1][1] - l.CD[0][1]*l.CD[1][0]
	if det == 0 || math.IsNaN(det) {
		return 0, 0, ErrSingular
	}
	da, db := a-l.CRVal[0], b-l.CRVal[1]
	x := (l.CD[1][1]*da - l.CD[0][1]*db) / det
	y := (-l.CD[1][0]*da + l.CD[0][0]*db) / det
	return x + l.CRPix[0], y + l.CRPix[1], nil
}

func (l *Linear) String() string {
	return fmt.Sprintf("%s/%s CRPIX=(%g, %g) CRVAL=(%g, %g)",
		l.CType[0], l.CType[1], l.CRPix[0], l.CRPix[1], l.CRVal[0], l.CRVal[1])
}

func hasMatrix(h fits.Header, prefix string) bool {
	for i := 1; i <= 2; i++ {
		for j := 1; j <= 2; j++ {
			if h.Has(matrixKey(prefix, i, j)) {
				return true
			}
		}
	}
	return false
}

func key(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}

func matrixKey(prefix string, i, j int) string {
	return prefix + strconv.Itoa(i) + "_" + strconv.Itoa(j)
}
