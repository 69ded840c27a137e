package ingest

import (
	"fmt"
	"math"
)

// NZTM2000 (EPSG:2193) on the GRS80 ellipsoid.
const (
	nztmA             = 6378137.0
	nztmInvFlattening = 298.257222101
	nztmOriginLat     = 0.0
	nztmCentralMerid  = 173.0
	nztmScale         = 0.9996
	nztmFalseEasting  = 1600000.0
	nztmFalseNorthing = 10000000.0
	degToRad          = math.Pi / 180
	radToDeg          = 180 / math.Pi
)

type tmProjection struct {
	a, e2, n float64
	lon0, k0 float64
	fe, fn   float64
	om       float64
	g        float64
}

var nztm = newTM(nztmA, 1/nztmInvFlattening, nztmOriginLat, nztmCentralMerid, nztmScale, nztmFalseEasting, nztmFalseNorthing)

func newTM(a, f, lat0, lon0, k0, fe, fn float64) tmProjection {
	p := tmProjection{
		a:    a,
		e2:   2*f - f*f,
		n:    f / (2 - f),
		lon0: lon0 * degToRad,
		k0:   k0,
		fe:   fe,
		fn:   fn,
	}
	n := p.n
	p.g = a * (1 - n) * (1 - n*n) * (1 + 9*n*n/4 + 225*n*n*n*n/64)
	p.om = p.meridianArc(lat0 * degToRad)
	return p
}

func (p tmProjection) meridianArc(lat float64) float64 {
	e2 := p.e2
	e4 := e2 * e2
	e6 := e4 * e2
	a0 := 1 - e2/4 - 3*e4/64 - 5*e6/256
	a2 := 3.0 / 8.0 * (e2 + e4/4 + 15*e6/128)
	a4 := 15.0 / 256.0 * (e4 + 3*e6/4)
	a6 := 35 * e6 / 3072
	return p.a * (a0*lat - a2*math.Sin(2*lat) + a4*math.Sin(4*lat) - a6*math.Sin(6*lat))
}

func (p tmProjection) footpointLat(m float64) float64 {
	n := p.n
	n2 := n * n
	n3 := n2 * n
	n4 := n2 * n2
	s := m / p.g
	return s +
		(3*n/2-27*n3/32)*math.Sin(2*s) +
		(21*n2/16-55*n4/32)*math.Sin(4*s) +
		(151*n3/96)*math.Sin(6*s) +
		(1097*n4/512)*math.Sin(8*s)
}

// inverse returns latitude and longitude in radians.
func (p tmProjection) inverse(e, n float64) (float64, float64) {
	m := p.om + (n-p.fn)/p.k0
	lt1 := p.footpointLat(m)
	slt := math.Sin(lt1)
	clt := math.Cos(lt1)

	eslt := 1 - p.e2*slt*slt
	nu := p.a / math.Sqrt(eslt)
	rho := nu * (1 - p.e2) / eslt
	psi := nu / rho

	de := e - p.fe
	x := de / (p.k0 * nu)
	x2 := x * x

	t := slt / clt
	t2 := t * t
	t4 := t2 * t2

	trm1 := 0.5
	trm2 := (-4*psi*psi + 9*psi*(1-t2) + 12*t2) / 24
	trm3 := (8*psi*psi*psi*psi*(11-24*t2) -
		12*psi*psi*psi*(21-71*t2) +
		15*psi*psi*(15-98*t2+15*t4) +
		180*psi*(5*t2-3*t4) + 360*t4) / 720
	trm4 := (1385 + 3633*t2 + 4095*t4 + 1575*t4*t2) / 40320
	lat := lt1 - (t*x*de/(p.k0*rho))*(trm1-x2*(trm2-x2*(trm3-x2*trm4)))

	trm1 = 1
	trm2 = (psi + 2*t2) / 6
	trm3 = (-4*psi*psi*psi*(1-6*t2) + psi*psi*(9-68*t2) + 72*psi*t2 + 24*t4) / 120
	trm4 = (61 + 662*t2 + 1320*t4 + 720*t4*t2) / 5040
	lon := p.lon0 + (x/clt)*(trm1-x2*(trm2-x2*(trm3-x2*trm4)))

	return lat, lon
}

// forward takes latitude and longitude in radians.
func (p tmProjection) forward(lat, lon float64) (float64, float64) {
	dlon := lon - p.lon0
	for dlon > math.Pi {
		dlon -= 2 * math.Pi
	}
	for dlon < -math.Pi {
		dlon += 2 * math.Pi
	}

	m := p.meridianArc(lat)
	slt := math.Sin(lat)
	clt := math.Cos(lat)
	eslt := 1 - p.e2*slt*slt
	nu := p.a / math.Sqrt(eslt)
	rho := nu * (1 - p.e2) / eslt
	psi := nu / rho

	w := dlon
	wc := clt * w
	wc2 := wc * wc
	t := slt / clt
	t2 := t * t
	t4 := t2 * t2
	t6 := t4 * t2

	trm1 := (psi - t2) / 6
	trm2 := (((4*(1-6*t2)*psi+(1+8*t2))*psi-2*t2)*psi + t4) / 120
	trm3 := (61 - 479*t2 + 179*t4 - t6) / 5040
	gce := (p.k0 * nu * wc) * (1 + wc2*(trm1+wc2*(trm2+wc2*trm3)))
	e := p.fe + gce

	trm1 = 0.5
	trm2 = ((4*psi+1)*psi - t2) / 24
	trm3 = ((((8*(11-24*t2)*psi-28*(1-6*t2))*psi+(1-32*t2))*psi-2*t2)*psi + t4) / 720
	trm4 := (1385 - 3111*t2 + 543*t4 - t6) / 40320
	gcn := (m - p.om) + nu*t*wc2*(trm1+wc2*(trm2+wc2*(trm3+wc2*trm4)))
	n := p.fn + p.k0*gcn

	return e, n
}

// NZTMToWGS84 converts an NZTM2000 easting/northing to WGS84 degrees.
func NZTMToWGS84(easting, northing float64) (lat, lon float64, err error) {
	if !finite(easting) || !finite(northing) {
		return 0, 0, fmt.Errorf("invalid NZTM coordinate (%v, %v)", easting, northing)
	}
	la, lo := nztm.inverse(easting, northing)
	return la * radToDeg, lo * radToDeg, nil
}

// WGS84ToNZTM is the forward projection, used for exported site files.
func WGS84ToNZTM(lat, lon float64) (easting, northing float64) {
	return nztm.forward(lat*degToRad, lon*degToRad)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
