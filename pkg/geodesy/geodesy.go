// Package geodesy solves the geodesic inverse and direct problems on the
// WGS84 reference ellipsoid.
//
// The scene protocol places shapes and derives headings from raw lng/lat
// pairs, so a spherical approximation is not good enough: zone footprints a
// few kilometres across would land tens of metres off. Both solvers use
// Vincenty's iterative formulae, which agree with reference geodesic
// libraries to well under a millimetre for the distances this system deals
// with (single-airfield scale).
package geodesy

import "math"

// WGS84 ellipsoid parameters.
const (
	// SemiMajorAxisM is the equatorial radius in meters
	SemiMajorAxisM = 6378137.0

	// Flattening is the WGS84 first flattening
	Flattening = 1.0 / 298.257223563

	// SemiMinorAxisM is the polar radius in meters, b = a(1-f)
	SemiMinorAxisM = SemiMajorAxisM * (1.0 - Flattening)

	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi
)

// convergence threshold for the lambda/sigma iterations, in radians
const epsilon = 1e-12

// maxIterations bounds the Vincenty iteration; nearly antipodal pairs
// converge slowly but everything at airfield scale converges in a handful
// of steps.
const maxIterations = 200

// Point is a position on the ellipsoid in decimal degrees.
// Longitude positive east, latitude positive north.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// InverseSolution is the result of the geodesic inverse problem.
type InverseSolution struct {
	// DistanceM is the geodesic distance between the two points in meters
	DistanceM float64

	// InitialAzimuthDeg is the forward azimuth at the first point,
	// degrees clockwise from true north, normalized to [0, 360)
	InitialAzimuthDeg float64

	// FinalAzimuthDeg is the forward azimuth at the second point,
	// degrees clockwise from true north, normalized to [0, 360)
	FinalAzimuthDeg float64
}

// Inverse computes the distance and the initial/final bearings between two
// points. Coincident points yield a zero distance and zero azimuths.
func Inverse(p1, p2 Point) InverseSolution {
	if p1.Lat == p2.Lat && p1.Lng == p2.Lng {
		return InverseSolution{}
	}

	phi1 := p1.Lat * DegreesToRadians
	phi2 := p2.Lat * DegreesToRadians
	big := SemiMajorAxisM
	small := SemiMinorAxisM
	f := Flattening

	ell := (big*big - small*small) / (small * small)

	capL := (p2.Lng - p1.Lng) * DegreesToRadians
	tanU1 := (1 - f) * math.Tan(phi1)
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1
	tanU2 := (1 - f) * math.Tan(phi2)
	cosU2 := 1 / math.Sqrt(1+tanU2*tanU2)
	sinU2 := tanU2 * cosU2

	lambda := capL
	var sinLambda, cosLambda float64
	var sigma, sinSigma, cosSigma float64
	var sinAlpha, cosSqAlpha, cos2SigmaM float64

	for i := 0; i < maxIterations; i++ {
		sinLambda = math.Sin(lambda)
		cosLambda = math.Cos(lambda)
		t1 := cosU2 * sinLambda
		t2 := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma = math.Sqrt(t1*t1 + t2*t2)
		if sinSigma == 0 {
			// coincident or antipodal degenerate case
			return InverseSolution{}
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha = cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha == 0 {
			// equatorial line
			cos2SigmaM = 0
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		prev := lambda
		lambda = capL + (1-c)*f*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < epsilon {
			break
		}
	}

	uSq := cosSqAlpha * ell
	capA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	capB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := capB * sinSigma *
		(cos2SigmaM + capB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			capB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	distance := small * capA * (sigma - deltaSigma)

	azi1 := math.Atan2(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
	azi2 := math.Atan2(cosU1*sinLambda, -sinU1*cosU2+cosU1*sinU2*cosLambda)

	return InverseSolution{
		DistanceM:         distance,
		InitialAzimuthDeg: NormalizeAzimuth(azi1 * RadiansToDegrees),
		FinalAzimuthDeg:   NormalizeAzimuth(azi2 * RadiansToDegrees),
	}
}

// Direct computes the destination reached from p along the given initial
// bearing (degrees clockwise from true north) for the given distance in
// meters.
func Direct(p Point, azimuthDeg, distanceM float64) Point {
	if distanceM == 0 {
		return p
	}

	phi1 := p.Lat * DegreesToRadians
	alpha1 := azimuthDeg * DegreesToRadians
	big := SemiMajorAxisM
	small := SemiMinorAxisM
	f := Flattening

	sinAlpha1 := math.Sin(alpha1)
	cosAlpha1 := math.Cos(alpha1)

	tanU1 := (1 - f) * math.Tan(phi1)
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1

	sigma1 := math.Atan2(tanU1, cosAlpha1)
	sinAlpha := cosU1 * sinAlpha1
	cosSqAlpha := 1 - sinAlpha*sinAlpha
	uSq := cosSqAlpha * (big*big - small*small) / (small * small)
	capA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	capB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))

	sigma := distanceM / (small * capA)
	var sinSigma, cosSigma, cos2SigmaM float64

	for i := 0; i < maxIterations; i++ {
		cos2SigmaM = math.Cos(2*sigma1 + sigma)
		sinSigma = math.Sin(sigma)
		cosSigma = math.Cos(sigma)
		deltaSigma := capB * sinSigma *
			(cos2SigmaM + capB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
				capB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
		prev := sigma
		sigma = distanceM/(small*capA) + deltaSigma
		if math.Abs(sigma-prev) < epsilon {
			break
		}
	}

	t := sinU1*sinSigma - cosU1*cosSigma*cosAlpha1
	phi2 := math.Atan2(sinU1*cosSigma+cosU1*sinSigma*cosAlpha1,
		(1-f)*math.Sqrt(sinAlpha*sinAlpha+t*t))
	lambda := math.Atan2(sinSigma*sinAlpha1, cosU1*cosSigma-sinU1*sinSigma*cosAlpha1)
	c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
	capL := lambda - (1-c)*f*sinAlpha*
		(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

	return Point{
		Lng: NormalizeLongitude(p.Lng + capL*RadiansToDegrees),
		Lat: phi2 * RadiansToDegrees,
	}
}

// NormalizeAzimuth wraps an azimuth into [0, 360).
func NormalizeAzimuth(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// NormalizeLongitude wraps a longitude into [-180, 180).
func NormalizeLongitude(deg float64) float64 {
	deg = math.Mod(deg+180.0, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg - 180.0
}
