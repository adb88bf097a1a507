package sun

import "math"

// SolarConstant is the extraterrestrial irradiance used by the clear-sky
// model, in W/m².
const SolarConstant = 1353

// ClearSkyIrradiance estimates the direct beam irradiance of the sun at
// altitude (radians) on a plane perpendicular to the sun, in W/m², for a
// site elevationMeters above sea level.
func ClearSkyIrradiance(altitude, elevationMeters float64) float64 {
	// This is based on https://www.pveducation.org/pvcdrom/properties-of-sunlight/air-mass
	if altitude < 0 {
		return 0
	}

	// Air mass is between 1 with the sun directly overhead and ~38 at the
	// horizon. The core of this is 1/cos(zenith); the rest of the terms
	// account for the curvature of the Earth. Elevation is accounted for
	// in the illumination model below.
	//
	// From Kasten, F. and Young, A. T., “Revised optical air mass
	// tables and approximation formula”, Applied Optics, vol. 28, pp.
	// 4735–4738, 1989.
	zenith := 90 - altitude*rad2deg
	airMass := 1 / (math.Cos(zenith*deg2rad) + 0.50572*math.Pow(96.07995-zenith, -1.6364))

	// From Meinel, A. B. and Meinel, M. P., Applied Solar Energy.
	// Addison Wesley Publishing Co., 1976.
	h := elevationMeters / 1000
	const a = 0.14
	return SolarConstant * ((1-a*h)*math.Pow(0.7, math.Pow(airMass, 0.678)) + a*h)
}

// GlobalIrradiance adds diffuse sky radiation, taken as 10% of the direct
// beam, to the fraction light (0 in full shade, 1 in full sun) of the direct
// beam that reaches a surface.
func GlobalIrradiance(altitude, elevationMeters, light float64) float64 {
	return (0.1 + light) * ClearSkyIrradiance(altitude, elevationMeters)
}
