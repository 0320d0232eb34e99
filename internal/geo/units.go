package geo

const (
	MPHPerKnot    = 1.15077945
	MPSPerKnot    = 0.51444444
	KMPHPerKnot   = 1.852
	MilesPerMeter = 0.00062137112
	KMPerMeter    = 0.001
	FeetPerMeter  = 3.2808399
)

func KnotsToMPH(kt float64) float64  { return kt * MPHPerKnot }
func KnotsToMPS(kt float64) float64  { return kt * MPSPerKnot }
func KnotsToKMPH(kt float64) float64 { return kt * KMPHPerKnot }

func MetersToMiles(m float64) float64 { return m * MilesPerMeter }
func MetersToKM(m float64) float64    { return m * KMPerMeter }
func MetersToFeet(m float64) float64  { return m * FeetPerMeter }
