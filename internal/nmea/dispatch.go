package nmea

type sentenceType uint8

const (
	sentenceOther sentenceType = iota
	sentenceRMC
	sentenceGGA
)

func (t sentenceType) String() string {
	switch t {
	case sentenceRMC:
		return "RMC"
	case sentenceGGA:
		return "GGA"
	default:
		return "OTHER"
	}
}

type termKey struct {
	sentence sentenceType
	index    int
}

type termHandler func(d *Decoder, term string)

// builtinTerms routes non-empty terms of recognized sentences to the pending
// slot of a built-in field.
//
// RMC: 1 time, 2 status, 3 lat, 4 N/S, 5 lon, 6 E/W, 7 speed, 8 course, 9 date
// GGA: 1 time, 2 lat, 3 N/S, 4 lon, 5 E/W, 6 fix quality, 7 satellites, 8 HDOP, 9 altitude
var builtinTerms = map[termKey]termHandler{
	{sentenceRMC, 1}: stageTime,
	{sentenceGGA, 1}: stageTime,
	{sentenceRMC, 2}: func(d *Decoder, term string) { d.hasFix = term[0] == 'A' },
	{sentenceGGA, 6}: func(d *Decoder, term string) { d.hasFix = term[0] > '0' },
	{sentenceRMC, 3}: stageLatitude,
	{sentenceGGA, 2}: stageLatitude,
	{sentenceRMC, 4}: stageLatHemisphere,
	{sentenceGGA, 3}: stageLatHemisphere,
	{sentenceRMC, 5}: stageLongitude,
	{sentenceGGA, 4}: stageLongitude,
	{sentenceRMC, 6}: stageLngHemisphere,
	{sentenceGGA, 5}: stageLngHemisphere,
	{sentenceRMC, 7}: func(d *Decoder, term string) { d.Speed.stage(ParseDecimal(term)) },
	{sentenceRMC, 8}: func(d *Decoder, term string) { d.Course.stage(ParseDecimal(term)) },
	{sentenceRMC, 9}: func(d *Decoder, term string) { d.Date.stage(uint32(atol(term))) },
	{sentenceGGA, 7}: func(d *Decoder, term string) { d.Satellites.stage(uint32(atol(term))) },
	{sentenceGGA, 8}: func(d *Decoder, term string) { d.HDOP.stage(ParseDecimal(term)) },
	{sentenceGGA, 9}: func(d *Decoder, term string) { d.Altitude.stage(ParseDecimal(term)) },
}

func stageTime(d *Decoder, term string) {
	d.Time.stage(uint32(ParseDecimal(term)))
}

func stageLatitude(d *Decoder, term string) {
	d.Location.pending.Lat = ParseDegrees(term)
}

func stageLongitude(d *Decoder, term string) {
	d.Location.pending.Lng = ParseDegrees(term)
}

func stageLatHemisphere(d *Decoder, term string) {
	d.Location.pending.Lat.Negative = term[0] == 'S'
}

func stageLngHemisphere(d *Decoder, term string) {
	d.Location.pending.Lng.Negative = term[0] == 'W'
}

// dispatch stages a completed term of a recognized sentence. Empty terms and
// unknown positions leave every pending value untouched.
func (d *Decoder) dispatch(term string) {
	if d.sentence == sentenceOther || term == "" {
		return
	}
	if h, ok := builtinTerms[termKey{d.sentence, d.termIndex}]; ok {
		h(d, term)
	}
}
