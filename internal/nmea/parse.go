package nmea

// RawDegrees is a coordinate as received: whole degrees plus the fractional
// part in billionths of a degree. Negative is set from the hemisphere term.
type RawDegrees struct {
	Deg        uint16
	Billionths uint32
	Negative   bool
}

// Degrees converts to signed decimal degrees.
func (r RawDegrees) Degrees() float64 {
	v := float64(r.Deg) + float64(r.Billionths)/1e9
	if r.Negative {
		return -v
	}
	return v
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// atol reads an optionally signed integer after leading blanks and stops at
// the first non-digit. Text without digits yields 0.
func atol(s string) int64 {
	i := 0
	for i < len(s) && (s[i] == ' ' || (s[i] >= '\t' && s[i] <= '\r')) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	var v int64
	for ; i < len(s) && isDigit(s[i]); i++ {
		v = v*10 + int64(s[i]-'0')
	}
	if neg {
		return -v
	}
	return v
}

// leadingDigits returns the length of the digit run at the start of s.
func leadingDigits(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}

// ParseDecimal parses a possibly negative number with up to two decimals
// ("-xxxx.yy") into hundredths. Further decimals are ignored.
func ParseDecimal(term string) int32 {
	negative := len(term) > 0 && term[0] == '-'
	if negative {
		term = term[1:]
	}
	ret := 100 * int32(atol(term))
	i := leadingDigits(term)
	if i+1 < len(term) && term[i] == '.' && isDigit(term[i+1]) {
		ret += 10 * int32(term[i+1]-'0')
		if i+2 < len(term) && isDigit(term[i+2]) {
			ret += int32(term[i+2] - '0')
		}
	}
	if negative {
		return -ret
	}
	return ret
}

// ParseDegrees parses the NMEA DDDMM.MMMM coordinate format. Negative is
// always false in the result.
func ParseDegrees(term string) RawDegrees {
	leftOfDecimal := uint32(atol(term))
	minutes := leftOfDecimal % 100
	multiplier := uint64(10000000)
	tenMillionthsOfMinutes := uint64(minutes) * multiplier

	i := leadingDigits(term)
	if i < len(term) && term[i] == '.' {
		for i++; i < len(term) && isDigit(term[i]); i++ {
			multiplier /= 10
			tenMillionthsOfMinutes += uint64(term[i]-'0') * multiplier
		}
	}

	// x/60 minutes in units of 1e-7 equals (5x+1)/3 degrees in units of 1e-9.
	billionths := (5*tenMillionthsOfMinutes + 1) / 3
	return RawDegrees{Deg: uint16(leftOfDecimal / 100), Billionths: uint32(billionths)}
}
