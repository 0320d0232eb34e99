package nmea

// fromHex maps one checksum character to its value. Anything outside A-F and
// a-f is treated as a decimal digit without further validation.
func fromHex(a byte) int {
	switch {
	case a >= 'A' && a <= 'F':
		return int(a-'A') + 10
	case a >= 'a' && a <= 'f':
		return int(a-'a') + 10
	default:
		return int(a) - '0'
	}
}

// checksumOf decodes the two hex digits of a checksum term. Missing digits
// read as NUL.
func checksumOf(term string) byte {
	var hi, lo byte
	if len(term) > 0 {
		hi = term[0]
	}
	if len(term) > 1 {
		lo = term[1]
	}
	return byte(16*fromHex(hi) + fromHex(lo))
}

// Checksum returns the parity of a sentence body (the text between '$' and
// '*'), as the decoder computes it.
func Checksum(body string) byte {
	var p byte
	for i := 0; i < len(body); i++ {
		p ^= body[i]
	}
	return p
}
