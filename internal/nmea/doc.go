// Package nmea decodes a NavIC/GNSS receiver's NMEA 0183 output one byte at a
// time.
//
// The decoder never buffers whole lines. Each term is parsed into a pending
// value as soon as its delimiter arrives, and pending values only become
// visible once the sentence's checksum has been verified:
//   - RMC: time, fix status, lat/lon, speed, course, date
//   - GGA: time, lat/lon, fix quality, satellites, HDOP, altitude
//   - any other sentence: caller-registered custom fields by (name, term index)
//
// A Decoder is not safe for concurrent use.
package nmea

// Version of the decoder's wire behavior.
const Version = "1.0.3"
