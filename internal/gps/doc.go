// Package gps runs a NavIC/GNSS receiver ingest loop.
//
// Raw bytes from a serial port, gpsd (raw NMEA watch), a TCP NMEA feed, or a
// capture replay are fed one at a time into an nmea.Decoder. Each time a
// sentence passes its checksum the committed fields are merged into a
// Snapshot, which is stored for readers and handed to every configured Sink.
package gps
