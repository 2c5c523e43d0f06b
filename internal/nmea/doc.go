// Package nmea validates and decodes NMEA-0183 sentences from multi-constellation
// GNSS receivers.
//
// The pipeline is strict and per-line:
//   - Validate checks framing and checksum and returns the comma-split payload
//   - Dispatch resolves talker and sentence ID and runs the field decoder
//   - Parse does both
//
// Every failure is an *Error classified by one of the Err* sentinels. Errors are
// scoped to a single line; callers drop the line and keep reading.
package nmea
