// Package gps keeps the latest per-constellation state decoded from an NMEA
// stream and fuses the constellations that report a fix into one position.
//
// Aggregator and Fuse are single-threaded and never block. Service wraps them
// with a serial or replay line source for use by the binary.
package gps
