// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a sane console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.),
//   - an adapter exposing the context logger to HTTP retry clients.
//
// All release services accept a context and extract the logger from it,
// so every step of a stamp, package or publish run is logged under the
// name of the binary that performed it.
package logger
