// Package utils houses the ambient infrastructure shared by every command:
// the Viper-backed configuration loader, the zap logger factory, and a writer
// wrapper that keeps operator output visible through buffered streams.
package utils
