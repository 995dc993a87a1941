// Package logx is a thin structured-logging layer over zerolog.
//
// It exists for components that want a value-type logger with a safe zero
// value (config manager, activity journal): the zero Logger is a no-op,
// and a Service-backed Logger stays live across Apply() reconfigurations.
package logx
