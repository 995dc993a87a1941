// Package logging owns the slog handler stack used by the engine's
// services: a pretty console handler, an optional JSON file sink, and an
// atomic handler so sinks and levels can be swapped on config reload
// without replacing the *slog.Logger held by running components.
package logging
