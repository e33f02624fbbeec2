// Package logging configures slog output for cinelog: a key=value
// console handler for terminals and a JSON handler for everything else.
package logging
