// Package main hosts the cinelog CLI entrypoint and command graph.
//
// The Cobra-based command tree covers CSV ingestion, matching runs,
// staging inspection and repair, catalog browsing, credit enrichment,
// and configuration scaffolding. It centralizes configuration
// resolution, store construction, and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main
