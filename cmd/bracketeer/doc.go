// Package main hosts the bracketeer CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once per invocation,
// applies per-command detection overrides, and hands the heavy lifting to the
// internal packages: extract reads metadata, plan segments it, organizer acts
// on the groups. Commands print human tables to stdout, or JSON with --json,
// while logs go to stderr.
package main
