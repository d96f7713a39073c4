// Package testrig drives an external parser and interpreter through
// directories of test bundles and reports how their exit codes and
// output compare with the expected fixtures.
package testrig

// Version is the testrig release reported by the CLI and the MCP server.
const Version = "v0.1.0"
