// Package dfsbench holds build metadata shared by the dfsbench command
// and its MCP server.
package dfsbench

// Version is the dfsbench release version.
var Version = "v0.1.0"
