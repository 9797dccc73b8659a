// Package service wires MCP transports to the planner tools.
//
// It knows how to run MCP over stdio or streamable HTTP and leaves the
// meaning of each tool to the domain package.
package service
