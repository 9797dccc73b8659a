// Package domain defines the planner MCP tools: their input and result
// schemas and the handlers that forward each call to the planner service.
package domain
