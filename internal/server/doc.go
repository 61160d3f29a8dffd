// Package server implements the MCP (Model Context Protocol) server for
// scanned document analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the analysis
// pipeline through the MCP protocol, so that an assistant can score a form,
// read back its anomalies and look at the detected zones.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Analysis:
//   - document_analyze: Run all detectors and fuse the results
//   - document_fuse: Fuse caller-supplied detector results
//
// Presentation:
//   - document_report: Markdown or HTML reviewer report
//   - document_annotate: Draw detected zones on the page
//   - document_text: Read the text of a page or one zone
//
// History:
//   - document_history: List or fetch stored analyses
//   - document_capabilities: Detectors, policy and formats in use
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The underlying error string
//
// A detector that fails during document_analyze is not a tool error. The
// analysis is returned with the failure listed under "errors" and the
// corresponding input left out of the fusion.
//
// # Usage
//
//	srv := server.New(analyzer, server.Options{Version: version})
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
package server
