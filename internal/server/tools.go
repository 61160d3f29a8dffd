package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the scanned document (PNG, JPEG, GIF, TIFF or BMP)",
	}
}

func policyProperties(props map[string]interface{}) map[string]interface{} {
	props["require_signature"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Flag the document when no signature is found. Defaults to the server policy",
	}
	props["require_photo"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Flag the document when no identity photo is found. Defaults to the server policy",
	}
	return props
}

func rectSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "integer"},
			"y": map[string]interface{}{"type": "integer"},
			"w": map[string]interface{}{"type": "integer"},
			"h": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x", "y", "w", "h"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Analysis
		{
			Name:        "document_analyze",
			Description: "Run text, signature, photo and checkbox detection on a scanned document and fuse the results into a 0-100 validity score with anomalies for review. Detector failures are listed under errors and never abort the analysis.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": policyProperties(map[string]interface{}{
					"path": pathProperty(),
					"save": map[string]interface{}{
						"type":        "boolean",
						"description": "Store the analysis in the history database. Default false",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_fuse",
			Description: "Fuse detector results supplied by the caller into a score and anomaly list without touching any image. Any of text, signature, photo and checkboxes may be omitted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input": map[string]interface{}{
						"type":        "object",
						"description": `Detector results, e.g. {"text":{"text":"...","confidence":75},"signature":{"present":true,"zones":[],"ink_ratio":0.9},"photo":{"found":true},"checkboxes":{"boxes":[{"box":{"x":0,"y":0,"w":20,"h":20},"checked":true,"fill_ratio":0.6}]}}`,
					},
					"signature_required": map[string]interface{}{"type": "boolean"},
					"photo_required":     map[string]interface{}{"type": "boolean"},
					"low_ocr_threshold": map[string]interface{}{
						"type":        "number",
						"description": "OCR confidence (0-100) under which text is flagged. Defaults to the server policy",
					},
					"ambiguous_low": map[string]interface{}{
						"type":        "number",
						"description": "Lower bound of the ambiguous checkbox fill band",
					},
					"ambiguous_high": map[string]interface{}{
						"type":        "number",
						"description": "Upper bound of the ambiguous checkbox fill band",
					},
				},
				"required": []string{"input"},
			},
		},

		// Presentation
		{
			Name:        "document_report",
			Description: "Render a human-readable report for a document, either by analysing a file or from a stored analysis id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": policyProperties(map[string]interface{}{
					"path": pathProperty(),
					"id": map[string]interface{}{
						"type":        "string",
						"description": "History id of a stored analysis, used instead of path",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"markdown", "html"},
						"description": "Report format. Default markdown",
						"default":     "markdown",
					},
				}),
			},
		},
		{
			Name:        "document_annotate",
			Description: "Analyse a document and draw the detected zones on it: signature zones in red, the photo in blue, checkboxes in green (checked) or orange. Returns a base64 PNG, or writes it to output_path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the annotated PNG here instead of returning it inline",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_text",
			Description: "Extract text from a document, or from one zone of it, with the mean recognition confidence (0-100) and word boxes in page coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"zone": rectSchema("Optional zone to read, in image pixel coordinates"),
				},
				"required": []string{"path"},
			},
		},

		// History
		{
			Name:        "document_history",
			Description: "List stored analyses, newest first, or fetch one by id. Requires the history store to be enabled.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Fetch this analysis in full",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum entries to list. Default 20",
						"default":     20,
					},
				},
			},
		},
		{
			Name:        "document_capabilities",
			Description: "Report which detectors are configured, the default fusion policy, supported formats and whether history is enabled.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
