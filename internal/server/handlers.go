package server

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/fusion"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/pipeline"
	"github.com/ironsheep/docscan-mcp/internal/report"
)

// Errors returned for tools whose collaborator is not wired.
var (
	ErrHistoryDisabled = eris.New("history store is not enabled")
	ErrTextDisabled    = eris.New("text recognition is not configured")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "document_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		zap.L().Warn("server: tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "document_analyze":
		return s.handleDocumentAnalyze(ctx, args)
	case "document_fuse":
		return s.handleDocumentFuse(args)
	case "document_report":
		return s.handleDocumentReport(ctx, args)
	case "document_annotate":
		return s.handleDocumentAnnotate(ctx, args)
	case "document_text":
		return s.handleDocumentText(ctx, args)
	case "document_history":
		return s.handleDocumentHistory(ctx, args)
	case "document_capabilities":
		return s.handleDocumentCapabilities()
	default:
		return nil, eris.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// policyArgs are the per-request overrides of the document policy.
type policyArgs struct {
	RequireSignature *bool `json:"require_signature"`
	RequirePhoto     *bool `json:"require_photo"`
}

func (p policyArgs) apply(cfg fusion.Config) fusion.Config {
	if p.RequireSignature != nil {
		cfg.SignatureRequired = *p.RequireSignature
	}
	if p.RequirePhoto != nil {
		cfg.PhotoRequired = *p.RequirePhoto
	}
	return cfg
}

func requirePath(path string) error {
	if path == "" {
		return eris.New("path is required")
	}
	return nil
}

// === Analysis Handlers ===

type documentAnalyzeArgs struct {
	Path string `json:"path"`
	Save bool   `json:"save"`
	policyArgs
}

type analyzeResult struct {
	*pipeline.Analysis
	ID string `json:"id,omitempty"`
}

func (s *Server) handleDocumentAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentAnalyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Save && s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}

	res, err := s.analyzer.AnalyzeFile(ctx, a.Path, a.apply(s.analyzer.FusionConfig()))
	if err != nil {
		return nil, err
	}

	out := analyzeResult{Analysis: res}
	if a.Save {
		id, err := s.opts.History.Save(ctx, res)
		if err != nil {
			return nil, err
		}
		out.ID = id
	}
	return out, nil
}

type documentFuseArgs struct {
	Input             *fusion.Input `json:"input"`
	SignatureRequired *bool         `json:"signature_required"`
	PhotoRequired     *bool         `json:"photo_required"`
	LowOCRThreshold   *float64      `json:"low_ocr_threshold"`
	AmbiguousLow      *float64      `json:"ambiguous_low"`
	AmbiguousHigh     *float64      `json:"ambiguous_high"`
}

func (s *Server) handleDocumentFuse(args json.RawMessage) (interface{}, error) {
	var a documentFuseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	cfg := policyArgs{RequireSignature: a.SignatureRequired, RequirePhoto: a.PhotoRequired}.apply(s.analyzer.FusionConfig())
	if a.LowOCRThreshold != nil {
		cfg.LowOCRThreshold = *a.LowOCRThreshold
	}
	if a.AmbiguousLow != nil {
		cfg.AmbiguousBand.Low = *a.AmbiguousLow
	}
	if a.AmbiguousHigh != nil {
		cfg.AmbiguousBand.High = *a.AmbiguousHigh
	}

	return fusion.Fuse(a.Input, cfg), nil
}

// === Presentation Handlers ===

type documentReportArgs struct {
	Path   string `json:"path"`
	ID     string `json:"id"`
	Format string `json:"format"`
	policyArgs
}

// ReportResult is the output of document_report.
type ReportResult struct {
	Format string `json:"format"`
	Report string `json:"report"`
}

func (s *Server) handleDocumentReport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentReportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Format == "" {
		a.Format = "markdown"
	}
	if a.Format != "markdown" && a.Format != "html" {
		return nil, eris.Errorf("unsupported report format: %s", a.Format)
	}

	var res *pipeline.Analysis
	switch {
	case a.ID != "":
		if s.opts.History == nil {
			return nil, ErrHistoryDisabled
		}
		rec, err := s.opts.History.Get(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		res = rec.Analysis
		if a.RequireSignature != nil || a.RequirePhoto != nil {
			res.Refuse(a.apply(s.analyzer.FusionConfig()))
		}
	case a.Path != "":
		var err error
		res, err = s.analyzer.AnalyzeFile(ctx, a.Path, a.apply(s.analyzer.FusionConfig()))
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.New("path or id is required")
	}

	if a.Format == "html" {
		html, err := report.HTML(res)
		if err != nil {
			return nil, err
		}
		return ReportResult{Format: a.Format, Report: html}, nil
	}
	return ReportResult{Format: a.Format, Report: report.Markdown(res)}, nil
}

type documentAnnotateArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

// AnnotateResult is the output of document_annotate. The image is inline
// unless it was written to OutputPath.
type AnnotateResult struct {
	Width      int                      `json:"width"`
	Height     int                      `json:"height"`
	Marks      int                      `json:"marks"`
	OutputPath string                   `json:"output_path,omitempty"`
	Image      *imaging.EncodedImage    `json:"image,omitempty"`
	Errors     []pipeline.DetectorError `json:"errors"`
}

func (s *Server) handleDocumentAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}

	doc, err := s.analyzer.Cache().Load(a.Path)
	if err != nil {
		return nil, err
	}
	res := s.analyzer.Analyze(ctx, doc.Image)
	marks := imaging.DetectionMarks(res.Input())
	annotated := imaging.Annotate(doc.Image, marks)

	out := AnnotateResult{
		Width:  annotated.Bounds().Dx(),
		Height: annotated.Bounds().Dy(),
		Marks:  len(marks),
		Errors: res.Errors,
	}

	if a.OutputPath != "" {
		if err := imaging.SavePNG(annotated, a.OutputPath); err != nil {
			return nil, err
		}
		out.OutputPath = filepath.Clean(a.OutputPath)
		return out, nil
	}

	enc, err := imaging.EncodePNG(annotated)
	if err != nil {
		return nil, err
	}
	out.Image = enc
	return out, nil
}

type documentTextArgs struct {
	Path string       `json:"path"`
	Zone *fusion.Rect `json:"zone"`
}

// TextResult is the output of document_text. Word boxes are in page
// coordinates, also when a zone was read.
type TextResult struct {
	fusion.TextPage
	Zone *fusion.Rect `json:"zone,omitempty"`
}

func (s *Server) handleDocumentText(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if s.opts.Text == nil {
		return nil, ErrTextDisabled
	}

	doc, err := s.analyzer.Cache().Load(a.Path)
	if err != nil {
		return nil, err
	}

	var page *fusion.TextPage
	if a.Zone != nil {
		if _, ok := a.Zone.Clip(doc.Image.Bounds()); !ok {
			return nil, eris.Errorf("zone %s outside image bounds %v", *a.Zone, doc.Image.Bounds())
		}
		page, err = s.opts.Text.RecognizeZone(ctx, doc.Image, *a.Zone)
	} else {
		page, err = s.opts.Text.Read(ctx, doc.Image)
	}
	if err != nil {
		return nil, eris.Wrap(err, "recognize text")
	}
	if page == nil {
		page = &fusion.TextPage{}
	}
	if page.Words == nil {
		page.Words = []fusion.Word{}
	}
	return TextResult{TextPage: *page, Zone: a.Zone}, nil
}

// === History Handlers ===

type documentHistoryArgs struct {
	ID    string `json:"id"`
	Limit int    `json:"limit"`
}

func (s *Server) handleDocumentHistory(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentHistoryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}
	if a.ID != "" {
		return s.opts.History.Get(ctx, a.ID)
	}
	if a.Limit <= 0 {
		a.Limit = 20
	}
	list, err := s.opts.History.List(ctx, a.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"analyses": list, "count": len(list)}, nil
}

// Capabilities is the output of document_capabilities.
type Capabilities struct {
	Server    string          `json:"server"`
	Version   string          `json:"version"`
	Formats   []string        `json:"formats"`
	Detectors map[string]bool `json:"detectors"`
	Policy    fusion.Config   `json:"policy"`
	History   bool            `json:"history"`
	Text      bool            `json:"text"`
	OCR       map[string]any  `json:"ocr,omitempty"`
}

func (s *Server) handleDocumentCapabilities() (interface{}, error) {
	return Capabilities{
		Server:    Name,
		Version:   s.opts.Version,
		Formats:   imaging.SupportedFormats(),
		Detectors: s.analyzer.Configured(),
		Policy:    s.analyzer.FusionConfig(),
		History:   s.opts.History != nil,
		Text:      s.opts.Text != nil,
		OCR:       s.opts.OCRInfo,
	}, nil
}
