package fusion

import (
	"encoding/json"
	"fmt"
	"image"
	"strings"
)

// Component names used as keys in Output.ComponentScores.
const (
	ComponentOCR       = "ocr"
	ComponentSignature = "signature"
	ComponentPhoto     = "photo"
	ComponentCheckbox  = "checkbox"
)

// ComponentOrder is the fixed evaluation order of the score components.
var ComponentOrder = []string{ComponentOCR, ComponentSignature, ComponentPhoto, ComponentCheckbox}

// Rect is an axis-aligned bounding box in image pixel coordinates with the
// origin at the top-left corner.
//
// Rects are not tied to any image: detectors may report boxes that fall
// partially or entirely outside the raster. Use Clip before drawing.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Valid reports whether all coordinates are non-negative.
func (r Rect) Valid() bool {
	return r.X >= 0 && r.Y >= 0 && r.W >= 0 && r.H >= 0
}

// Empty reports whether the rect covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Rectangle converts r to an image.Rectangle (exclusive max corner).
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Clip intersects r with bounds. The second result is false when nothing of r
// lies inside bounds or r is malformed.
func (r Rect) Clip(bounds image.Rectangle) (image.Rectangle, bool) {
	if !r.Valid() || r.Empty() {
		return image.Rectangle{}, false
	}
	clipped := r.Rectangle().Intersect(bounds)
	if clipped.Empty() {
		return image.Rectangle{}, false
	}
	return clipped, true
}

func (r Rect) String() string {
	return fmt.Sprintf("(x=%d, y=%d, w=%d, h=%d)", r.X, r.Y, r.W, r.H)
}

// RectFrom converts an image.Rectangle to a Rect.
func RectFrom(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// TextResult is the output of the text recognition adapter.
//
// An empty Text with zero Confidence is a valid "nothing legible" result.
type TextResult struct {
	Text string `json:"text"`

	// Confidence is the mean recognition confidence on a 0-100 scale.
	Confidence float64 `json:"confidence"`
}

// Word is one recognised word with its box in page coordinates.
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// TextPage is the detailed output of text recognition: the TextResult
// fields plus the word boxes they were computed from.
type TextPage struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Result returns the fusion input carried by p.
func (p *TextPage) Result() *TextResult {
	return &TextResult{Text: p.Text, Confidence: p.Confidence}
}

// SignatureSignal is the raw scoring input for the signature component. It is
// either a SignaturePresence or a SignatureRatio.
type SignatureSignal interface {
	isSignatureSignal()
}

// SignaturePresence marks a boolean-only signature detection. It carries no
// value: the component is scored from SignatureResult.Present, so the two
// can never disagree.
type SignaturePresence struct{}

// SignatureRatio is the measured ink ratio of the signature zone in [0,1].
type SignatureRatio float64

func (SignaturePresence) isSignatureSignal() {}
func (SignatureRatio) isSignatureSignal()    {}

// SignatureResult is the output of the signature adapter.
type SignatureResult struct {
	Present bool   `json:"present"`
	Zones   []Rect `json:"zones"`

	// Signal selects how the component is scored. A nil Signal or a
	// SignaturePresence is scored from Present.
	Signal SignatureSignal `json:"-"`
}

// NewSignaturePresence returns a boolean-only signature result.
func NewSignaturePresence(present bool, zones []Rect) *SignatureResult {
	return &SignatureResult{Present: present, Zones: zones, Signal: SignaturePresence{}}
}

// NewSignatureRatio returns a signature result scored by its ink ratio.
func NewSignatureRatio(present bool, zones []Rect, ratio float64) *SignatureResult {
	return &SignatureResult{Present: present, Zones: zones, Signal: SignatureRatio(ratio)}
}

type signatureJSON struct {
	Present  bool     `json:"present"`
	Zones    []Rect   `json:"zones"`
	InkRatio *float64 `json:"ink_ratio,omitempty"`
}

// MarshalJSON encodes a ratio signal as ink_ratio; a presence signal omits it.
func (s SignatureResult) MarshalJSON() ([]byte, error) {
	out := signatureJSON{Present: s.Present, Zones: s.Zones}
	if out.Zones == nil {
		out.Zones = []Rect{}
	}
	if r, ok := s.Signal.(SignatureRatio); ok {
		v := float64(r)
		out.InkRatio = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON selects the ratio variant when ink_ratio is present and the
// presence variant otherwise.
func (s *SignatureResult) UnmarshalJSON(data []byte) error {
	var in signatureJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Present = in.Present
	s.Zones = in.Zones
	if in.InkRatio != nil {
		s.Signal = SignatureRatio(*in.InkRatio)
	} else {
		s.Signal = SignaturePresence{}
	}
	return nil
}

// InkRatio returns the measured ink ratio when the result carries one.
func (s SignatureResult) InkRatio() (float64, bool) {
	r, ok := s.Signal.(SignatureRatio)
	return float64(r), ok
}

// PhotoResult is the output of the identity photo adapter.
type PhotoResult struct {
	Found bool  `json:"found"`
	Zone  *Rect `json:"zone,omitempty"`
}

// Checkbox is a single detected checkbox.
type Checkbox struct {
	Box       Rect    `json:"box"`
	Checked   bool    `json:"checked"`
	FillRatio float64 `json:"fill_ratio"`
}

// CheckboxResult is the output of the checkbox adapter. An empty Boxes slice
// means the detector ran and found no checkboxes.
type CheckboxResult struct {
	Boxes []Checkbox `json:"boxes"`
}

// CheckedCount returns the number of boxes marked as checked.
func (c CheckboxResult) CheckedCount() int {
	n := 0
	for _, b := range c.Boxes {
		if b.Checked {
			n++
		}
	}
	return n
}

// Input aggregates the detector results for one document. Each field is nil
// when the corresponding detector did not produce a result.
type Input struct {
	Text       *TextResult      `json:"text,omitempty"`
	Signature  *SignatureResult `json:"signature,omitempty"`
	Photo      *PhotoResult     `json:"photo,omitempty"`
	Checkboxes *CheckboxResult  `json:"checkboxes,omitempty"`
}

// Empty reports whether no detector produced a result. A nil Input is empty.
func (in *Input) Empty() bool {
	return in == nil || (in.Text == nil && in.Signature == nil && in.Photo == nil && in.Checkboxes == nil)
}

// Band is an open interval (Low, High).
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether Low < v < High.
func (b Band) Contains(v float64) bool {
	return v > b.Low && v < b.High
}

// Config holds the document policy applied by Fuse.
type Config struct {
	// SignatureRequired flags a document without a signature.
	SignatureRequired bool `json:"signature_required"`

	// PhotoRequired flags a document without an identity photo.
	PhotoRequired bool `json:"photo_required"`

	// LowOCRThreshold is the confidence (0-100) under which OCR output is
	// reported as unreliable.
	LowOCRThreshold float64 `json:"low_ocr_threshold"`

	// AmbiguousBand is the fill ratio range in which a checkbox is neither
	// clearly checked nor clearly empty.
	AmbiguousBand Band `json:"ambiguous_band"`
}

// DefaultConfig returns the default policy: nothing required, OCR flagged
// below 40, checkboxes ambiguous in (0.15, 0.35).
func DefaultConfig() Config {
	return Config{
		LowOCRThreshold: 40,
		AmbiguousBand:   Band{Low: 0.15, High: 0.35},
	}
}

// Output is the result of fusing one Input. It is never mutated after Fuse
// returns it.
type Output struct {
	// GlobalScore is the mean of the component scores as a percentage [0,100].
	GlobalScore float64 `json:"global_score"`

	// Anomalies lists reviewer-facing findings in detection order.
	Anomalies []string `json:"anomalies"`

	// ComponentScores maps each component name to its normalized [0,1] score.
	ComponentScores map[string]float64 `json:"component_scores"`
}

// ComponentScore is one named entry of Output.Components.
type ComponentScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Components returns the component scores in ComponentOrder.
func (o Output) Components() []ComponentScore {
	out := make([]ComponentScore, 0, len(ComponentOrder))
	for _, name := range ComponentOrder {
		out = append(out, ComponentScore{Name: name, Score: o.ComponentScores[name]})
	}
	return out
}

// HasAnomaly reports whether any anomaly starts with prefix.
func (o Output) HasAnomaly(prefix string) bool {
	for _, a := range o.Anomalies {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}
