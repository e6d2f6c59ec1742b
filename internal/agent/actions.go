package agent

import (
	"fmt"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Tool names as they appear on the wire and in prompts.
const (
	ToolNavigate = "navigate"
	ToolClick    = "click"
	ToolFill     = "fill"
	ToolType     = "type"
	ToolUpload   = "upload"
	ToolWait     = "wait"
)

// Wait durations the wait tool accepts, exclusive low and inclusive high.
const (
	waitMinSeconds = 0.0
	waitMaxSeconds = 10.0
)

// Action is one proposed browser operation. The set of implementations is
// closed: the dispatcher switches over every variant exhaustively and an
// unknown tool name never produces an Action that reaches the driver.
type Action interface {
	// Tool returns the wire-level tool name.
	Tool() string
	// Reason returns the role's stated rationale for the action.
	Reason() string
	// validate checks the parameters against the tool's schema.
	validate() error
	// sealed prevents implementations outside this package.
	sealed()
}

// NavigateAction loads a URL in the browser.
type NavigateAction struct {
	URL       string
	Rationale string
}

func (a NavigateAction) Tool() string   { return ToolNavigate }
func (a NavigateAction) Reason() string { return a.Rationale }
func (a NavigateAction) sealed()        {}

func (a NavigateAction) validate() error {
	if a.URL == "" {
		return fmt.Errorf("navigate requires a url")
	}
	u, err := url.Parse(a.URL)
	if err != nil {
		return fmt.Errorf("navigate url %q is malformed: %v", a.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "about" && u.Scheme != "file" {
		return fmt.Errorf("navigate url %q has unsupported scheme %q", a.URL, u.Scheme)
	}
	return nil
}

// ClickAction clicks the element behind an identifier.
type ClickAction struct {
	ElementID string
	Rationale string
}

func (a ClickAction) Tool() string   { return ToolClick }
func (a ClickAction) Reason() string { return a.Rationale }
func (a ClickAction) sealed()        {}

func (a ClickAction) validate() error {
	return requireElementID(ToolClick, a.ElementID)
}

// FillAction replaces the value of an input element.
type FillAction struct {
	ElementID string
	Value     string
	Rationale string
}

func (a FillAction) Tool() string   { return ToolFill }
func (a FillAction) Reason() string { return a.Rationale }
func (a FillAction) sealed()        {}

func (a FillAction) validate() error {
	return requireElementID(ToolFill, a.ElementID)
}

// TypeAction sends keystrokes to an element without clearing it first.
type TypeAction struct {
	ElementID string
	Text      string
	Rationale string
}

func (a TypeAction) Tool() string   { return ToolType }
func (a TypeAction) Reason() string { return a.Rationale }
func (a TypeAction) sealed()        {}

func (a TypeAction) validate() error {
	if err := requireElementID(ToolType, a.ElementID); err != nil {
		return err
	}
	if a.Text == "" {
		return fmt.Errorf("type requires non-empty text")
	}
	return nil
}

// UploadAction attaches task resources to a file input. Resources are named,
// never pathed: the role only ever sees names and the dispatcher translates
// them to local paths.
type UploadAction struct {
	ElementID     string
	ResourceNames []string
	Rationale     string
}

func (a UploadAction) Tool() string   { return ToolUpload }
func (a UploadAction) Reason() string { return a.Rationale }
func (a UploadAction) sealed()        {}

func (a UploadAction) validate() error {
	if err := requireElementID(ToolUpload, a.ElementID); err != nil {
		return err
	}
	if len(a.ResourceNames) == 0 {
		return fmt.Errorf("upload requires at least one resource name")
	}
	for _, name := range a.ResourceNames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("upload resource names must be non-empty")
		}
	}
	return nil
}

// WaitAction pauses for a bounded duration.
type WaitAction struct {
	Seconds   float64
	Rationale string
}

func (a WaitAction) Tool() string   { return ToolWait }
func (a WaitAction) Reason() string { return a.Rationale }
func (a WaitAction) sealed()        {}

func (a WaitAction) validate() error {
	if a.Seconds <= waitMinSeconds || a.Seconds > waitMaxSeconds {
		return fmt.Errorf("wait seconds must be in (%g, %g], got %g", waitMinSeconds, waitMaxSeconds, a.Seconds)
	}
	return nil
}

// invalidAction stands in for a wire action that named an unknown tool or
// carried undecodable parameters. It keeps batch positions intact so the
// dispatcher can report the failure in order without touching the driver.
type invalidAction struct {
	ToolName  string
	Err       error
	Rationale string
}

func (a invalidAction) Tool() string    { return a.ToolName }
func (a invalidAction) Reason() string  { return a.Rationale }
func (a invalidAction) sealed()         {}
func (a invalidAction) validate() error { return a.Err }

func requireElementID(tool, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s requires an element id", tool)
	}
	return nil
}

func paramsError(tool string, err error) error {
	return fmt.Errorf("%s parameters are invalid: %v", tool, err)
}

// wireAction is the tagged-union JSON shape roles emit and history records.
type wireAction struct {
	Tool   string              `json:"tool"`
	Params jsoniter.RawMessage `json:"params,omitempty"`
	Reason string              `json:"reason,omitempty"`
}

type navigateParams struct {
	URL string `json:"url"`
}

type clickParams struct {
	ElementID string `json:"element_id"`
}

type fillParams struct {
	ElementID string `json:"element_id"`
	Value     string `json:"value"`
}

type typeParams struct {
	ElementID string `json:"element_id"`
	Text      string `json:"text"`
}

type uploadParams struct {
	ElementID     string   `json:"element_id"`
	ResourceNames []string `json:"resource_names"`
}

type waitParams struct {
	Seconds float64 `json:"seconds"`
}

var wireJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeAction maps one wire action onto its typed variant. Unknown tools
// and undecodable parameter payloads come back as an invalidAction rather
// than an error, so a bad entry does not sink the whole batch.
func decodeAction(w wireAction) Action {
	params := w.Params
	if len(params) == 0 {
		params = jsoniter.RawMessage("{}")
	}

	switch w.Tool {
	case ToolNavigate:
		var p navigateParams
		if err := wireJSON.Unmarshal(params, &p); err != nil {
			return invalidAction{ToolName: w.Tool, Err: paramsError(w.Tool, err), Rationale: w.Reason}
		}
		return NavigateAction{URL: p.URL, Rationale: w.Reason}
	case ToolClick:
		var p clickParams
		if err := wireJSON.Unmarshal(params, &p); err != nil {
			return invalidAction{ToolName: w.Tool, Err: paramsError(w.Tool, err), Rationale: w.Reason}
		}
		return ClickAction{ElementID: p.ElementID, Rationale: w.Reason}
	case ToolFill:
		var p fillParams
		if err := wireJSON.Unmarshal(params, &p); err != nil {
			return invalidAction{ToolName: w.Tool, Err: paramsError(w.Tool, err), Rationale: w.Reason}
		}
		return FillAction{ElementID: p.ElementID, Value: p.Value, Rationale: w.Reason}
	case ToolType:
		var p typeParams
		if err := wireJSON.Unmarshal(params, &p); err != nil {
			return invalidAction{ToolName: w.Tool, Err: paramsError(w.Tool, err), Rationale: w.Reason}
		}
		return TypeAction{ElementID: p.ElementID, Text: p.Text, Rationale: w.Reason}
	case ToolUpload:
		var p uploadParams
		if err := wireJSON.Unmarshal(params, &p); err != nil {
			return invalidAction{ToolName: w.Tool, Err: paramsError(w.Tool, err), Rationale: w.Reason}
		}
		return UploadAction{ElementID: p.ElementID, ResourceNames: p.ResourceNames, Rationale: w.Reason}
	case ToolWait:
		var p waitParams
		if err := wireJSON.Unmarshal(params, &p); err != nil {
			return invalidAction{ToolName: w.Tool, Err: paramsError(w.Tool, err), Rationale: w.Reason}
		}
		return WaitAction{Seconds: p.Seconds, Rationale: w.Reason}
	default:
		return invalidAction{
			ToolName:  w.Tool,
			Err:       fmt.Errorf("unknown tool %q", w.Tool),
			Rationale: w.Reason,
		}
	}
}

// encodeAction renders a typed action back to its wire shape for history
// context. Marshal errors cannot occur for the closed parameter structs.
func encodeAction(a Action) wireAction {
	w := wireAction{Tool: a.Tool(), Reason: a.Reason()}
	var params any
	switch act := a.(type) {
	case NavigateAction:
		params = navigateParams{URL: act.URL}
	case ClickAction:
		params = clickParams{ElementID: act.ElementID}
	case FillAction:
		params = fillParams{ElementID: act.ElementID, Value: act.Value}
	case TypeAction:
		params = typeParams{ElementID: act.ElementID, Text: act.Text}
	case UploadAction:
		params = uploadParams{ElementID: act.ElementID, ResourceNames: act.ResourceNames}
	case WaitAction:
		params = waitParams{Seconds: act.Seconds}
	case invalidAction:
		return w
	}
	raw, _ := wireJSON.Marshal(params)
	w.Params = raw
	return w
}
