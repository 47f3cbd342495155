package bundle

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/dabops/internal/workflow"
)

// SerializationError wraps a failure to encode a document.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return "serialize bundle: " + e.Err.Error()
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Header identifies the artifact in its leading comment block.
type Header struct {
	Mode        Mode
	GeneratedAt time.Time
	// Full mode.
	BundleName        string
	BundleDescription string
	// Resources-only mode.
	WorkflowName string
	JobID        int64
}

// NewHeader fills a Header for doc. In full mode the bundle name and
// description are read from the document itself.
func NewHeader(mode Mode, doc *Document, wf workflow.Summary, at time.Time) Header {
	h := Header{
		Mode:              mode,
		GeneratedAt:       at,
		BundleName:        "Unknown",
		BundleDescription: "Auto-generated asset bundle",
		WorkflowName:      wf.DisplayName(),
		JobID:             wf.JobID,
	}
	if doc != nil {
		if b := doc.Doc("bundle"); b != nil {
			if v, ok := b.Get("name"); ok {
				h.BundleName = fmt.Sprint(v)
			}
			if v, ok := b.Get("description"); ok {
				h.BundleDescription = fmt.Sprint(v)
			}
		}
	}
	return h
}

// Text renders the comment block, including the trailing blank line.
func (h Header) Text() string {
	ts := h.GeneratedAt.Format(time.RFC3339)
	var b strings.Builder
	if h.Mode == ModeResourcesOnly {
		b.WriteString("# Databricks Asset Bundle Resources\n")
		fmt.Fprintf(&b, "# Generated on: %s\n", ts)
		fmt.Fprintf(&b, "# Workflow: %s\n", oneLine(h.WorkflowName))
		fmt.Fprintf(&b, "# Job ID: %d\n", h.JobID)
		b.WriteString("# Contains only the 'resources:' section for this workflow\n")
	} else {
		b.WriteString("# Databricks Asset Bundle Configuration\n")
		fmt.Fprintf(&b, "# Generated on: %s\n", ts)
		fmt.Fprintf(&b, "# Bundle: %s\n", oneLine(h.BundleName))
		fmt.Fprintf(&b, "# Description: %s\n", oneLine(h.BundleDescription))
	}
	b.WriteString("\n")
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// oneLine keeps a header value inside its comment line.
func oneLine(s string) string {
	return lineBreaks.Replace(s)
}

// Emitter serializes documents to YAML artifacts.
type Emitter struct {
	logger *slog.Logger
}

func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// Serialize renders doc with its header. The returned text is always usable:
// on failure it is a single error comment line and err is a
// *SerializationError.
func (e *Emitter) Serialize(doc *Document, h Header) (string, error) {
	body, err := encode(doc)
	if err != nil {
		serr := &SerializationError{Err: err}
		e.logger.Error("failed to convert bundle to YAML", "error", err)
		return "# Error generating YAML: " + err.Error(), serr
	}
	return h.Text() + body, nil
}

func encode(doc *Document) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("yaml encoder: %v", r)
		}
	}()
	if doc == nil {
		return "", fmt.Errorf("nil document")
	}
	node, err := doc.Node()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
