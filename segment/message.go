package segment

import (
	"errors"
	"fmt"
)

// Severity is the leading marker of a status message.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

var severityMarkers = map[Severity]string{
	SeveritySuccess: "**✅ Success:**",
	SeverityWarning: "**⚠️ Warning:**",
	SeverityError:   "**❌ Error:**",
}

// Message is the short human-readable status shown next to the outputs.
type Message struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Text     string   `json:"text" yaml:"text"`
}

func (m Message) String() string {
	return string(m.Severity) + ": " + m.Text
}

// Markdown renders the message with its emoji severity marker.
func (m Message) Markdown() string {
	marker, ok := severityMarkers[m.Severity]
	if !ok {
		return m.Text
	}
	return marker + " " + m.Text
}

func successf(format string, args ...any) Message {
	return Message{Severity: SeveritySuccess, Text: fmt.Sprintf(format, args...)}
}

func warningf(format string, args ...any) Message {
	return Message{Severity: SeverityWarning, Text: fmt.Sprintf(format, args...)}
}

func errorf(format string, args ...any) Message {
	return Message{Severity: SeverityError, Text: fmt.Sprintf(format, args...)}
}

// Failure kinds carried by Outcome.Err.
var (
	ErrMissingInput    = errors.New("missing input image")
	ErrEmptyPrompt     = errors.New("no mask drawn")
	ErrProviderFailure = errors.New("segmentation provider failed")
	ErrCompositing     = errors.New("compositing failed")
)

const (
	textMissingInput = "Please upload both images."
	textEmptyPrompt  = "No mask drawn. Please draw a mask on the original image."
	textModelOK      = "Segmentation completed with SAM2."
	textModelMissing = "SAM2 model unavailable, using drawn mask as mask."
)
