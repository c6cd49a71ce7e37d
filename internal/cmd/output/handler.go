package output

import (
	"fmt"
	"io"
)

const defaultIndent = 2

// ForFormat returns the handler for the given output format name
// ("text", "json" or "yaml"). The printer is only used for text output.
func ForFormat[T any](format string, w io.Writer, p Printer[T]) (Handler[T], error) {
	switch format {
	case "text", "":
		return NewTextHandler(w, p), nil
	case "json":
		return NewJSONHandler[T](w, defaultIndent), nil
	case "yaml":
		return NewYAMLHandler[T](w, defaultIndent), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
