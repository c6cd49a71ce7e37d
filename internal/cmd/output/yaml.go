package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLHandler renders results and errors as YAML, honoring struct tags.
// Collections are wrapped in a top-level `results` field, single values in
// `result`, and failures in `error`, mirroring the JSON handler's shape.
type YAMLHandler[T any] struct {
	out    io.Writer
	indent int
}

// NewYAMLHandler constructs a YAMLHandler for items of type T.
// indentSpaces controls the number of spaces used for nested nodes.
func NewYAMLHandler[T any](w io.Writer, indentSpaces int) *YAMLHandler[T] {
	return &YAMLHandler[T]{
		out:    w,
		indent: indentSpaces,
	}
}

// Writer returns the underlying io.Writer where YAML will be written.
func (h *YAMLHandler[T]) Writer() io.Writer {
	return h.out
}

// HandleResult marshals the given item under a "result" key.
func (h *YAMLHandler[T]) HandleResult(item T) error {
	return h.encode(ResultPayload[T]{Result: item})
}

// HandleResults marshals the given items under a "results" key.
func (h *YAMLHandler[T]) HandleResults(items ...T) error {
	return h.encode(ResultsPayload[T]{Results: items})
}

// HandleError marshals the error message under an "error" key.
func (h *YAMLHandler[T]) HandleError(err error) error {
	return h.encode(ErrorPayload{Error: err.Error()})
}

// encode writes one YAML document, closing the encoder to flush any
// buffered data.
func (h *YAMLHandler[T]) encode(payload any) error {
	enc := yaml.NewEncoder(h.out)
	defer func() {
		_ = enc.Close()
	}()

	enc.SetIndent(h.indent)

	return enc.Encode(payload)
}
