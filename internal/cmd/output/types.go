package output

import "io"

// Handler renders command results in one output format. Commands pick a
// concrete handler with ForFormat and hand it their result values; the
// handler owns serialization for server statuses, health reports and the like.
type Handler[T any] interface {
	// Writer returns the io.Writer this Handler will write to.
	Writer() io.Writer

	// HandleResult renders a single value.
	HandleResult(item T) error

	// HandleResults renders a collection of values.
	HandleResults(items ...T) error

	// HandleError renders the error.
	HandleError(err error) error
}

// WriteFunc writes output framing a collection of items of type T, such
// as the header or footer of a text listing.
//
// The function receives an io.Writer to write to, and the total count of
// items being printed. It does not receive or operate on individual items.
type WriteFunc[T any] func(w io.Writer, count int)

// Printer formats individual items for the text handler. Each listing
// command supplies its own Printer (see the printer package).
type Printer[T any] interface {
	// Header should be called once before the Item.
	Header(w io.Writer, count int)

	// SetHeader can be used to configure the Header function.
	SetHeader(fn WriteFunc[T])

	// Item prints one element.
	Item(w io.Writer, elem T) error

	// Footer should be called once after the Item.
	Footer(w io.Writer, count int)

	// SetFooter can be used to configure the Footer function.
	SetFooter(fn WriteFunc[T])
}

// ResultsPayload wraps multiple result values for structured output,
// serialized under the key "results".
type ResultsPayload[T any] struct {
	Results []T `json:"results" yaml:"results"`
}

// ResultPayload wraps a single result value for structured output,
// serialized under the key "result".
type ResultPayload[T any] struct {
	Result T `json:"result" yaml:"result"`
}

// ErrorPayload carries an error message in structured output,
// serialized under the key "error".
type ErrorPayload struct {
	Error string `json:"error" yaml:"error"`
}
