// Package printer contains the per-type text renderers used by the CLI's
// output handlers.
package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/mozilla-ai/mcpfleet/internal/cmd/output"
	"github.com/mozilla-ai/mcpfleet/internal/registry"
)

var _ output.Printer[registry.ServerStatus] = (*ServerStatusPrinter)(nil)

func DefaultServerStatusHeader() output.WriteFunc[registry.ServerStatus] {
	return func(w io.Writer, count int) {
		_, _ = fmt.Fprintf(w, "Configured servers (%d):\n\n", count)
	}
}

func DefaultServerStatusFooter() output.WriteFunc[registry.ServerStatus] {
	return nil
}

// ServerStatusPrinter renders one configured server's resolution state.
type ServerStatusPrinter struct {
	headerFunc output.WriteFunc[registry.ServerStatus]
	footerFunc output.WriteFunc[registry.ServerStatus]
}

func NewServerStatusPrinter() *ServerStatusPrinter {
	return &ServerStatusPrinter{
		headerFunc: DefaultServerStatusHeader(),
		footerFunc: DefaultServerStatusFooter(),
	}
}

func (p *ServerStatusPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *ServerStatusPrinter) SetHeader(fn output.WriteFunc[registry.ServerStatus]) {
	p.headerFunc = fn
}

func (p *ServerStatusPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *ServerStatusPrinter) SetFooter(fn output.WriteFunc[registry.ServerStatus]) {
	p.footerFunc = fn
}

// Item outputs a single server status entry.
func (p *ServerStatusPrinter) Item(w io.Writer, status registry.ServerStatus) error {
	_, _ = fmt.Fprintf(w, "  %s [%s] probe=%s", status.Name, status.State, status.Probe)

	if status.RateLimit != nil {
		_, _ = fmt.Fprintf(w, " rps=%d", *status.RateLimit)
	}

	if len(status.Scopes) > 0 {
		_, _ = fmt.Fprintf(w, " scopes=%s", strings.Join(status.Scopes, ","))
	}

	_, _ = fmt.Fprintln(w, "")

	if len(status.MissingEnv) > 0 {
		_, _ = fmt.Fprintf(w, "    missing env: %s\n", strings.Join(status.MissingEnv, ", "))
	}

	return nil
}
