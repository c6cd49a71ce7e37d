package printer

import (
	"fmt"
	"io"

	"github.com/mozilla-ai/mcpfleet/internal/cmd/output"
	"github.com/mozilla-ai/mcpfleet/internal/health"
)

var _ output.Printer[health.ProbeReport] = (*HealthReportPrinter)(nil)

func DefaultHealthReportHeader() output.WriteFunc[health.ProbeReport] {
	return nil
}

func DefaultHealthReportFooter() output.WriteFunc[health.ProbeReport] {
	return nil
}

// HealthReportPrinter renders one probe sweep result per line:
//
//	time: stdio OK (34ms)
//	fetch: http FAILED (timeout)
type HealthReportPrinter struct {
	headerFunc output.WriteFunc[health.ProbeReport]
	footerFunc output.WriteFunc[health.ProbeReport]
}

func NewHealthReportPrinter() *HealthReportPrinter {
	return &HealthReportPrinter{
		headerFunc: DefaultHealthReportHeader(),
		footerFunc: DefaultHealthReportFooter(),
	}
}

func (p *HealthReportPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *HealthReportPrinter) SetHeader(fn output.WriteFunc[health.ProbeReport]) {
	p.headerFunc = fn
}

func (p *HealthReportPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *HealthReportPrinter) SetFooter(fn output.WriteFunc[health.ProbeReport]) {
	p.footerFunc = fn
}

// Item outputs a single probe result line.
func (p *HealthReportPrinter) Item(w io.Writer, report health.ProbeReport) error {
	detail := report.Detail
	if report.OK {
		detail = fmt.Sprintf("%dms", report.ElapsedMs)
	}

	verdict := "FAILED"
	if report.OK {
		verdict = "OK"
	}

	_, _ = fmt.Fprintf(w, "%s: %s %s (%s)\n", report.Server, report.Probe, verdict, detail)

	return nil
}
