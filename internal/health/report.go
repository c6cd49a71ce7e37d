package health

// ProbeReport is the flat, serializable view of a single probe sweep result,
// used by CLI output.
type ProbeReport struct {
	Server    string `json:"server"           yaml:"server"`
	Probe     string `json:"probe"            yaml:"probe"`
	OK        bool   `json:"ok"               yaml:"ok"`
	Detail    string `json:"detail,omitempty" yaml:"detail,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"        yaml:"elapsedMs"`
}

// Report flattens a check result for presentation.
func (r CheckResult) Report() ProbeReport {
	return ProbeReport{
		Server:    r.Server.Name,
		Probe:     r.Server.ProbeKind(),
		OK:        r.Result.OK,
		Detail:    r.Result.Err,
		ElapsedMs: r.Result.Elapsed.Milliseconds(),
	}
}
