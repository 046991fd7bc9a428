package pysec

// ReportInfo this is report information
type ReportInfo struct {
	Errors   map[string][]Error `json:"Python errors"`
	Issues   []*Issue
	Stats    *Metrics
	Handlers []HandlerInfo `json:",omitempty" yaml:",omitempty"`
	Version  string        `json:"PysecVersion,omitempty" yaml:"version,omitempty"`
}

// NewReportInfo instantiate a ReportInfo
func NewReportInfo(issues []*Issue, metrics *Metrics, errors map[string][]Error) *ReportInfo {
	return &ReportInfo{
		Errors: errors,
		Issues: issues,
		Stats:  metrics,
	}
}

// WithHandlers attaches the discovered request handlers to the report.
func (r *ReportInfo) WithHandlers(handlers []HandlerInfo) *ReportInfo {
	r.Handlers = handlers
	return r
}

// WithVersion defines the version of pysec used to generate the report
func (r *ReportInfo) WithVersion(version string) *ReportInfo {
	r.Version = version
	return r
}
