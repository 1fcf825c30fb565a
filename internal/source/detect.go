// Package source infers the data connector a Power Query M script reads from.
package source

import "strings"

// Labels returned by Detect.
const (
	SharePoint      = "SharePoint"
	SQLServer       = "SQL Server"
	Excel           = "Excel"
	WebAPI          = "Web API"
	OData           = "OData"
	JSON            = "JSON"
	CSV             = "CSV"
	GoogleAnalytics = "Google Analytics"
	Other           = "Other"
	Unknown         = "Unknown"
)

type probe struct {
	token string
	label string
}

// probes are checked in order; the first hit wins.
var probes = []probe{
	{"SharePoint.", SharePoint},
	{"Sql.Database", SQLServer},
	{"Excel.Workbook", Excel},
	{"Web.Contents", WebAPI},
	{"OData.Feed", OData},
	{"Json.Document", JSON},
	{"Csv.Document", CSV},
	{"GoogleAnalytics.", GoogleAnalytics},
}

// Detect returns the connector label for code. Matching is case-sensitive.
// Empty input yields Unknown and code with no known connector yields Other.
func Detect(code string) string {
	if code == "" {
		return Unknown
	}
	for _, p := range probes {
		if strings.Contains(code, p.token) {
			return p.label
		}
	}
	return Other
}

// Labels lists every value Detect can return, in probe order.
func Labels() []string {
	out := make([]string, 0, len(probes)+2)
	for _, p := range probes {
		out = append(out, p.label)
	}
	return append(out, Other, Unknown)
}

// IsLabel reports whether label is a value Detect can return.
func IsLabel(label string) bool {
	for _, l := range Labels() {
		if l == label {
			return true
		}
	}
	return false
}
