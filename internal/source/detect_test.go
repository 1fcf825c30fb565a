package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"empty", "", Unknown},
		{"whitespace", "  \n\t", Other},
		{"sharepoint", `Source = SharePoint.Files("https://contoso.sharepoint.com")`, SharePoint},
		{"sql", `Source = Sql.Database("srv", "db")`, SQLServer},
		{"excel", `Source = Excel.Workbook(File.Contents("a.xlsx"))`, Excel},
		{"web", `Source = Web.Contents("https://api.example.com")`, WebAPI},
		{"odata", `Source = OData.Feed("https://services.odata.org")`, OData},
		{"json", `Source = Json.Document(File.Contents("a.json"))`, JSON},
		{"csv", `Source = Csv.Document(File.Contents("a.csv"))`, CSV},
		{"google analytics", `Source = GoogleAnalytics.Accounts()`, GoogleAnalytics},
		{"other", `let Source = #table({"A"}, {{1}}) in Source`, Other},
		{"case sensitive", `Source = sql.database("srv", "db")`, Other},
		{"priority", `Json.Document(Web.Contents("https://x"))`, WebAPI},
		{"sharepoint beats csv", `Csv.Document(SharePoint.Files("u"))`, SharePoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.code))
		})
	}
}

func TestDetectIsTotal(t *testing.T) {
	labels := map[string]bool{}
	for _, l := range Labels() {
		labels[l] = true
	}

	inputs := []string{"", "x", "SharePoint.", "Sql.DatabaseExcel.Workbook", "\x00\xff", "GoogleAnalytics"}
	for _, in := range inputs {
		got := Detect(in)
		assert.True(t, labels[got], "unexpected label %q for %q", got, in)
		assert.Equal(t, got, Detect(in), "not deterministic for %q", in)
	}
}

func TestLabels(t *testing.T) {
	labels := Labels()
	assert.Len(t, labels, 10)
	assert.Equal(t, SharePoint, labels[0])
	assert.Equal(t, Unknown, labels[len(labels)-1])
}

func TestIsLabel(t *testing.T) {
	for _, l := range Labels() {
		assert.True(t, IsLabel(l), l)
	}
	for _, l := range []string{"", "sql server", "attacker-1", "Excel "} {
		assert.False(t, IsLabel(l), l)
	}
}
