package report

import (
	"bytes"
	_ "embed"
	"html/template"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
)

var (
	tableTemplate = template.New("table")
	pageTemplate  = template.New("page")

	//go:embed templates/report.html
	tableTemplateRaw string
	//go:embed templates/page.html
	pageTemplateRaw string
)

func init() {
	if _, err := tableTemplate.Funcs(sprig.HtmlFuncMap()).Parse(tableTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := pageTemplate.Funcs(sprig.HtmlFuncMap()).Parse(pageTemplateRaw); err != nil {
		panic(err)
	}
}

// RenderTable renders the records as an HTML table, one row per line. The
// line shape is what the colorizer consumes: a header row of <th> cells
// followed by one <tr><td>...</td></tr> body row per record.
func RenderTable(records []Record) ([]string, error) {
	var b bytes.Buffer
	if err := tableTemplate.Execute(&b, struct{ Records []Record }{Records: records}); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(b.String(), "\n"), "\n"), nil
}

// PageParams parameterizes the HTML document wrapped around the finished
// (colorized) table.
type PageParams struct {
	Title        string
	RunID        string
	GeneratedAt  time.Time
	MailboxCount int
}

// RenderPage wraps already-rendered table markup into a standalone HTML
// document suitable for mailing.
func RenderPage(p PageParams, tableLines []string) (string, error) {
	var b bytes.Buffer
	data := struct {
		PageParams
		Table template.HTML
	}{PageParams: p, Table: template.HTML(strings.Join(tableLines, "\n"))}
	if err := pageTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
