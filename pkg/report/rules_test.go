package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/mailbox-report/pkg/colorize"
	"github.com/telekom/mailbox-report/pkg/mbxreport/config"
)

func TestApplyDefaultRulesToRenderedTable(t *testing.T) {
	records := []Record{
		{DisplayName: "Ok", Status: StatusOK},
		{DisplayName: "Warn", Status: StatusWarning},
		{DisplayName: "NoSend", Status: StatusProhibitSend},
		{DisplayName: "Blocked", Status: StatusProhibitSendReceive},
	}
	lines, err := RenderTable(records)
	require.NoError(t, err)

	colored, err := ApplyRules(lines, config.DefaultRules())
	require.NoError(t, err)
	require.Len(t, colored, len(lines))

	joined := strings.Join(colored, "\n")
	assert.Contains(t, joined, `<td style="background-color:#FFF275">1</td>`)
	assert.Contains(t, joined, `<td style="background-color:#FFB347">2</td>`)
	assert.Contains(t, joined, `<td style="background-color:#FF6961">3</td>`)

	for _, line := range colored {
		if strings.Contains(line, "<td>Ok</td>") {
			assert.NotContains(t, line, "background-color", "status 0 row stays unstyled")
		}
	}
}

func TestApplyRulesAbortsOnBadRule(t *testing.T) {
	lines, err := RenderTable([]Record{{DisplayName: "Alice"}})
	require.NoError(t, err)

	out, err := ApplyRules(lines, []colorize.Rule{
		{Property: "Status", Color: "red", Filter: "Status -ge 1"},
		{Property: "Nope", Color: "red", Filter: "Nope -ge 1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, colorize.ErrLookup)
	assert.Nil(t, out)
}

func TestApplyRulesNoRulesIsIdentity(t *testing.T) {
	lines := []string{"<table>", "</table>"}
	out, err := ApplyRules(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, lines, out)
}
