package report

import (
	"fmt"

	"github.com/telekom/mailbox-report/pkg/colorize"
	"github.com/telekom/mailbox-report/pkg/metrics"
)

// ApplyRules runs the color rules against the rendered table in order. The
// passes compose: later row-scope rules replace earlier row colors instead
// of stacking them. The first failing rule aborts with no output.
func ApplyRules(lines []string, rules []colorize.Rule) ([]string, error) {
	out := lines
	for _, rule := range rules {
		colored, err := colorize.Colorize(out, rule)
		if err != nil {
			return nil, fmt.Errorf("color rule %q on column %q: %w", rule.Filter, rule.Property, err)
		}
		metrics.ColorizePasses.Inc()
		for i := range out {
			if out[i] != colored[i] {
				metrics.ColorizeRowsMatched.WithLabelValues(rule.Property).Inc()
			}
		}
		out = colored
	}
	return out, nil
}
