package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"hirelane/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// render writes v in the requested output format. table is used for the
// default human-readable format.
func render(cmd *cobra.Command, v any, table func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	switch format := viper.GetString("output"); format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round trip through JSON so the yaml keys follow the json tags.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	case "", "table":
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		table(w)
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
	}
}

func printPage(w io.Writer, page *store.Page) {
	if page == nil {
		return
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", page.Page, page.Pages, page.Total)
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status store.ApplicationStatus) string {
	switch status {
	case store.ApplicationAccepted:
		return colorGreen + "✓" + colorReset
	case store.ApplicationRejected, store.ApplicationWithdrawn:
		return colorRed + "✗" + colorReset
	case store.ApplicationInterviewScheduled, store.ApplicationShortlisted:
		return colorYellow + "⏳" + colorReset
	case store.ApplicationPending:
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status store.ApplicationStatus) string {
	icon := statusIcon(status)
	switch status {
	case store.ApplicationAccepted:
		return icon + " " + colorGreen + string(status) + colorReset
	case store.ApplicationRejected, store.ApplicationWithdrawn:
		return icon + " " + colorRed + string(status) + colorReset
	case store.ApplicationInterviewScheduled, store.ApplicationShortlisted:
		return icon + " " + colorYellow + string(status) + colorReset
	case store.ApplicationPending:
		return icon + " " + colorCyan + string(status) + colorReset
	default:
		return string(status)
	}
}

func formatSalary(c store.Compensation) string {
	s := fmt.Sprintf("%s %.0f", c.Currency, c.Min)
	if c.Max != nil && *c.Max > c.Min {
		s += fmt.Sprintf("-%.0f", *c.Max)
	}
	if c.Period != "" {
		s += "/" + string(c.Period)
	}
	return s
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%s %s(%s)%s", t.Format("Mon, 02 Jan 2006 15:04 MST"), colorDim, relativeTime(*t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)
	suffix := "ago"
	if duration < 0 {
		duration = -duration
		suffix = "from now"
	}

	var amount string
	if duration < time.Minute {
		amount = fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		amount = fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		amount = fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			amount = "1 day"
		} else {
			amount = fmt.Sprintf("%d days", days)
		}
	}
	return amount + " " + suffix
}
