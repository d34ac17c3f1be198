package cmd

import (
	"fmt"
	"io"
	"sort"

	"hirelane/internal/store"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Employer dashboards",
}

var statsJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Summarise your postings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		stats, err := newClient().JobStats()
		if err != nil {
			return err
		}
		return render(cmd, stats, func(w io.Writer) {
			fmt.Fprintf(w, "Total jobs:\t%d\n", stats.TotalJobs)
			fmt.Fprintf(w, "Active jobs:\t%d\n", stats.ActiveJobs)
			if len(stats.ByStatus) > 0 {
				fmt.Fprintln(w, "\nSTATUS\tJOBS\tVIEWS\tAPPLICATIONS")
				for _, s := range stats.ByStatus {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Status, s.Count, s.TotalViews, s.TotalApplications)
				}
			}
			if len(stats.RecentApplications) > 0 {
				fmt.Fprintln(w, "\nRECENT APPLICATION\tJOB\tSTATUS\tAPPLIED")
				for _, a := range stats.RecentApplications {
					title := a.JobID.String()
					if a.Job != nil {
						title = a.Job.Title
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, title, colorizeStatus(a.Status), relativeTime(a.AppliedAt))
				}
			}
		})
	},
}

var statsApplicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "Summarise applications received",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		stats, err := newClient().ApplicationStats()
		if err != nil {
			return err
		}
		return render(cmd, stats, func(w io.Writer) {
			fmt.Fprintf(w, "Total:\t%d\n", stats.Total)
			fmt.Fprintf(w, "New:\t%d\n", stats.Unviewed)
			if len(stats.ByStatus) == 0 {
				return
			}
			statuses := make([]string, 0, len(stats.ByStatus))
			for s := range stats.ByStatus {
				statuses = append(statuses, string(s))
			}
			sort.Strings(statuses)
			fmt.Fprintln(w, "\nSTATUS\tCOUNT")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%d\n", s, stats.ByStatus[store.ApplicationStatus(s)])
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsJobsCmd, statsApplicationsCmd)
}
