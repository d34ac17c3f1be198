package cmd

import (
	"fmt"
	"io"
	"time"

	"hirelane/internal/store"
	"hirelane/pkg/api"

	"github.com/spf13/cobra"
)

var applicationsCmd = &cobra.Command{
	Use:     "applications",
	Aliases: []string{"apps"},
	Short:   "Track applications",
}

var applicationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your applications, or a job's applicants with --job",
	Long: `Without --job, list the applications you have submitted.

With --job, list the applications received by one of your postings. Listing a
job's applicants marks them as viewed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		query := pageQuery(cmd.Flags())
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			query.Set("status", status)
		}

		client := newClient()
		jobID, _ := cmd.Flags().GetString("job")

		var (
			list []store.Application
			page *store.Page
			err  error
		)
		if jobID != "" {
			list, page, err = client.JobApplications(jobID, query)
		} else {
			list, page, err = client.MyApplications(query)
		}
		if err != nil {
			return err
		}

		return render(cmd, list, func(w io.Writer) {
			if len(list) == 0 {
				fmt.Fprintln(w, "No applications found.")
				return
			}
			if jobID != "" {
				fmt.Fprintln(w, "APPLICATION ID\tAPPLICANT\tSTATUS\tNEW\tAPPLIED")
				for _, a := range list {
					name := "-"
					if a.Applicant != nil {
						name = a.Applicant.Name
					}
					isNew := ""
					if !a.ViewedByEmployer {
						isNew = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, name, colorizeStatus(a.Status), isNew, relativeTime(a.AppliedAt))
				}
			} else {
				fmt.Fprintln(w, "APPLICATION ID\tJOB\tSTATUS\tAPPLIED")
				for _, a := range list {
					title := a.JobID.String()
					if a.Job != nil {
						title = a.Job.Title
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, title, colorizeStatus(a.Status), relativeTime(a.AppliedAt))
				}
			}
			printPage(w, page)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Manage application status",
}

var statusSetCmd = &cobra.Command{
	Use:   "set [application_id] [status]",
	Short: "Move an application to a new status",
	Long: `Move an application received by one of your postings.

Valid statuses: pending, shortlisted, interview-scheduled, accepted, rejected.
Use "hirectl interview" to schedule an interview with a time and place.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		note, _ := cmd.Flags().GetString("note")
		app, err := newClient().SetStatus(args[0], api.StatusRequest{
			Status: store.ApplicationStatus(args[1]),
			Note:   note,
		})
		if err != nil {
			return err
		}
		return render(cmd, app, func(w io.Writer) {
			fmt.Fprintf(w, "Application %s is now %s\n", app.ID, colorizeStatus(app.Status))
		})
	},
}

var interviewCmd = &cobra.Command{
	Use:   "interview [application_id]",
	Short: "Schedule an interview for an application",
	Long: `Schedule an interview and move the application to interview-scheduled.

Example:
  hirectl interview 9b2e... --at 2026-11-02T10:00:00+05:30 --location "Site office, Baner"
  hirectl interview 9b2e... --at 2026-11-02T10:00:00+05:30 --medium phone`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		flags := cmd.Flags()
		at, _ := flags.GetString("at")
		scheduledAt, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid --at %q: expected RFC3339, e.g. 2026-11-02T10:00:00+05:30", at)
		}
		location, _ := flags.GetString("location")
		medium, _ := flags.GetString("medium")
		notes, _ := flags.GetString("notes")

		app, err := newClient().ScheduleInterview(args[0], api.InterviewRequest{
			ScheduledAt: scheduledAt,
			Location:    location,
			Medium:      store.InterviewMedium(medium),
			Notes:       notes,
		})
		if err != nil {
			return err
		}
		return render(cmd, app, func(w io.Writer) {
			fmt.Fprintf(w, "%s✓ Interview scheduled%s\n", colorGreen, colorReset)
			printApplication(w, app)
		})
	},
}

func init() {
	rootCmd.AddCommand(applicationsCmd, statusCmd, interviewCmd)
	applicationsCmd.AddCommand(applicationsListCmd)
	statusCmd.AddCommand(statusSetCmd)

	addPageFlags(applicationsListCmd)
	applicationsListCmd.Flags().String("job", "", "List the applicants of this job (employers)")
	applicationsListCmd.Flags().String("status", "", "Only applications in this status")

	statusSetCmd.Flags().String("note", "", "Note recorded in the status history")

	interviewCmd.Flags().String("at", "", "Interview time in RFC3339")
	interviewCmd.Flags().String("location", "", "Where the interview takes place (required in person)")
	interviewCmd.Flags().String("medium", "", "in-person, phone or video (default in-person)")
	interviewCmd.Flags().String("notes", "", "Notes for the applicant")
	interviewCmd.MarkFlagRequired("at")
}
