package cmd

import (
	"fmt"
	"io"

	"hirelane/internal/store"
	"hirelane/pkg/api"

	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply [job_id]",
	Short: "Apply to a job",
	Long: `Submit an application to an active job.

Example:
  hirectl apply 6f1c... --cover-letter "Eight years of site experience"
  hirectl apply 6f1c... --salary 750 --period daily --flexible`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		flags := cmd.Flags()
		coverLetter, _ := flags.GetString("cover-letter")
		amount, _ := flags.GetFloat64("salary")
		period, _ := flags.GetString("period")
		flexible, _ := flags.GetBool("flexible")

		req := api.ApplyRequest{
			CoverLetter:  coverLetter,
			Availability: store.Availability{Flexible: flexible},
		}
		if amount > 0 {
			req.ProposedSalary = &store.ProposedCompensation{Amount: amount, Period: store.SalaryPeriod(period)}
		}

		app, err := newClient().Apply(args[0], req)
		if err != nil {
			return err
		}
		return render(cmd, app, func(w io.Writer) {
			fmt.Fprintf(w, "%s✓ Application submitted%s\n", colorGreen, colorReset)
			printApplication(w, app)
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw [application_id]",
	Short: "Withdraw one of your applications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		app, err := newClient().Withdraw(args[0])
		if err != nil {
			return err
		}
		return render(cmd, app, func(w io.Writer) {
			fmt.Fprintf(w, "Application %s withdrawn\n", app.ID)
		})
	},
}

func printApplication(w io.Writer, app *store.Application) {
	fmt.Fprintf(w, "%sApplication ID:%s\t%s\n", colorDim, colorReset, app.ID)
	fmt.Fprintf(w, "%sJob ID:%s\t%s\n", colorDim, colorReset, app.JobID)
	if app.Job != nil {
		fmt.Fprintf(w, "%sJob:%s\t%s\n", colorDim, colorReset, app.Job.Title)
	}
	if app.Applicant != nil {
		fmt.Fprintf(w, "%sApplicant:%s\t%s\n", colorDim, colorReset, app.Applicant.Name)
	}
	fmt.Fprintf(w, "%sStatus:%s\t%s\n", colorDim, colorReset, colorizeStatus(app.Status))
	if app.ProposedCompensation != nil {
		fmt.Fprintf(w, "%sProposed:%s\t%.0f/%s\n", colorDim, colorReset,
			app.ProposedCompensation.Amount, app.ProposedCompensation.Period)
	}
	if app.Interview != nil {
		at := app.Interview.ScheduledAt
		fmt.Fprintf(w, "%sInterview:%s\t%s (%s)\n", colorDim, colorReset, formatTimeWithRelative(&at), app.Interview.Medium)
		if app.Interview.Location != "" {
			fmt.Fprintf(w, "%sWhere:%s\t%s\n", colorDim, colorReset, app.Interview.Location)
		}
	}
	fmt.Fprintf(w, "%sApplied:%s\t%s\n", colorDim, colorReset, formatTimeWithRelative(&app.AppliedAt))
}

func init() {
	rootCmd.AddCommand(applyCmd, withdrawCmd)

	applyCmd.Flags().String("cover-letter", "", "Cover letter (up to 1000 characters)")
	applyCmd.Flags().Float64("salary", 0, "Proposed pay amount")
	applyCmd.Flags().String("period", string(store.PeriodDaily), "Period of the proposed pay")
	applyCmd.Flags().Bool("flexible", false, "Mark your start date as flexible")
}
