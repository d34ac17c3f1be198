package cmd

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"hirelane/internal/jobs"
	"hirelane/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse and inspect job postings",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active jobs, or your own postings with --mine",
	Long: `List job postings, newest first.

With --mine the command lists the calling employer's own postings in every
status, together with the live number of applications each one has.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := pageQuery(cmd.Flags())
		client := newClient()

		if mine, _ := cmd.Flags().GetBool("mine"); mine {
			if err := requireToken(); err != nil {
				return err
			}
			if status, _ := cmd.Flags().GetString("status"); status != "" {
				query.Set("status", status)
			}
			list, page, err := client.EmployerJobs(query)
			if err != nil {
				return err
			}
			return render(cmd, list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "You have not posted any jobs.")
					return
				}
				fmt.Fprintln(w, "JOB ID\tTITLE\tSTATUS\tAPPLICATIONS\tVIEWS")
				for _, j := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", j.ID, j.Title, j.Status, j.ApplicationCount, j.Views)
				}
				printPage(w, page)
			})
		}

		return searchJobs(cmd, query)
	},
}

var jobsSearchCmd = &cobra.Command{
	Use:   "search [keywords]",
	Short: "Search active jobs",
	Long: `Search jobs by keywords and filters.

Example:
  hirectl jobs search "pipe fitting" --city pune --salary-min 600
  hirectl jobs search --category electrical --skills wiring,conduit --sort salary_desc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := pageQuery(cmd.Flags())
		if len(args) > 0 {
			query.Set("q", strings.Join(args, " "))
		}
		flags := cmd.Flags()
		for _, name := range []string{"category", "city", "state", "type", "experience", "sort", "status"} {
			if v, _ := flags.GetString(name); v != "" {
				query.Set(name, v)
			}
		}
		if skills, _ := flags.GetStringSlice("skills"); len(skills) > 0 {
			query.Set("skills", strings.Join(skills, ","))
		}
		for flag, param := range map[string]string{"salary-min": "salary_min", "salary-max": "salary_max"} {
			if v, _ := flags.GetFloat64(flag); v > 0 {
				query.Set(param, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		return searchJobs(cmd, query)
	},
}

func searchJobs(cmd *cobra.Command, query url.Values) error {
	list, page, err := newClient().SearchJobs(query)
	if err != nil {
		return err
	}
	return render(cmd, list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No jobs found.")
			return
		}
		fmt.Fprintln(w, "JOB ID\tTITLE\tCATEGORY\tCITY\tSALARY\tAPPLICANTS")
		for _, j := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				j.ID, j.Title, j.Category, j.Location.City, formatSalary(j.Compensation), capacity(j))
		}
		printPage(w, page)
	})
}

var jobsGetCmd = &cobra.Command{
	Use:   "get [job_id]",
	Short: "Show a job posting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := newClient().GetJob(args[0])
		if err != nil {
			return err
		}
		return render(cmd, job, func(w io.Writer) { printJob(w, job) })
	},
}

func printJob(w io.Writer, job *jobs.Detail) {
	fmt.Fprintf(w, "%s%s%s\n", colorBold, job.Title, colorReset)
	fmt.Fprintln(w, "──────────────────────────────")
	fmt.Fprintf(w, "%sID:%s\t%s\n", colorDim, colorReset, job.ID)
	fmt.Fprintf(w, "%sStatus:%s\t%s\n", colorDim, colorReset, job.Status)
	fmt.Fprintf(w, "%sCategory:%s\t%s (%s)\n", colorDim, colorReset, job.Category, job.Type)
	fmt.Fprintf(w, "%sLocation:%s\t%s, %s\n", colorDim, colorReset, job.Location.City, job.Location.State)
	fmt.Fprintf(w, "%sSalary:%s\t%s\n", colorDim, colorReset, formatSalary(job.Compensation))
	if len(job.Requirements.Skills) > 0 {
		fmt.Fprintf(w, "%sSkills:%s\t%s\n", colorDim, colorReset, strings.Join(job.Requirements.Skills, ", "))
	}
	fmt.Fprintf(w, "%sExperience:%s\t%s\n", colorDim, colorReset, job.Requirements.Experience)
	fmt.Fprintf(w, "%sApplicants:%s\t%s\n", colorDim, colorReset, capacity(job.Job))
	fmt.Fprintf(w, "%sDeadline:%s\t%s\n", colorDim, colorReset, formatTimeWithRelative(job.ApplicationDeadline))
	if job.HasApplied {
		fmt.Fprintf(w, "%sApplied:%s\t%syes%s\n", colorDim, colorReset, colorGreen, colorReset)
	}
	fmt.Fprintf(w, "\n%s\n", job.Description)
}

func capacity(j store.Job) string {
	if j.MaxApplications == nil {
		return strconv.Itoa(j.CurrentApplications)
	}
	return fmt.Sprintf("%d/%d", j.CurrentApplications, *j.MaxApplications)
}

func pageQuery(flags *pflag.FlagSet) url.Values {
	query := url.Values{}
	if page, _ := flags.GetInt("page"); page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit, _ := flags.GetInt("limit"); limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return query
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().IntP("limit", "l", 0, "Items per page (server default when 0)")
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsSearchCmd, jobsGetCmd)

	addPageFlags(jobsListCmd)
	jobsListCmd.Flags().Bool("mine", false, "List your own postings (employers)")
	jobsListCmd.Flags().String("status", "", "With --mine, only postings in this status")

	addPageFlags(jobsSearchCmd)
	jobsSearchCmd.Flags().String("category", "", "Trade category, e.g. plumbing")
	jobsSearchCmd.Flags().String("city", "", "City (partial match)")
	jobsSearchCmd.Flags().String("state", "", "State (partial match)")
	jobsSearchCmd.Flags().String("type", "", "Job type, e.g. full-time")
	jobsSearchCmd.Flags().String("experience", "", "Required experience tier")
	jobsSearchCmd.Flags().String("status", "", "Job status (default active)")
	jobsSearchCmd.Flags().String("sort", "", "date, date_asc, salary_asc or salary_desc")
	jobsSearchCmd.Flags().StringSlice("skills", nil, "Comma-separated skills; any match qualifies")
	jobsSearchCmd.Flags().Float64("salary-min", 0, "Minimum salary")
	jobsSearchCmd.Flags().Float64("salary-max", 0, "Maximum salary")
}
