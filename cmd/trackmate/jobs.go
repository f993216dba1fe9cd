package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
	"github.com/nhle/trackmate/internal/theme"
)

func newJobsCmd(opts *rootOptions) *cobra.Command {
	var userRef string

	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Manage tracked job applications",
	}
	cmd.PersistentFlags().StringVarP(&userRef, "user", "u", "", "User email or ID")

	cmd.AddCommand(newJobsListCmd(opts, &userRef))
	cmd.AddCommand(newJobsAddCmd(opts, &userRef))
	cmd.AddCommand(newJobsUpdateCmd(opts, &userRef))
	cmd.AddCommand(newJobsDeleteCmd(opts, &userRef))

	return cmd
}

func newJobsListCmd(opts *rootOptions, userRef *string) *cobra.Command {
	var (
		status string
		query  string
		sortBy string
		desc   bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.JobFilter{Query: query, SortBy: sortBy, SortDesc: desc, Limit: limit}
			if status != "" {
				s, err := model.ParseJobStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &s
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(cmd.Context(), a.Store, *userRef)
			if err != nil {
				return err
			}

			jobs, err := a.Store.GetJobs(cmd.Context(), user.ID, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, theme.HelpStyle.Render("No job applications yet."))
				return nil
			}
			fmt.Fprintln(out, theme.JobsTable(jobs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Only applications with this status")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search company, position, location and notes")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort column (company_name, status, application_date, ...)")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum number of applications")

	return cmd
}

func newJobsAddCmd(opts *rootOptions, userRef *string) *cobra.Command {
	var (
		req                model.CreateJobRequest
		status             string
		salary, loc, notes string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new job application",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Status = model.JobStatus(status)
			req.SalaryRange = optional(cmd, "salary", salary)
			req.Location = optional(cmd, "location", loc)
			req.Notes = optional(cmd, "notes", notes)
			if err := req.Validate(); err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(cmd.Context(), a.Store, *userRef)
			if err != nil {
				return err
			}

			job, err := a.Store.CreateJob(cmd.Context(), model.JobApplication{
				UserID:          user.ID,
				CompanyName:     req.CompanyName,
				PositionTitle:   req.PositionTitle,
				Status:          req.Status,
				ApplicationDate: req.ApplicationDate,
				SalaryRange:     req.SalaryRange,
				Location:        req.Location,
				Notes:           req.Notes,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Added "+job.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.CompanyName, "company", "c", "", "Company name")
	cmd.Flags().StringVarP(&req.PositionTitle, "position", "p", "", "Position title")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Status (defaults to applied)")
	cmd.Flags().StringVar(&req.ApplicationDate, "date", "", "Application date YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&salary, "salary", "", "Salary range")
	cmd.Flags().StringVar(&loc, "location", "", "Location")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("position")

	return cmd
}

func newJobsUpdateCmd(opts *rootOptions, userRef *string) *cobra.Command {
	var company, position, status, salary, loc, notes string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a job application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := model.UpdateJobRequest{
				CompanyName:   optional(cmd, "company", company),
				PositionTitle: optional(cmd, "position", position),
				SalaryRange:   optional(cmd, "salary", salary),
				Location:      optional(cmd, "location", loc),
				Notes:         optional(cmd, "notes", notes),
			}
			if cmd.Flags().Changed("status") {
				s, err := model.ParseJobStatus(status)
				if err != nil {
					return err
				}
				update.Status = &s
			}
			if err := update.Validate(); err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(cmd.Context(), a.Store, *userRef)
			if err != nil {
				return err
			}

			job, err := a.Store.UpdateJob(cmd.Context(), user.ID, args[0], update)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.JobsTable([]model.JobApplication{*job}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&company, "company", "c", "", "Company name")
	cmd.Flags().StringVarP(&position, "position", "p", "", "Position title")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Status")
	cmd.Flags().StringVar(&salary, "salary", "", "Salary range")
	cmd.Flags().StringVar(&loc, "location", "", "Location")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")

	return cmd
}

func newJobsDeleteCmd(opts *rootOptions, userRef *string) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a job application",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := resolveUser(cmd.Context(), a.Store, *userRef)
			if err != nil {
				return err
			}

			if err := a.Store.DeleteJob(cmd.Context(), user.ID, args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Deleted "+args[0]))
			return nil
		},
	}
}

// optional returns a pointer to value when the named flag was given.
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
