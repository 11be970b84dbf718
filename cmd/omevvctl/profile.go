package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmanage-kit/omevvctl/internal/baseline"
)

var (
	profileName        string
	profileDescription string
	profileRepository  string
	profileClusters    []string
	profileDays        []string
	profileTime        string
	profileCheck       bool
	profileDiff        bool
	profileNoJobWait   bool
	profileJobTimeout  time.Duration
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage firmware baseline profiles",
}

var profileApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create or update a baseline profile to match the desired state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfile(cmd, baseline.StatePresent)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a baseline profile (no-op when absent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfile(cmd, baseline.StateAbsent)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{profileApplyCmd, profileDeleteCmd} {
		flags := cmd.Flags()
		flags.StringVar(&profileName, "name", "", "baseline profile name")
		flags.BoolVar(&profileCheck, "check", false, "report what would change without mutating the controller")
		flags.BoolVar(&profileDiff, "diff", false, "include a before/after diff in the outcome")
		_ = cmd.MarkFlagRequired("name")
	}

	flags := profileApplyCmd.Flags()
	flags.StringVar(&profileDescription, "description", "", "profile description")
	flags.StringVar(&profileRepository, "repository-profile", "", "firmware repository profile name")
	flags.StringSliceVar(&profileClusters, "cluster", nil, "cluster name (repeatable)")
	flags.StringSliceVar(&profileDays, "days", nil, "schedule days: monday..sunday or all (repeatable)")
	flags.StringVar(&profileTime, "time", "", "schedule time of day, 24h HH:MM")
	flags.BoolVar(&profileNoJobWait, "no-job-wait", false, "do not wait for the drift job to reach a terminal status")
	flags.DurationVar(&profileJobTimeout, "job-wait-timeout", 1200*time.Second, "ceiling for drift job polling")

	profileCmd.AddCommand(profileApplyCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}

func runProfile(cmd *cobra.Command, state baseline.State) error {
	if profileTime != "" {
		if err := validate.Var(profileTime, "datetime=15:04"); err != nil {
			return fmt.Errorf("invalid --time %q: expected 24h HH:MM", profileTime)
		}
	}
	if err := loadConfig(cmd); err != nil {
		return err
	}
	client, err := buildClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := profileJobTimeout
	if !cmd.Flags().Changed("job-wait-timeout") && cfg.JobWaitTimeout > 0 {
		timeout = cfg.JobWaitTimeout
	}

	reconciler := baseline.NewReconciler(client, cfg.PollInterval)
	outcome := reconciler.Reconcile(ctx, baseline.Request{
		State:             state,
		Name:              profileName,
		Description:       profileDescription,
		RepositoryProfile: profileRepository,
		Clusters:          profileClusters,
		Days:              profileDays,
		Time:              profileTime,
		CheckMode:         profileCheck,
		DiffMode:          profileDiff,
		JobWait:           !profileNoJobWait,
		JobWaitTimeout:    timeout,
	})

	renderOutcome(outcome, outcome.Failed, outcome.Unreachable, outcome.Skipped)
	return nil
}
