package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openmanage-kit/omevvctl/internal/repository"
)

var (
	repoName           string
	repoDescription    string
	repoCatalogPath    string
	repoProtocolType   string
	repoShareUsername  string
	repoSharePassword  string
	repoShareDomain    string
	repoTestConnection bool
	repoCheck          bool
	repoDiff           bool
)

var repositoryCmd = &cobra.Command{
	Use:   "repository",
	Short: "Manage firmware repository profiles",
}

var repositoryApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create or update a firmware repository profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepository(cmd, repository.StatePresent)
	},
}

var repositoryDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a firmware repository profile (no-op when absent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepository(cmd, repository.StateAbsent)
	},
}

var repositoryTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify share access on the controller without changing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		outcome := repository.NewReconciler(client).TestShareAccess(ctx, repository.Request{
			CatalogPath:   repoCatalogPath,
			ProtocolType:  repoProtocolType,
			ShareUsername: repoShareUsername,
			SharePassword: repoSharePassword,
			ShareDomain:   repoShareDomain,
		})
		renderOutcome(outcome, outcome.Failed, outcome.Unreachable, false)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{repositoryApplyCmd, repositoryDeleteCmd} {
		flags := cmd.Flags()
		flags.StringVar(&repoName, "name", "", "repository profile name")
		flags.BoolVar(&repoCheck, "check", false, "report what would change without mutating the controller")
		flags.BoolVar(&repoDiff, "diff", false, "include a before/after diff in the outcome")
		_ = cmd.MarkFlagRequired("name")
	}

	for _, cmd := range []*cobra.Command{repositoryApplyCmd, repositoryTestCmd} {
		flags := cmd.Flags()
		flags.StringVar(&repoCatalogPath, "catalog-path", "", "share path or URL of the firmware catalog")
		flags.StringVar(&repoProtocolType, "protocol-type", "", "share protocol: NFS, CIFS, HTTP or HTTPS")
		flags.StringVar(&repoShareUsername, "share-username", "", "username for the catalog share")
		flags.StringVar(&repoSharePassword, "share-password", "", "password for the catalog share")
		flags.StringVar(&repoShareDomain, "share-domain", "", "domain for the catalog share")
	}

	flags := repositoryApplyCmd.Flags()
	flags.StringVar(&repoDescription, "description", "", "profile description")
	flags.BoolVar(&repoTestConnection, "test-connection", false, "verify share access on the controller before mutating")

	repositoryCmd.AddCommand(repositoryApplyCmd)
	repositoryCmd.AddCommand(repositoryDeleteCmd)
	repositoryCmd.AddCommand(repositoryTestCmd)
}

func runRepository(cmd *cobra.Command, state repository.State) error {
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

	outcome := repository.NewReconciler(client).Reconcile(ctx, repository.Request{
		State:          state,
		Name:           repoName,
		Description:    repoDescription,
		CatalogPath:    repoCatalogPath,
		ProtocolType:   repoProtocolType,
		ShareUsername:  repoShareUsername,
		SharePassword:  repoSharePassword,
		ShareDomain:    repoShareDomain,
		TestConnection: repoTestConnection,
		CheckMode:      repoCheck,
		DiffMode:       repoDiff,
	})

	renderOutcome(outcome, outcome.Failed, outcome.Unreachable, false)
	return nil
}
