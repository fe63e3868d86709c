package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spec-kit/provisioning-assistant/internal/api/dto"
	"github.com/spec-kit/provisioning-assistant/internal/app"
	"github.com/spec-kit/provisioning-assistant/internal/catalog"
	"github.com/spec-kit/provisioning-assistant/internal/persistence"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			cfg.Postgres.RunMigrations = true
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			store, err := persistence.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.Store.Driver)
			return nil
		},
	}
}

func newSeedCatalogCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-catalog <file>",
		Short: "Upsert catalog products from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := catalog.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			c, logger, err := openContainer(cmd.Context(), v, app.Options{})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer c.Close()
			n, err := seed.Apply(cmd.Context(), c.CatalogRepo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}

func newAddApproverCmd(v *viper.Viper) *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "add-approver",
		Short: "Register an approver account for card submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, logger, err := openContainer(cmd.Context(), v, app.Options{})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer c.Close()
			approver, err := c.AuthService.RegisterApprover(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "approver %s registered\n", approver.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "approver email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRequestCmd(v *viper.Viper) *cobra.Command {
	var requester string
	cmd := &cobra.Command{
		Use:   "request <prompt>",
		Short: "Submit a prompt and raise tickets for the software it names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := openContainer(cmd.Context(), v, progressOptions(cmd))
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer c.Close()
			res, err := c.Workflow.Run(cmd.Context(), requester, strings.Join(args, " "))
			if err != nil {
				if len(res.Items) > 0 {
					_ = render(cmd.OutOrStdout(), v, res)
				}
				return err
			}
			return render(cmd.OutOrStdout(), v, res)
		},
	}
	cmd.Flags().StringVar(&requester, "requester", "cli", "requester recorded on tickets")
	return cmd
}

func newCheckCmd(v *viper.Viper) *cobra.Command {
	var requester string
	cmd := &cobra.Command{
		Use:   "check <ticket-id>...",
		Short: "Reconcile tickets, installing approved ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := openContainer(cmd.Context(), v, progressOptions(cmd))
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer c.Close()
			res, err := c.Workflow.CheckTickets(cmd.Context(), requester, args)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), v, res)
		},
	}
	cmd.Flags().StringVar(&requester, "requester", "cli", "requester recorded on the check")
	return cmd
}

func newDecisionCmd(v *viper.Viper, action string) *cobra.Command {
	var approver string
	cmd := &cobra.Command{
		Use:   action + " <token>",
		Short: fmt.Sprintf("Resolve an approval token with %s", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := openContainer(cmd.Context(), v, app.Options{})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer c.Close()
			outcome, err := c.ApprovalService.HandleCallback(cmd.Context(), action, args[0], approver)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), v, dto.NewDecisionResponse(outcome.TicketID, outcome.Decision, outcome.Approver, outcome.Ticket))
		},
	}
	cmd.Flags().StringVar(&approver, "approver", "", "approver identity, defaults to the configured approver")
	return cmd
}

func newTicketCmd(v *viper.Viper) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "ticket <id>",
		Short: "Show a ticket and its approval status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := openContainer(cmd.Context(), v, app.Options{})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer c.Close()
			view, err := c.TicketService.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := struct {
				dto.TicketResponse
				History []dto.ActionLogResponse `json:"history,omitempty"`
			}{TicketResponse: dto.NewTicketResponse(view.Ticket, view.Approval, view.Record)}
			if history {
				entries, err := c.TicketService.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out.History = dto.NewActionLogResponses(entries)
			}
			return render(cmd.OutOrStdout(), v, out)
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "include the audit trail")
	return cmd
}

func progressOptions(cmd *cobra.Command) app.Options {
	w := cmd.ErrOrStderr()
	return app.Options{Progress: func(ticketID, step string, index, total int) {
		fmt.Fprintf(w, "[%s] %d/%d %s\n", ticketID, index, total, step)
	}}
}
