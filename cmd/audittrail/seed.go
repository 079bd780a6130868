package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/audit-trail/app"
	"github.com/upb/audit-trail/config"
	"github.com/upb/audit-trail/internal/fixtures"
	"github.com/upb/audit-trail/services"
	"github.com/upb/audit-trail/services/user"
	"go.uber.org/zap"
)

var seedFile string

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "Path to a fixtures YAML file (default: built-in samples)")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample users and audit entries",
	Long:  "Writes fixture users and audit entries through the configured backend.\nRecords that already exist are left untouched.",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}
	// Seeding writes its audit entries explicitly
	cfg.Recorder.Enabled = false

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}

	set, err := fixtures.Load(seedFile)
	if err != nil {
		return err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	users, audits, err := seed(ctx, deps, set)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d audit entries into the %s backend\n",
		users, audits, deps.Backend())
	return nil
}

// seed registers the fixture users and appends the fixture audit entries.
// Returns how many of each were written.
func seed(ctx context.Context, deps *app.Dependencies, set *fixtures.Set) (int, int, error) {
	users := 0
	for _, u := range set.Users {
		_, err := deps.Users.Register(ctx, user.RegisterRequest{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			Role:         u.Role,
			Organization: u.Organization,
			Permissions:  u.Permissions,
		})
		if services.IsConflictError(err) {
			deps.Logger.Debug("seed user already present", zap.String("user_id", u.ID))
			continue
		}
		if err != nil {
			return users, 0, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		users++
	}

	audits, err := deps.Audits.Seed(ctx, set.Entries())
	if err != nil {
		return users, audits, fmt.Errorf("seed audit entries: %w", err)
	}

	deps.Logger.Info("seed complete", zap.Int("users", users), zap.Int("audits", audits))
	return users, audits, nil
}
