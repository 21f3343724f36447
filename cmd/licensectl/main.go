// cmd/licensectl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/javajoker/licensegate/internal/config"
	"github.com/javajoker/licensegate/internal/database"
	"github.com/javajoker/licensegate/internal/logging"
	"github.com/javajoker/licensegate/internal/models"
	"github.com/javajoker/licensegate/internal/router"
	"github.com/javajoker/licensegate/internal/services"
	"github.com/javajoker/licensegate/internal/utils"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "licensectl",
		Short:         "Operator tool for licensegate users, licenses and sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newUserCommand())
	cmd.AddCommand(newLicenseCommand())
	cmd.AddCommand(newSessionCommand())
	cmd.AddCommand(newAdminCommand())
	cmd.AddCommand(newDeviceIDCommand())
	return cmd
}

// env is the opened configuration, database and services for one command.
type env struct {
	cfg *config.Config
	db  *gorm.DB
	svc *router.Services
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logging.Setup(cfg.Log)

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db, svc: router.NewServices(db, cfg)}, nil
}

func (e *env) close() {
	database.Close(e.db)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCommand() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the configured tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.RunMigrations(e.db, e.cfg.Database.Tables); err != nil {
				return err
			}
			if seed {
				return database.SeedInitialData(e.db, e.cfg.Database.Tables)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Create a demo user and license when the users table is empty")
	return cmd
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newUserCreateCommand())
	return cmd
}

func newUserCreateCommand() *cobra.Command {
	var req services.CreateUserRequest
	var mentorID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			req.MentorID = models.NormalizeMentorID(mentorID)
			user, err := e.svc.Users.CreateUser(commandContext(cmd), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}

	cmd.Flags().StringVar(&mentorID, "mentor-id", "", "Mentor id the user signed up under")
	cmd.Flags().StringVar(&req.Email, "email", "", "User email")
	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&req.RobotName, "robot-name", "", "Robot name shown on the dashboard")
	_ = cmd.MarkFlagRequired("mentor-id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLicenseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "License issue, lookup and revocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newLicenseIssueCommand())
	cmd.AddCommand(newLicenseCheckCommand())
	cmd.AddCommand(newLicenseInfoCommand())
	cmd.AddCommand(newLicenseDeactivateCommand())
	return cmd
}

func newLicenseIssueCommand() *cobra.Command {
	var (
		req     services.IssueLicenseRequest
		plan    string
		ownerID string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create a new unbound license",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Plan = models.LicensePlan(plan)
			if ownerID != "" {
				id, err := uuid.Parse(ownerID)
				if err != nil {
					return fmt.Errorf("owner id: %w", err)
				}
				req.OwnerID = &id
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			license, err := e.svc.Licenses.IssueLicense(commandContext(cmd), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), license)
		},
	}

	cmd.Flags().StringVar(&req.Key, "key", "", "Explicit key (generated when empty)")
	cmd.Flags().StringVar(&req.KeyPrefix, "prefix", "", "Prefix for generated keys")
	cmd.Flags().StringVar(&plan, "plan", string(models.LicensePlanStandard), "Plan: standard or lifetime")
	cmd.Flags().IntVar(&req.ValidDays, "days", 30, "Days until expiry (ignored for lifetime plans)")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owning user id")
	cmd.Flags().StringVar(&req.RobotName, "robot-name", "", "Robot name override")
	cmd.Flags().StringVar(&req.EAName, "ea-name", "", "EA name override")
	return cmd
}

func newLicenseCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <key>",
		Short: "Show the activation state of a license",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			view, err := e.svc.Licenses.CheckLicense(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newLicenseInfoCommand() *cobra.Command {
	var req services.LicenseInfoRequest

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show expiry details for a license, by key or owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			view, err := e.svc.Licenses.LicenseInfo(commandContext(cmd), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().StringVar(&req.LicenseKey, "key", "", "License key")
	cmd.Flags().StringVar(&req.UserID, "user", "", "Owning user id")
	return cmd
}

func newLicenseDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <key>",
		Short: "Permanently revoke a license and close its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.svc.Licenses.Deactivate(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s\n", utils.MaskKey(args[0]))
			return nil
		},
	}
}

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session registrar operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <user-id> <device-id>",
		Short: "Report whether a session is active",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			valid := e.svc.Sessions.IsValid(commandContext(cmd), args[0], args[1])
			return printJSON(cmd.OutOrStdout(), map[string]bool{"valid": valid})
		},
	})
	return cmd
}

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin API helpers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print the bcrypt hash to use as ADMIN_API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	})
	return cmd
}

func newDeviceIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "device-id",
		Short: "Generate a fresh device id for a client installation",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), utils.NewDeviceID())
			return nil
		},
	}
}
