package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
	auditstore "github.com/zerlake/thesisai/internal/app/store/audit"
	notificationstore "github.com/zerlake/thesisai/internal/app/store/notifications"
	profilestore "github.com/zerlake/thesisai/internal/app/store/profiles"
	ratelimitstore "github.com/zerlake/thesisai/internal/app/store/ratelimit"
	"github.com/zerlake/thesisai/internal/app/system/indexes"
	"github.com/zerlake/thesisai/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create every collection's indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			if err := indexes.EnsureAll(ctx, db, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
			return nil
		})
	},
}

/*─────────────────────────────────────────────────────────────────────────────*
| promote                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type promoteOptions struct {
	Email string
	Role  string
	Plan  string
	Slots int // -1 leaves the mentor slots alone
}

var promoteOpts = promoteOptions{Slots: -1}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Change a user's role, plan or mentor slots",
	Example: `  thesisadmin promote --email ana@uni.edu --role advisor --slots 5
  thesisadmin promote --email ops@uni.edu --role admin`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			after, err := promote(ctx, db, promoteOpts)
			if err != nil {
				return err
			}
			logger.Info("profile updated",
				zap.String("email", after.Email),
				zap.String("role", after.Role),
				zap.String("plan", after.Plan))
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s on plan %s\n", after.Email, after.Role, after.Plan)
			return nil
		})
	},
}

func init() {
	f := promoteCmd.Flags()
	f.StringVar(&promoteOpts.Email, "email", "", "Account email (required)")
	f.StringVar(&promoteOpts.Role, "role", "", "New role: student, advisor, critic or admin (required)")
	f.StringVar(&promoteOpts.Plan, "plan", "", "New plan: free, pro, premium or institutional")
	f.IntVar(&promoteOpts.Slots, "slots", -1, "Mentor slots for the new role (advisor or critic)")
	_ = promoteCmd.MarkFlagRequired("email")
	_ = promoteCmd.MarkFlagRequired("role")
}

// promote applies opts and records a user_role_changed event in the
// financial trail, the same as the admin endpoint does.
func promote(ctx context.Context, db *mongo.Database, opts promoteOptions) (*models.Profile, error) {
	profiles := profilestore.New(db)
	p, err := profiles.GetByEmail(ctx, opts.Email)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", opts.Email, err)
	}

	upd := profilestore.RoleUpdate{Role: &opts.Role}
	if opts.Plan != "" {
		upd.Plan = &opts.Plan
	}
	if opts.Slots >= 0 {
		switch strings.ToLower(opts.Role) {
		case models.RoleAdvisor:
			upd.AdvisorSlots = &opts.Slots
		case models.RoleCritic:
			upd.CriticSlots = &opts.Slots
		default:
			return nil, errors.New("--slots applies to advisor and critic roles only")
		}
	}

	before, after, err := profiles.UpdateRole(ctx, p.ID, upd)
	if err != nil {
		return nil, err
	}
	err = auditstore.New(db).Log(ctx, auditstore.Event{
		Action:       auditstore.ActionUserRoleChanged,
		Severity:     auditstore.SeverityWarning,
		UserID:       &after.ID,
		ResourceType: "profile",
		ResourceID:   after.ID.Hex(),
		Success:      true,
		Details: map[string]string{
			"old_role": before.Role,
			"new_role": after.Role,
			"old_plan": before.Plan,
			"new_plan": after.Plan,
			"via":      "thesisadmin",
		},
	})
	if err != nil {
		return after, fmt.Errorf("profile updated but audit write failed: %w", err)
	}
	return after, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| purge                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	purgeNotifications bool
	purgeAuditOlder    time.Duration
)

var purgeCmd = &cobra.Command{
	Use:     "purge",
	Short:   "Delete expired notifications and old general audit events",
	Example: `  thesisadmin purge --notifications --audit-older-than 168h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !purgeNotifications && purgeAuditOlder <= 0 {
			return errors.New("nothing to purge: pass --notifications and/or --audit-older-than")
		}
		return withDB(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			res, err := purge(ctx, db, purgeNotifications, purgeAuditOlder, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notifications removed: %d\naudit events removed: %d\n", res.notifications, res.audit)
			return nil
		})
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeNotifications, "notifications", false, "Delete expired notifications")
	purgeCmd.Flags().DurationVar(&purgeAuditOlder, "audit-older-than", 0, "Delete general audit events older than this (the financial trail is kept)")
}

type purgeResult struct {
	notifications int64
	audit         int64
}

func purge(ctx context.Context, db *mongo.Database, notifications bool, auditOlder time.Duration, now time.Time) (purgeResult, error) {
	var res purgeResult
	var err error
	if notifications {
		if res.notifications, err = notificationstore.New(db, notificationstore.DefaultTTL).PurgeExpired(ctx); err != nil {
			return res, fmt.Errorf("purge notifications: %w", err)
		}
	}
	if auditOlder > 0 {
		if res.audit, err = auditstore.New(db).PurgeBefore(ctx, now.UTC().Add(-auditOlder)); err != nil {
			return res, fmt.Errorf("purge audit: %w", err)
		}
	}
	return res, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| whitelist                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

type whitelistOptions struct {
	User       string
	IP         string
	Feature    string
	Multiplier float64
	Unlimited  bool
	Expires    time.Duration
	Reason     string
}

var wlOpts whitelistOptions

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage rate-limit whitelist rules",
}

var whitelistAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Relax limits for a user or IP",
	Example: `  thesisadmin whitelist add --ip 203.0.113.7 --unlimited --expires 72h
  thesisadmin whitelist add --user 665f... --feature ai_completions --multiplier 3`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rule, err := wlOpts.rule(time.Now())
		if err != nil {
			return err
		}
		return withDB(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			saved, err := ratelimitstore.New(db).AddRule(ctx, rule)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rule %s added for %s %s\n", saved.ID.Hex(), saved.Scope, saved.Value)
			return nil
		})
	},
}

func init() {
	f := whitelistAddCmd.Flags()
	f.StringVar(&wlOpts.User, "user", "", "User id to whitelist")
	f.StringVar(&wlOpts.IP, "ip", "", "IP address to whitelist")
	f.StringVar(&wlOpts.Feature, "feature", "", "Limit the rule to one feature (default: all)")
	f.Float64Var(&wlOpts.Multiplier, "multiplier", 0, "Quota multiplier")
	f.BoolVar(&wlOpts.Unlimited, "unlimited", false, "Skip limits entirely")
	f.DurationVar(&wlOpts.Expires, "expires", 0, "Rule lifetime (default: never expires)")
	f.StringVar(&wlOpts.Reason, "reason", "", "Why the rule exists")
	whitelistAddCmd.MarkFlagsMutuallyExclusive("user", "ip")
	whitelistAddCmd.MarkFlagsOneRequired("user", "ip")
	whitelistAddCmd.MarkFlagsMutuallyExclusive("multiplier", "unlimited")
	whitelistAddCmd.MarkFlagsOneRequired("multiplier", "unlimited")
}

// rule validates the flags and builds the stored rule.
func (o whitelistOptions) rule(now time.Time) (models.WhitelistRule, error) {
	r := models.WhitelistRule{
		Feature:         strings.TrimSpace(o.Feature),
		QuotaMultiplier: o.Multiplier,
		Unlimited:       o.Unlimited,
		Reason:          strings.TrimSpace(o.Reason),
	}
	switch {
	case o.User != "" && o.IP != "":
		return r, errors.New("use either --user or --ip")
	case o.User != "":
		if _, err := primitive.ObjectIDFromHex(o.User); err != nil {
			return r, fmt.Errorf("--user %q is not a valid id", o.User)
		}
		r.Scope, r.Value = models.WhitelistUser, o.User
	case o.IP != "":
		if net.ParseIP(o.IP) == nil {
			return r, fmt.Errorf("--ip %q is not an IP address", o.IP)
		}
		r.Scope, r.Value = models.WhitelistIP, o.IP
	default:
		return r, errors.New("one of --user or --ip is required")
	}
	if !o.Unlimited && o.Multiplier <= 0 {
		return r, errors.New("--multiplier must be positive unless --unlimited is set")
	}
	if o.Expires < 0 {
		return r, errors.New("--expires must not be negative")
	}
	if o.Expires > 0 {
		at := now.UTC().Add(o.Expires)
		r.ExpiresAt = &at
	}
	return r, nil
}
