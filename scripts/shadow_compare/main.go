package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	"github.com/noah-isme/learning-analytics-api/internal/service"
)

type options struct {
	goBase      string
	legacyBase  string
	targetsPath string
	timeout     time.Duration
	secret      string
	role        string
	cohort      string
	legacyToken string
	ignore      []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "shadow_compare",
		Short:         "Replay analytics routes against the legacy API and this API and report differences",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flags.StringVar(&opts.legacyBase, "legacy-base", "http://localhost:3000", "Legacy API base URL")
	flags.StringVar(&opts.targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flags.StringVar(&opts.secret, "jwt-secret", os.Getenv("JWT_SECRET"), "Secret used to sign a bearer token for the Go API; empty sends no token")
	flags.StringVar(&opts.role, "role", string(models.RoleMasterAdmin), "Admin role carried by the signed token")
	flags.StringVar(&opts.cohort, "cohort", "", "Cohort claim for Cohort Admin tokens")
	flags.StringVar(&opts.legacyToken, "legacy-token", os.Getenv("LEGACY_TOKEN"), "Bearer token for the legacy API; defaults to the signed token")
	flags.StringSliceVar(&opts.ignore, "ignore", []string{"generatedAt"}, "JSON keys excluded from body comparison")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	targets, err := loadTargets(opts.targetsPath)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}

	goToken := ""
	if strings.TrimSpace(opts.secret) != "" {
		auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: opts.secret, AccessTokenExpiry: time.Hour})
		goToken, _, err = auth.IssueToken("shadow-compare", models.AdminRole(opts.role), opts.cohort)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
	}
	legacyToken := opts.legacyToken
	if legacyToken == "" {
		legacyToken = goToken
	}

	cmp := comparer{
		client:      &http.Client{Timeout: opts.timeout},
		goBase:      opts.goBase,
		legacyBase:  opts.legacyBase,
		goToken:     goToken,
		legacyToken: legacyToken,
		ignore:      toSet(opts.ignore),
	}

	results := cmp.compareAll(cmd.Context(), targets)
	summary := summarize(results)
	printReport(cmd.OutOrStdout(), results)
	fmt.Fprintf(cmd.OutOrStdout(), "Breaking diffs: %d, Optional diffs: %d\n", summary.breaking, summary.optional)
	if summary.breaking > 0 {
		return fmt.Errorf("%d breaking diffs", summary.breaking)
	}
	return nil
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
