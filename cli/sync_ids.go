package cli

import (
	"fmt"
	"ident_index_app_go/services"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSyncIDsCommand creates the sync-ids command.
func NewSyncIDsCommand(rootOpts *RootOptions) *cobra.Command {
	var file, user string

	cmd := &cobra.Command{
		Use:   "sync-ids",
		Short: "Synchronize a subject's appended identifiers from a YAML file",
		Long: `Synchronize a subject's appended identifiers from a YAML file.

Each listed stream replaces the stored values; omitted streams are untouched.

Example file:
  system_id: 1001
  cautions: [A, C]
  dobs: ["01/02/1980"]
  scars_marks:
    - {code: TAT L ARM, description: ROSE}
  ssns: ["123-45-6789"]
  misc_numbers:
    - {prefix: AF, number: "12345"}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return NewExitError(ExitCommandError, "--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return WrapExitError(ExitCommandError, "read request file", err)
			}
			var req services.AppendedIDRequest
			if err := yaml.Unmarshal(data, &req); err != nil {
				return WrapExitError(ExitCommandError, "parse request file", err)
			}
			req.UserName = user
			req.ClientIP = "cli"

			conn, err := rootOpts.store()
			if err != nil {
				return err
			}
			cfg := rootOpts.config()
			svc := services.NewRecordServices(services.ServiceOptions{
				DB:               conn,
				Logger:           rootOpts.logger(),
				IIINotifications: cfg.IIINotificationsEnabled,
			})

			out := rootOpts.formatter(cmd)
			result, err := svc.AppendedIDs.Sync(cmd.Context(), req)
			if err != nil {
				return reportRecordError(out, "sync-ids", err)
			}
			return out.Success(syncSummary(result), result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML request file")
	cmd.Flags().StringVar(&user, "user", os.Getenv("USER"), "acting user")
	return cmd
}

func syncSummary(r *services.SyncResult) string {
	streams := make([]string, 0, len(r.Changes))
	for s := range r.Changes {
		streams = append(streams, s)
	}
	sort.Strings(streams)

	lines := []string{fmt.Sprintf("Synchronized %s", r.SID)}
	for _, s := range streams {
		c := r.Changes[s]
		lines = append(lines, fmt.Sprintf("  %-12s +%d -%d", s, c.Added, c.Deleted))
	}
	for _, m := range r.IIIMessages {
		lines = append(lines, "  III "+m)
	}
	return strings.Join(lines, "\n")
}
