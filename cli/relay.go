package cli

import (
	"fmt"
	"ident_index_app_go/services/jobs"
	"ident_index_app_go/services/notify"

	"github.com/spf13/cobra"
)

// NewRelayCommand creates the relay command.
func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	var publisher string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Deliver one batch of pending outbox messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rootOpts.store()
			if err != nil {
				return err
			}
			cfg := rootOpts.config()
			if publisher == "" {
				publisher = cfg.Publisher
			}
			pub, err := notify.GetPublisher(publisher, notify.Options{
				Brokers:  cfg.KafkaBrokers,
				ClientID: cfg.ServiceName + "-cli",
				Logger:   rootOpts.logger(),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "create publisher", err)
			}
			defer pub.Close()

			relay := jobs.NewOutboxRelay(conn, pub, cfg, nil, rootOpts.logger())
			stats, err := relay.DrainOnce(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "drain outbox", err)
			}
			return rootOpts.formatter(cmd).Success(
				fmt.Sprintf("sent=%d retry=%d dead=%d", stats.Sent, stats.Retry, stats.Dead),
				stats,
			)
		},
	}

	cmd.Flags().StringVar(&publisher, "publisher", "", "publisher override (kafka|log)")
	return cmd
}
