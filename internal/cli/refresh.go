package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newRefreshCmd(extra []fx.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch a player's snapshot from the configured upstream and ingest it",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, _ := cmd.Flags().GetString("uid")
			force, _ := cmd.Flags().GetBool("force")

			return withApp(cmd, extra, func(ctx context.Context, d deps) error {
				summary, err := d.refresh.Refresh(ctx, uid, force)
				if err != nil {
					return report(cmd, d, uid, err)
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringP("uid", "u", "", "Player uid (required)")
	cmd.Flags().Bool("force", false, "Ignore the refresh TTL")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
