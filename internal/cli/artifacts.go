package cli

import (
	"context"
	"fmt"

	"showcase-tracker/internal/domain"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type slotEntry struct {
	Artifact domain.Artifact `json:"artifact"`
	Owners   []int           `json:"owners"`
}

func newArtifactsCmd(extra []fx.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Print a player's artifact catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, _ := cmd.Flags().GetString("uid")
			name, _ := cmd.Flags().GetString("slot")
			slot := domain.Slot(name)
			if slot != "" && !slot.Valid() {
				return fmt.Errorf("unknown slot %q, want one of %v", slot, domain.Slots)
			}

			return withApp(cmd, extra, func(ctx context.Context, d deps) error {
				cat, err := d.ingest.Catalogue(uid)
				if err != nil {
					return report(cmd, d, uid, err)
				}
				if slot == "" {
					return printJSON(cmd.OutOrStdout(), cat)
				}
				entries := make([]slotEntry, 0, len(cat.Data[slot]))
				for i, piece := range cat.Data[slot] {
					entries = append(entries, slotEntry{Artifact: piece, Owners: cat.Tag[slot][i]})
				}
				return printJSON(cmd.OutOrStdout(), entries)
			})
		},
	}

	cmd.Flags().StringP("uid", "u", "", "Player uid (required)")
	cmd.Flags().StringP("slot", "s", "", "Only this slot: flower, plume, sands, goblet or circlet")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
