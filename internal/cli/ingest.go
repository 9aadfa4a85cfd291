package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"showcase-tracker/internal/constants"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newIngestCmd(extra []fx.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a snapshot document from a file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, _ := cmd.Flags().GetString("uid")
			file, _ := cmd.Flags().GetString("file")

			raw, err := readSnapshot(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return withApp(cmd, extra, func(ctx context.Context, d deps) error {
				summary, err := d.ingest.Ingest(ctx, uid, raw)
				if err != nil {
					return report(cmd, d, uid, err)
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringP("uid", "u", "", "Player uid (required)")
	cmd.Flags().StringP("file", "f", "-", "Snapshot file, - for stdin")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func readSnapshot(stdin io.Reader, file string) ([]byte, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(io.LimitReader(r, constants.MaxSnapshotBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > constants.MaxSnapshotBytes {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", constants.MaxSnapshotBytes)
	}
	return raw, nil
}
