package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pebbe/proj/v9"
	"github.com/pebbe/proj/v9/projinfo"
)

func projinfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projinfo -- ARGS...",
		Short: "Run projinfo in the PROJ backend",
		Long: "Run projinfo in the PROJ backend. Everything after -- is passed on,\n" +
			"e.g. projcheck projinfo -- EPSG:4326 EPSG:32633 -o proj --single-line",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rc int
			err := a.withContext(cmd, func(ctx *proj.Context) error {
				stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
				rc = projinfo.Run(ctx, args, func(level projinfo.Level, msg string) {
					if level == projinfo.LevelInfo {
						fmt.Fprintln(stdout, msg)
					} else {
						fmt.Fprintln(stderr, msg)
					}
				})
				return nil
			})
			if err != nil {
				return err
			}
			if rc != 0 {
				cmd.SilenceErrors = true
				return &exitError{code: rc}
			}
			return nil
		},
	}
}
