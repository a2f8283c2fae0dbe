package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pebbe/proj/v9/selftest"
)

func runCmd(a *app) *cobra.Command {
	var cases []string

	c := &cobra.Command{
		Use:   "run",
		Short: "Run the regression cases against the PROJ backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("case") {
				a.cfg.Cases = cases
			}
			selected, err := selftest.Select(selftest.Cases(), a.cfg.Cases)
			if err != nil {
				return err
			}

			m, err := a.open(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer m.Close()

			r := selftest.Runner{
				Env:   a.env(m),
				Cases: selected,
				Out:   cmd.OutOrStdout(),
			}
			report, err := r.Run(cmd.Context())
			if err != nil && report.Failed != "" {
				// The runner reported it already
				cmd.SilenceErrors = true
				return &exitError{code: 1}
			}
			if err != nil {
				return err
			}
			a.log.Info("all tests passed",
				zap.Int("count", report.Run),
				zap.Duration("elapsed", report.Duration))
			return nil
		},
	}

	c.Flags().StringSliceVar(&cases, "case", nil, "Run only this case (repeatable)")
	return c
}
