package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pebbe/proj/v9"
)

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print version and search path of the PROJ library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.open(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer m.Close()

			info, err := proj.Info(m)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Release: %s\n", info.Release)
			fmt.Fprintf(w, "Version: %s\n", info.Version)
			fmt.Fprintf(w, "Search path: %s\n", info.Searchpath)

			if bd, ok := m.(proj.BuildDater); ok {
				date, err := bd.CompilationDate()
				switch {
				case errors.Is(err, errors.ErrUnsupported):
				case err != nil:
					return err
				default:
					fmt.Fprintf(w, "Compiled: %s\n", date)
				}
			}
			return nil
		},
	}
}

func parseFloats(args []string) ([]float64, error) {
	values := make([]float64, len(args))
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", s)
		}
		values[i] = f
	}
	return values, nil
}

func transCmd(a *app) *cobra.Command {
	var (
		inverse bool
		epoch   float64
	)

	c := &cobra.Command{
		Use:   "trans SRC DST x y [z]",
		Short: "Transform one coordinate from SRC to DST",
		Long: "Transform one coordinate from SRC to DST. Coordinates are in the\n" +
			"axis order and units of the CRS, e.g. latitude first for EPSG:4326.",
		Args: cobra.RangeArgs(4, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFloats(args[2:])
			if err != nil {
				return err
			}
			in := proj.Point(values[0], values[1], 0)
			if len(values) == 3 {
				in.W = values[2]
			}
			if cmd.Flags().Changed("epoch") {
				in.T = epoch
			}

			return a.withContext(cmd, func(ctx *proj.Context) error {
				pj, err := ctx.CreateCRSToCRS(args[0], args[1])
				if err != nil {
					return err
				}
				defer pj.Close()

				direction := proj.Fwd
				if inverse {
					direction = proj.Inv
				}
				out, err := pj.Trans(direction, in)
				if err != nil {
					return err
				}
				if len(values) == 3 {
					fmt.Fprintf(cmd.OutOrStdout(), "%.4f %.4f %.4f\n", out.U, out.V, out.W)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%.4f %.4f\n", out.U, out.V)
				}
				return nil
			})
		},
	}

	c.Flags().BoolVar(&inverse, "inverse", false, "Transform from DST to SRC")
	c.Flags().Float64Var(&epoch, "epoch", 0, "Coordinate epoch in decimal years (default none)")
	return c
}

func axesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "axes CRS",
		Short: "List the axes of the coordinate system of a CRS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContext(cmd, func(ctx *proj.Context) error {
				axes, err := ctx.Axes(args[0])
				if err != nil {
					return err
				}
				for i, ax := range axes {
					fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (%s) %s, %s, factor %.17g\n",
						i+1, ax.Name, ax.Abbrev, ax.Direction, ax.UnitName, ax.ConvFactor)
				}
				return nil
			})
		},
	}
}
