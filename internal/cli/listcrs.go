package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pebbe/proj/v9/projdb"
)

// The database named by flag or config, else the first proj.db in the
// search path, else in PROJ_DATA
func (a *app) projDB(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.ProjDB != "" {
		return a.cfg.ProjDB, nil
	}
	if sp := a.cfg.SearchPath(); sp != "" {
		return projdb.Locate(sp)
	}
	return projdb.Locate(os.Getenv("PROJ_DATA"))
}

func listCRSCmd(a *app) *cobra.Command {
	var (
		dbPath      string
		authorities []string
		types       string
		area        string
	)

	c := &cobra.Command{
		Use:   "list-crs",
		Short: "List the CRS in proj.db",
		Long: "List the CRS in proj.db. --type takes a comma separated list of\n" +
			"geodetic, geocentric, geographic, geographic_2d, geographic_3d,\n" +
			"vertical, projected, compound and allow_deprecated.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := projdb.ParseFilter(types)
			if err != nil {
				return err
			}
			filter.Authorities = authorities
			filter.AreaName = area

			path, err := a.projDB(dbPath)
			if err != nil {
				return err
			}
			db, err := projdb.Open(path, projdb.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := db.ListCRS(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, crs := range list {
				fmt.Fprintln(cmd.OutOrStdout(), crs)
			}
			return nil
		},
	}

	c.Flags().StringVar(&dbPath, "db", "", "Path of proj.db")
	c.Flags().StringSliceVar(&authorities, "authority", nil, "Only CRS of this authority (repeatable)")
	c.Flags().StringVar(&types, "type", "", "Only CRS of these types")
	c.Flags().StringVar(&area, "area", "", "Only CRS whose area of use contains this text")
	return c
}
