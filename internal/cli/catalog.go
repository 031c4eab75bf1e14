package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aliagaaaaaa/horarios-api/internal/repository"
)

func newCoursesCommand() *cobra.Command {
	var semester int
	cmd := &cobra.Command{
		Use:     "courses",
		Short:   "List the bundled course catalog",
		Aliases: []string{"catalog"},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := repository.NewStaticCatalog()
			if err != nil {
				return err
			}
			courses, err := catalog.ListCourses(cmd.Context(), semester)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tSEMESTER\tNAME")
			for _, c := range courses {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", c.ID, c.Code, c.Semester, c.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&semester, "semester", 0, "only courses of this semester")
	return cmd
}
