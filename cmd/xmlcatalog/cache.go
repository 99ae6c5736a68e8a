package main

import (
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacoelho/xmlcatalog"
)

func (a *app) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the resource cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List live cache entries, oldest first",
		Args:  exactArgs(0),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, _ []string) error {
			entries, err := r.CacheEntries()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			if err := writeln(w, "TIME\tKIND\tSIZE\tSOURCE\tLOCAL"); err != nil {
				return err
			}
			for _, e := range entries {
				if err := writef(w, "%s\t%s\t%d\t%s\t%s\n",
					e.Time.UTC().Format(time.RFC3339), e.Kind, e.Size, e.Source, e.LocalURI); err != nil {
					return err
				}
			}
			return w.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Delete expired descriptors and unreferenced data files",
		Args:  exactArgs(0),
		RunE: a.withResolver(func(cmd *cobra.Command, r *xmlcatalog.Resolver, _ []string) error {
			report, err := r.CleanCache(cmd.Context())
			if err != nil {
				return err
			}
			return writef(a.stdout, "removed %d expired descriptors, %d broken entries, %d orphaned files\n",
				report.ExpiredDescriptors, report.BrokenEntries, report.OrphanedData)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "flush [PATTERN]",
		Short: "Expire entries whose source matches a regular expression (default all)",
		Args:  usage(cobra.MaximumNArgs(1)),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			pattern := ".*"
			if len(args) == 1 {
				pattern = args[0]
			}
			n, err := r.FlushCache(pattern)
			if err != nil {
				return err
			}
			return writef(a.stdout, "expired %d entries\n", n)
		}),
	})

	return cmd
}
