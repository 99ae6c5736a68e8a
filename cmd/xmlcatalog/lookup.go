package main

import (
	"github.com/spf13/cobra"

	"github.com/jacoelho/xmlcatalog"
)

func (a *app) lookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up an identifier in the catalogs without fetching anything",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "system SYSTEM-ID",
		Short: "Look up a system identifier",
		Args:  exactArgs(1),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			resolved, ok := r.LookupSystem(args[0])
			return a.printMatch(args[0], resolved, ok)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "public PUBLIC-ID [SYSTEM-ID]",
		Short: "Look up a public identifier, trying the system identifier first",
		Args:  usage(cobra.RangeArgs(1, 2)),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			var systemID string
			if len(args) == 2 {
				systemID = args[1]
			}
			resolved, ok := r.LookupPublic(systemID, args[0])
			return a.printMatch(args[0], resolved, ok)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "uri URI",
		Short: "Look up a URI reference",
		Args:  exactArgs(1),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			resolved, ok := r.LookupURI(args[0])
			return a.printMatch(args[0], resolved, ok)
		}),
	})

	var nature, purpose string
	namespace := &cobra.Command{
		Use:   "namespace URI",
		Short: "Look up a namespace URI qualified by RDDL nature and purpose",
		Args:  exactArgs(1),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			resolved, ok := r.LookupNamespaceURI(args[0], nature, purpose)
			return a.printMatch(args[0], resolved, ok)
		}),
	}
	namespace.Flags().StringVar(&nature, "nature", "", "RDDL nature URI")
	namespace.Flags().StringVar(&purpose, "purpose", "", "RDDL purpose URI")
	cmd.AddCommand(namespace)

	cmd.AddCommand(
		a.declarationCmd("doctype", "Look up a document type declaration", (*xmlcatalog.Resolver).LookupDoctype),
		a.declarationCmd("entity", "Look up an external entity", (*xmlcatalog.Resolver).LookupEntity),
		a.declarationCmd("notation", "Look up a notation declaration", (*xmlcatalog.Resolver).LookupNotation),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "document",
		Short: "Look up the default document",
		Args:  exactArgs(0),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, _ []string) error {
			resolved, ok := r.LookupDocument()
			return a.printMatch("document", resolved, ok)
		}),
	})

	return cmd
}

type declarationLookup func(r *xmlcatalog.Resolver, name, systemID, publicID string) (string, bool)

func (a *app) declarationCmd(use, short string, lookup declarationLookup) *cobra.Command {
	var systemID, publicID string
	cmd := &cobra.Command{
		Use:   use + " [NAME]",
		Short: short,
		Args:  usage(cobra.MaximumNArgs(1)),
		RunE: a.withResolver(func(_ *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			resolved, ok := lookup(r, name, systemID, publicID)
			return a.printMatch(firstNonEmpty(name, systemID, publicID, use), resolved, ok)
		}),
	}
	cmd.Flags().StringVar(&systemID, "system", "", "system identifier")
	cmd.Flags().StringVar(&publicID, "public", "", "public identifier")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
