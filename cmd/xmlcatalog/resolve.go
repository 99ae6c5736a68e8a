package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jacoelho/xmlcatalog"
)

type resolveFlags struct {
	base    string
	nature  string
	purpose string
	public  string
	system  string
	body    bool
}

func (a *app) resolveCmd() *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an identifier and open the resource, populating the cache",
	}
	cmd.PersistentFlags().BoolVar(&f.body, "body", false, "copy the resource content to stdout instead of printing its URI")

	system := &cobra.Command{
		Use:   "system SYSTEM-ID",
		Short: "Resolve an external identifier",
		Args:  exactArgs(1),
		RunE: a.withResolver(func(cmd *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			res, err := r.ResolveSystem(cmd.Context(), args[0], f.public)
			return a.printResource(args[0], res, err, f.body)
		}),
	}
	system.Flags().StringVar(&f.public, "public", "", "public identifier")

	uri := &cobra.Command{
		Use:   "uri HREF",
		Short: "Resolve a URI reference",
		Args:  exactArgs(1),
		RunE: a.withResolver(func(cmd *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			res, err := r.ResolveURI(cmd.Context(), args[0], f.base)
			return a.printResource(args[0], res, err, f.body)
		}),
	}
	uri.Flags().StringVar(&f.base, "base", "", "base URI for relative references")

	namespace := &cobra.Command{
		Use:   "namespace URI",
		Short: "Resolve a namespace URI to a related resource",
		Args:  exactArgs(1),
		RunE: a.withResolver(func(cmd *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			res, err := r.ResolveNamespace(cmd.Context(), args[0], f.nature, f.purpose)
			return a.printResource(args[0], res, err, f.body)
		}),
	}
	namespace.Flags().StringVar(&f.nature, "nature", "", "RDDL nature URI")
	namespace.Flags().StringVar(&f.purpose, "purpose", "", "RDDL purpose URI")

	entity := &cobra.Command{
		Use:   "entity [NAME]",
		Short: "Resolve an external entity",
		Args:  usage(cobra.MaximumNArgs(1)),
		RunE: a.withResolver(func(cmd *cobra.Command, r *xmlcatalog.Resolver, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			res, err := r.ResolveEntity(cmd.Context(), name, f.public, f.system, f.base)
			return a.printResource(firstNonEmpty(name, f.system, f.public, "entity"), res, err, f.body)
		}),
	}
	entity.Flags().StringVar(&f.public, "public", "", "public identifier")
	entity.Flags().StringVar(&f.system, "system", "", "system identifier")
	entity.Flags().StringVar(&f.base, "base", "", "base URI for a relative system identifier")

	cmd.AddCommand(system, uri, namespace, entity)
	return cmd
}

func (a *app) printResource(id string, res *xmlcatalog.Resource, err error, body bool) (retErr error) {
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("%s: %w", id, errNotFound)
	}
	defer func() {
		if closeErr := res.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("close %s: %w", res.URI, closeErr)
		}
	}()
	if body {
		if _, err := io.Copy(a.stdout, res.Body); err != nil {
			return fmt.Errorf("read %s: %w", res.URI, err)
		}
		return nil
	}
	return writeln(a.stdout, res.URI)
}
