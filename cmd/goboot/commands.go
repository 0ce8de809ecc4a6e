package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/go-boot/framework/config"
	"github.com/km-arc/go-boot/framework/container"
	"github.com/km-arc/go-boot/framework/logging"
	"github.com/km-arc/go-boot/framework/manifest"
)

const cmdName = "goboot"

const (
	manifestFlag = "manifest"
	scopeFlag    = "scope"
	verboseFlag  = "verbose"
)

type options struct {
	manifest string
	scope    string
	verbose  bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          cmdName,
		Short:        "Inspect the dependency graph of a service manifest",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.manifest, manifestFlag, "m",
		config.Get("CONTAINER_MANIFEST", ""), "path to the service manifest")
	rootCmd.PersistentFlags().StringVar(&opts.scope, scopeFlag,
		config.Get("CONTAINER_DEFAULT_SCOPE", "singleton"), "scope of entries that declare none")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, verboseFlag, "v", false, "log registry warnings to stderr")

	rootCmd.AddCommand(
		orderCommand(opts),
		graphCommand(opts),
		checkCommand(opts),
	)
	return rootCmd
}

// registry loads the manifest into a fresh registry.
func (o *options) registry(stderr io.Writer) (*container.Registry, error) {
	if o.manifest == "" {
		return nil, errors.New("no manifest: pass --manifest or set CONTAINER_MANIFEST")
	}
	lifetime, err := container.ParseLifetime(o.scope)
	if err != nil {
		return nil, err
	}
	m, err := manifest.LoadFile(o.manifest, lifetime)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = logging.NewTo(config.LogConfig{Level: "debug", Format: "console"}, stderr); err != nil {
			return nil, err
		}
	}

	r := container.NewRegistry(logger)
	for _, d := range m.Descriptors() {
		r.Register(d)
	}
	return r, nil
}

// ── order ─────────────────────────────────────────────────────────────────────

func orderCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print the initialization order, one service per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.registry(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			order, err := r.InitializationOrder()
			if err != nil {
				return err
			}
			for _, name := range order {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// ── graph ─────────────────────────────────────────────────────────────────────

func graphCommand(opts *options) *cobra.Command {
	var dot bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print every service with its dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.registry(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dot {
				writeDot(out, r)
				return nil
			}
			for _, name := range r.Names() {
				deps := r.Dependencies(name)
				labels := make([]string, 0, len(deps))
				for _, dep := range deps {
					if !r.Has(dep) {
						dep += " (missing)"
					}
					labels = append(labels, dep)
				}
				desc, _ := r.Descriptor(name)
				fmt.Fprintf(out, "%s [%s] -> %s\n", name, desc.Lifetime, strings.Join(labels, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "emit Graphviz DOT")
	return cmd
}

func writeDot(w io.Writer, r *container.Registry) {
	fmt.Fprintln(w, "digraph services {")
	for _, name := range r.Names() {
		fmt.Fprintf(w, "  %q;\n", name)
	}
	for _, name := range r.Names() {
		for _, dep := range r.Dependencies(name) {
			if r.Has(dep) {
				fmt.Fprintf(w, "  %q -> %q;\n", name, dep)
			} else {
				fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", name, dep)
			}
		}
	}
	fmt.Fprintln(w, "}")
}

// ── check ─────────────────────────────────────────────────────────────────────

func checkCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report cycles and missing required dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.registry(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := r.Validate(); err != nil {
				errs := multierr.Errors(err)
				for _, e := range errs {
					fmt.Fprintln(out, "error:", e)
				}
				return fmt.Errorf("%d problem(s) found", len(errs))
			}
			for _, w := range r.Warnings() {
				fmt.Fprintln(out, "warning:", w)
			}
			fmt.Fprintf(out, "ok: %d services\n", len(r.Names()))
			return nil
		},
	}
}
