package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/manifest"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/resolver"
	"github.com/matzehuels/buckaroo/pkg/source"
	"github.com/matzehuels/buckaroo/pkg/tasks"
)

type resolveOpts struct {
	manifest string
	output   string
	json     bool
	refresh  bool
	verify   bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := resolveOpts{}

	cmd := &cobra.Command{
		Use:   "resolve [dependency...]",
		Short: "Resolve dependencies to a consistent set of versions",
		Long: `Resolve finds the highest version of every package in the dependency
closure that satisfies all requirements placed on it.

Without arguments the dependencies of the manifest in the current
directory (buckaroo.json or buckaroo.toml) are resolved.`,
		Example: `  buckaroo resolve github+fmtlib/fmt@^10.0 org/json
  buckaroo resolve --manifest path/to/buckaroo.toml --json -o lock.json
  buckaroo resolve --verify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd.Context(), cmd.ErrOrStderr(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "manifest file (default: buckaroo.json or buckaroo.toml in the working directory)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the resolution as JSON to this file")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the resolution as JSON")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached recipes and release listings")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "download resolved archives and check their SHA-256")

	return cmd
}

func (c *CLI) runResolve(ctx context.Context, stderr io.Writer, args []string, opts resolveOpts) error {
	logger := loggerFromContext(ctx)
	deps, err := c.rootDependencies(ctx, args, opts.manifest)
	if err != nil {
		return err
	}

	e, err := c.newEnv(ctx, opts.refresh)
	if err != nil {
		return err
	}
	defer e.Close()

	run := uuid.NewString()
	logger = logger.With("run", run[:8])
	logger.Debug("resolving", "dependencies", len(deps), "workers", e.pool.Size())
	prog := newProgress(logger)

	res, err := c.watch(ctx, logger, resolver.Resolve(e.source, deps, e.resolveOptions()))
	if err != nil {
		explain(stderr, err, e.finder)
		return err
	}
	prog.done("Resolved " + pluralize(len(res), "package"))

	if opts.verify {
		if err := c.verify(ctx, logger, e, res); err != nil {
			return err
		}
	}
	return c.writeResolution(res, opts)
}

// rootDependencies parses dependency arguments or, when there are none,
// reads the manifest. Identifiers without a source tag refer to the
// cookbook.
func (c *CLI) rootDependencies(ctx context.Context, args []string, file string) ([]recipe.Dependency, error) {
	if len(args) > 0 {
		deps := make([]recipe.Dependency, 0, len(args))
		for _, arg := range args {
			d, err := recipe.ParseDependency(arg)
			if err != nil {
				return nil, err
			}
			dep := d.Complete(source.CookbookTag)
			if err := checkHosted(dep.Identifier); err != nil {
				return nil, err
			}
			deps = append(deps, dep)
		}
		return deps, nil
	}

	var read process.Process[manifest.Manifest]
	if file != "" {
		read = tasks.ReadManifestFile(c.fs, file, source.CookbookTag)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "get working directory")
		}
		read = tasks.ReadManifest(c.fs, wd, source.CookbookTag)
	}
	m, err := read.Run(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(m.Dependencies) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "manifest declares no dependencies")
	}
	return m.Dependencies, nil
}

// watch runs p, logging its events and animating a spinner on an
// interactive terminal below debug verbosity.
func (c *CLI) watch(ctx context.Context, logger *log.Logger, p process.Process[recipe.ResolvedDependencies]) (recipe.ResolvedDependencies, error) {
	events := newEventLogger(logger)
	var spin *spinner
	if logger.GetLevel() > log.DebugLevel && isTerminal(os.Stderr) {
		spin = newSpinner(os.Stderr, "Resolving...")
		spin.Start()
		defer spin.Stop()
	}

	task := process.Start(ctx, p)
	for ev := range task.Events() {
		if spin != nil {
			events.count(ev)
			spin.SetMessage(events.status())
			continue
		}
		events.log(ev)
	}
	<-task.Done()
	return task.Result()
}

// verify downloads every archive in res through the artifact store and
// checks its digest. Git commits are skipped.
func (c *CLI) verify(ctx context.Context, logger *log.Logger, e *env, res recipe.ResolvedDependencies) error {
	var checks []process.Process[string]
	for _, id := range res.Order() {
		archive, ok := res[id].RecipeVersion.Source.Archive()
		if !ok {
			continue
		}
		download := tasks.CachedDownload(e.store, tasks.LimitDownloads(e.pool, e.downloader), archive.URL, cache.KindZip)
		check := process.Chain(download, func(path string) process.Process[string] {
			return process.Limit(e.pool, tasks.Verify(e.store.Fs(), path, archive.SHA256))
		})
		checks = append(checks, check)
	}
	if len(checks) == 0 {
		return nil
	}

	prog := newProgress(logger)
	events := newEventLogger(logger)
	if _, err := process.All(checks).Run(ctx, events.log); err != nil {
		return err
	}
	prog.done("Verified " + pluralize(len(checks), "archive"))
	return nil
}

// writeResolution prints the result and writes it to the output file.
func (c *CLI) writeResolution(res recipe.ResolvedDependencies, opts resolveOpts) error {
	if opts.output != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		if dir := filepath.Dir(opts.output); dir != "." {
			if err := c.fs.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "create %s", dir)
			}
		}
		if err := afero.WriteFile(c.fs, opts.output, append(data, '\n'), 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write %s", opts.output)
		}
	}

	if opts.json {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResolved(c.Out, res)
	if opts.output != "" {
		printFile(c.Out, opts.output)
	}
	return nil
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
