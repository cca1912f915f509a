package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/starter/internal/config"
	"github.com/vango-dev/starter/internal/errors"
	"github.com/vango-dev/starter/internal/starter"
	"github.com/vango-dev/starter/pkg/auth"
	"github.com/vango-dev/starter/pkg/navigation"
	"github.com/vango-dev/starter/pkg/router"
)

func resolveCmd(c *cli) *cobra.Command {
	var (
		format        string
		authenticated bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Run a navigation without serving it",
		Long: `Run one navigation through the route table, the auth guard and the
head sync, and print where it lands.

Examples:
  starter resolve /backend/dashboard
  starter resolve '#/auth/signin' --authenticated
  starter resolve /nope -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			res, err := dryRun(cmd.Context(), cfg, args[0], authenticated)
			if err != nil {
				return err
			}
			if err := writeResult(cmd, format, res); err != nil {
				return err
			}
			if !res.Committed() {
				return errors.New("E122").WithDetail(fmt.Sprintf("outcome %s", res.Outcome))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().BoolVarP(&authenticated, "authenticated", "a", false, "Navigate as a signed-in user")

	return cmd
}

// dryRun navigates a fresh history to path with a fixed auth state.
func dryRun(ctx context.Context, cfg *config.Config, path string, authenticated bool) (navigation.Result, error) {
	r, err := starter.NewRouter(cfg.History())
	if err != nil {
		return navigation.Result{}, errors.New("E120").Wrap(err)
	}
	ctrl, err := navigation.New(r,
		navigation.WithLogger(cfg.NewLogger(io.Discard)),
		navigation.WithMaxRedirects(cfg.Router.MaxRedirects),
		navigation.WithAuthGuard(auth.Static(authenticated), cfg.Guard),
		navigation.WithHeadSync(cfg.App.Name),
	)
	if err != nil {
		if stderrors.Is(err, navigation.ErrUnknownRoute) {
			return navigation.Result{}, errors.New("E121").Wrap(err)
		}
		return navigation.Result{}, errors.New("E120").Wrap(err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctrl.NewHistory().Navigate(ctx, router.Path(path)), nil
}

// resolveOutput is the printed form of a navigation result.
type resolveOutput struct {
	Outcome   navigation.Outcome `json:"outcome" yaml:"outcome"`
	Path      string             `json:"path,omitempty" yaml:"path,omitempty"`
	Name      string             `json:"name,omitempty" yaml:"name,omitempty"`
	Href      string             `json:"href,omitempty" yaml:"href,omitempty"`
	Title     string             `json:"title" yaml:"title"`
	Views     []string           `json:"views,omitempty" yaml:"views,omitempty"`
	Redirects []string           `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	Meta      []router.MetaTag   `json:"meta,omitempty" yaml:"meta,omitempty"`
	Error     string             `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeResult(cmd *cobra.Command, format string, res navigation.Result) error {
	out := resolveOutput{
		Outcome:   res.Outcome,
		Path:      res.Path,
		Name:      res.Name,
		Href:      res.Href,
		Title:     res.Title,
		Views:     res.Views,
		Redirects: res.Redirects,
		Meta:      res.Meta,
		Error:     res.Error,
	}
	return writeOutput(cmd.OutOrStdout(), format, out, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Outcome:\t%s\n", res.Outcome)
		fmt.Fprintf(tw, "Path:\t%s\n", dash(res.Path))
		fmt.Fprintf(tw, "Name:\t%s\n", dash(res.Name))
		fmt.Fprintf(tw, "Href:\t%s\n", dash(res.Href))
		fmt.Fprintf(tw, "Title:\t%s\n", res.Title)
		fmt.Fprintf(tw, "Views:\t%s\n", dash(strings.Join(res.Views, " > ")))
		if len(res.Redirects) > 0 {
			fmt.Fprintf(tw, "Redirected from:\t%s\n", strings.Join(res.Redirects, ", "))
		}
		if res.Error != "" {
			fmt.Fprintf(tw, "Error:\t%s\n", res.Error)
		}
	})
}
