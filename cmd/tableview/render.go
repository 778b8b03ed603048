package main

import (
	"errors"
	"fmt"

	"github.com/bingLAN/table_view/view"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	renderUser     string
	renderPassword string
)

var renderCmd = &cobra.Command{
	Use:   "render [resource...]",
	Short: "Fetch resources from the api and print their html tables",
	Long: `Fetch each resource from the configured api and print the inner html of
its table. Without arguments the default resource is rendered.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderUser, "user", "u", "", "log in as this user first")
	renderCmd.Flags().StringVarP(&renderPassword, "password", "p", "", "password for --user")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resources := args
	if len(resources) == 0 {
		resources = []string{cfg.View.DefaultResource}
	}

	client, err := view.NewClient(cfg.View.APIBase, view.WithTimeout(cfg.View.Timeout))
	if err != nil {
		return err
	}
	if renderUser != "" {
		if err = client.Login(ctx, renderUser, renderPassword); err != nil {
			return fmt.Errorf("login as %s: %w", renderUser, err)
		}
	}

	doc := view.NewDocument()
	for _, r := range resources {
		doc.AddContainer(view.ContainerID(r))
	}
	tv := view.NewTableView(client, doc,
		view.WithLogger(logger),
		view.WithDefaultResource(cfg.View.DefaultResource),
		view.WithLoginPage(cfg.View.LoginPage))

	// one resource failing must not stop the others, so no shared context
	var g errgroup.Group
	errs := make([]error, len(resources))
	for index, r := range resources {
		index, r := index, r
		g.Go(func() error {
			errs[index] = tv.LoadAndRender(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	if loc := doc.Location(); loc != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "not logged in, redirected to %s\n", loc)
		return view.ErrAuthRequired
	}

	out := cmd.OutOrStdout()
	for index, r := range resources {
		if errs[index] != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r, errs[index])
			continue
		}
		c, _ := doc.Container(view.ContainerID(r))
		fmt.Fprintf(out, "<table id=%q>%s</table>\n", c.ID(), c.InnerHTML())
	}
	return errors.Join(errs...)
}
