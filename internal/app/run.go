package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/config"
	"github.com/cnnpruning/mayo/internal/ctxlog"
	"github.com/cnnpruning/mayo/internal/graph"
	"github.com/cnnpruning/mayo/internal/yamldoc"
)

// Run executes the configured actions against the loaded documents.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	cfg, err := a.loadDocuments()
	if err != nil {
		return err
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve configuration: %w", err)
	}
	a.logger.Debug("Configuration resolved.")

	for _, action := range a.config.Actions {
		a.logger.Debug("Running action.", "action", action)
		switch action {
		case ActionExport:
			data, err := resolved.ExportYAML()
			if err != nil {
				return fmt.Errorf("failed to export document: %w", err)
			}
			if _, err := a.outW.Write(data); err != nil {
				return err
			}
		case ActionInfo:
			g, err := graph.Build(ctx, resolved.Root())
			if err != nil {
				return err
			}
			if err := a.printInfo(resolved, g); err != nil {
				return err
			}
		case ActionValidate:
			g, err := graph.Build(ctx, resolved.Root())
			if err != nil {
				return err
			}
			a.logger.Info("Document valid.", "layers", len(g.Pipeline()))
			fmt.Fprintln(a.outW, "OK")
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// printInfo writes the model name and the ordered layer pipeline.
func (a *App) printInfo(resolved *config.Config, g *graph.Graph) error {
	name, err := resolved.ModelName()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "model: %s\n", name)

	w := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "layer\ttype")
	for _, n := range g.Pipeline() {
		fmt.Fprintf(w, "%s\t%s\n", n.FormattedName(), layerType(n.Params))
	}
	return w.Flush()
}

func layerType(params cty.Value) string {
	t, ok := yamldoc.Attr(params, "type")
	if !ok {
		return ""
	}
	t, _ = t.Unmark()
	if t.IsNull() || t.Type() != cty.String {
		return ""
	}
	return t.AsString()
}
