package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"GeminiTrace/internal/render"
	"GeminiTrace/internal/story"
)

const epicLongDesc string = `Create a multi-part epic story.

Generates a hero, a villain and a mentor, writes four story sections with
them and asks the model for a theme analysis. The whole run is one trace
named epic_story_generator.

Examples:
  geminitrace epic`

const epicShortDesc string = "Generate a traced multi-part epic story"

func newEpicCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "epic",
		Short: epicShortDesc,
		Long:  epicLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, o, true)
			if err != nil {
				return err
			}
			defer a.close()

			gen, err := o.newGenerator(ctx, a.cfg, a.tel, a.logger)
			if err != nil {
				return err
			}

			writer := story.NewWriter(gen,
				story.WithLogger(a.logger),
				story.WithProgress(cmd.ErrOrStderr()),
				story.WithModel(a.cfg.Vertex.Model, a.cfg.Vertex.Location),
			)
			epic, err := writer.CreateEpic(ctx)
			if err != nil {
				return fmt.Errorf("failed to create epic: %w", err)
			}

			if err := render.Epic(cmd.OutOrStdout(), epic); err != nil {
				return err
			}
			render.DashboardHint(cmd.ErrOrStderr(), a.dashboardHost())
			return nil
		},
	}
}
