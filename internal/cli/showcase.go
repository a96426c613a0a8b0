package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"GeminiTrace/internal/render"
	"GeminiTrace/internal/session"
	"GeminiTrace/internal/story"
)

const showcaseLongDesc string = `Generate a story with rich trace information.

Writes a science fiction premise, expands it into a short story and scores
the story locally for creativity, structure and engagement. The trace carries
a user id, a session id, tags and experiment metadata, and every step
annotates its own observation.

Examples:
  geminitrace showcase
  geminitrace showcase --user alice`

const showcaseShortDesc string = "Generate a story with rich trace metadata"

var showcaseTags = []string{"creative_writing", "demo", "metadata_showcase", "gemini"}

func newShowcaseCmd(o *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "showcase",
		Short: showcaseShortDesc,
		Long:  showcaseLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start := time.Now()

			a, err := newApp(ctx, o, true)
			if err != nil {
				return err
			}
			defer a.close()

			gen, err := o.newGenerator(ctx, a.cfg, a.tel, a.logger)
			if err != nil {
				return err
			}

			sess := session.New(userID, showcaseTags...)
			a.logger.Info("showcase session", "session_id", sess.ID, "user_id", sess.UserID)

			writer := story.NewWriter(gen,
				story.WithLogger(a.logger),
				story.WithProgress(cmd.ErrOrStderr()),
				story.WithModel(a.cfg.Vertex.Model, a.cfg.Vertex.Location),
			)
			result, err := writer.Showcase(ctx, sess)
			if err != nil {
				return fmt.Errorf("failed to run showcase: %w", err)
			}

			if err := render.Showcase(cmd.OutOrStdout(), result, time.Since(start)); err != nil {
				return err
			}
			render.DashboardHint(cmd.ErrOrStderr(), a.dashboardHost())
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", session.DefaultUserID, "User id recorded on the trace")

	return cmd
}
