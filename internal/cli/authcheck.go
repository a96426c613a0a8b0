package cli

import (
	"github.com/spf13/cobra"

	"GeminiTrace/internal/langfuse"
	"GeminiTrace/internal/render"
)

const authCheckLongDesc string = `Verify the Langfuse credentials.

Calls the Langfuse public API with LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY
against LANGFUSE_HOST. This is a synchronous call and exits non-zero when the
keys are missing or rejected.

Examples:
  geminitrace auth-check`

const authCheckShortDesc string = "Verify Langfuse credentials"

func newAuthCheckCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-check",
		Short: authCheckShortDesc,
		Long:  authCheckLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), o, false)
			if err != nil {
				return err
			}
			defer a.close()

			client := langfuse.New(a.cfg.Langfuse, langfuse.WithLogger(a.logger))
			err = client.AuthCheck(cmd.Context())
			render.AuthResult(cmd.OutOrStdout(), err)
			return err
		},
	}
}
