package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// render writes v as indented JSON when asked for, and through text
// otherwise.
func (o *RootOptions) render(cmd *cobra.Command, v any, text func(io.Writer) error) error {
	w := cmd.OutOrStdout()
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
