package cli

import (
	"fmt"
	"ident_index_app_go/services"
	"strings"

	"github.com/spf13/cobra"
)

type classification struct {
	DocumentType string `json:"document_type"`
	Category     string `json:"category"`
	Valid        bool   `json:"valid"`
	Criminal     bool   `json:"criminal"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "classify [document-type...]",
		Short: "Show the category of reference document types",
		Long: `Show the category of reference document types.

Example:
  iisctl classify CC1 CR
  iisctl classify --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				args = services.ReferenceTypeCodes()
			}
			if len(args) == 0 {
				return NewExitError(ExitCommandError, "at least one document type is required")
			}

			out := make([]classification, 0, len(args))
			var lines []string
			for _, code := range args {
				c := classification{
					DocumentType: strings.ToUpper(strings.TrimSpace(code)),
					Category:     services.DetermineCategory(code),
					Valid:        services.IsValidReferenceType(code),
					Criminal:     services.IsCriminalType(code),
				}
				out = append(out, c)
				lines = append(lines, fmt.Sprintf("%-6s %-6s valid=%t criminal=%t", c.DocumentType, c.Category, c.Valid, c.Criminal))
			}
			return rootOpts.formatter(cmd).Success(strings.Join(lines, "\n"), out)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "classify every known document type")
	return cmd
}
