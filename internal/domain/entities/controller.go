package entities

import "github.com/spf13/cobra"

// Controller binds a domain command to a CLI subcommand.
type Controller interface {
	GetBind() ControllerBind
	Execute(cmd *cobra.Command, args []string)
}
