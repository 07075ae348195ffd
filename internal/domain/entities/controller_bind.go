package entities

// ControllerBind carries the Cobra metadata for a controller's subcommand.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}
