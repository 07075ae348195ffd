package internal

import (
	"github.com/thoth-station/kebechet/internal/domain/entities"
)

// AppInternal aggregates everything the CLI entry point needs from the
// container: the controllers to mount as subcommands.
type AppInternal struct {
	controllers *[]entities.Controller
}

// NewAppInternal creates the application aggregate from the DIG container.
func NewAppInternal(controllers *[]entities.Controller) *AppInternal {
	return &AppInternal{controllers: controllers}
}

// GetControllers returns all registered controllers.
func (it *AppInternal) GetControllers() []entities.Controller {
	return *it.controllers
}
