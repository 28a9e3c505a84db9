package app

import (
	"github.com/vk/refinery/internal/registry"
	"github.com/vk/refinery/modules/passthrough"
)

// coreModules is the definitive list of all modules that are compiled into
// the refinery binary. They are registered before any caller-supplied module.
var coreModules = []registry.Module{
	&passthrough.Module{},
}
