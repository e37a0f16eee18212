package app

import (
	"github.com/vk/lasrgo/internal/registry"
	"github.com/vk/lasrgo/internal/stages"
)

// coreModules are the stage definitions compiled into the lasr binary.
var coreModules = []registry.Module{
	stages.Module{},
}
