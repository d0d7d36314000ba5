package interfaces

import (
	"github.com/google/wire"

	"github.com/janhq/support-relay/internal/interfaces/httpserver"
	"github.com/janhq/support-relay/internal/interfaces/socketserver"
)

// InterfacesProvider provides all interface dependencies.
var InterfacesProvider = wire.NewSet(
	socketserver.New,
	httpserver.New,
)
