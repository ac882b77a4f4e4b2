package resource

import "go.uber.org/fx"

var Module = fx.Module("resource.service",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
