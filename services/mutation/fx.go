package mutation

import "go.uber.org/fx"

var Module = fx.Module("mutation.service",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
