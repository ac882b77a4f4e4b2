package ledger

import (
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

var Module = fx.Module("ledger.service",
	fx.Provide(
		NewService,
		NewHealthServer,
		NewHandler,
	),
	fx.Invoke(registerHealthServer, RegisterRoutes),
)

func registerHealthServer(server *grpc.Server, health *HealthServer) {
	grpc_health_v1.RegisterHealthServer(server, health)
}
