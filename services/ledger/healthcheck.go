package ledger

import (
	"context"

	"resource-ledger/pkg/errutil"

	"go.uber.org/fx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// HealthServer reports SERVING while the ledger database answers pings.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer

	db *gorm.DB
}

type HealthServerParams struct {
	fx.In
	DB *gorm.DB
}

func NewHealthServer(p HealthServerParams) *HealthServer {
	return &HealthServer{db: p.DB}
}

func (s *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, errutil.ToGRPCError(errutil.Internal("db not ready", err))
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING}, nil
	}

	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, srv grpc_health_v1.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "Watch method not implemented")
}
