package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Axees-0/axeesBE-sub017/internal/application"
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// ReleaseInternalService is the sidecar surface other mesh services call to
// trigger runs and read run state without going through the public API.
type ReleaseInternalService interface {
	TriggerRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLatestRun(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type ReleaseInternalServer struct {
	service *application.Service
}

func NewReleaseInternalServer(service *application.Service) *ReleaseInternalServer {
	return &ReleaseInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc ReleaseInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "axees.payments.v1.ReleaseInternalService",
		HandlerType: (*ReleaseInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "TriggerRun",
				Handler:    triggerRunHandler(svc),
			},
			{
				MethodName: "GetLatestRun",
				Handler:    getLatestRunHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "axees/contracts/proto/payments/v1/release_internal.proto",
	}, svc)
}

func (s *ReleaseInternalServer) TriggerRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	trigger := "internal"
	if val := req.GetFields()["trigger"]; val != nil && val.GetStringValue() != "" {
		trigger = val.GetStringValue()
	}
	summary, err := s.service.RunOnce(ctx, trigger)
	if err != nil && !errors.Is(err, domain.ErrScanFailed) {
		return nil, status.Errorf(codes.Internal, "run release cycle: %v", err)
	}
	resp, buildErr := summaryStruct(summary)
	if buildErr != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", buildErr)
	}
	if err != nil {
		return resp, status.Errorf(codes.Unavailable, "eligibility scan failed: %v", err)
	}
	return resp, nil
}

func (s *ReleaseInternalServer) GetLatestRun(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.service.LatestRunSummary(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "no completed runs")
		}
		return nil, status.Errorf(codes.Internal, "load run summary: %v", err)
	}
	resp, err := summaryStruct(summary)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

// summaryStruct round-trips the summary through its JSON form so the wire
// shape matches the operator API and the analytics event payload.
func summaryStruct(summary domain.RunSummary) (*structpb.Struct, error) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func triggerRunHandler(svc ReleaseInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.TriggerRun(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/axees.payments.v1.ReleaseInternalService/TriggerRun",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.TriggerRun(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getLatestRunHandler(svc ReleaseInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetLatestRun(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/axees.payments.v1.ReleaseInternalService/GetLatestRun",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetLatestRun(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
