package service

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const managerServiceName = "ledger.ManagerService"

// dashboardInterval is the pause between two dashboard frames on the stream.
var dashboardInterval = time.Second

// managerService is implemented by Manager and served under managerServiceName. Messages
// travel as structpb.Struct carrying the JSON form of the response types.
type managerService interface {
	Status(ctx context.Context) (*StatusResponse, error)
	NetInfo(ctx context.Context) (*NetInfoResponse, error)
	Dashboard(ctx context.Context) (*DashboardResponse, error)
	DialPeer(ctx context.Context, req DialPeerRequest) error
}

var managerServiceDesc = grpc.ServiceDesc{
	ServiceName: managerServiceName,
	HandlerType: (*managerService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Status",
			Handler: unaryHandler("Status", func(ctx context.Context, srv managerService, _ *structpb.Struct) (interface{}, error) {
				response, err := srv.Status(ctx)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return response, nil
			}),
		},
		{
			MethodName: "NetInfo",
			Handler: unaryHandler("NetInfo", func(ctx context.Context, srv managerService, _ *structpb.Struct) (interface{}, error) {
				response, err := srv.NetInfo(ctx)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return response, nil
			}),
		},
		{
			MethodName: "DialPeer",
			Handler: unaryHandler("DialPeer", func(ctx context.Context, srv managerService, in *structpb.Struct) (interface{}, error) {
				var req DialPeerRequest
				if err := fromStruct(in, &req); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				if req.Address == "" {
					return nil, status.Error(codes.InvalidArgument, "address is required")
				}
				if err := srv.DialPeer(ctx, req); err != nil {
					return nil, status.Error(codes.FailedPrecondition, err.Error())
				}
				return nil, nil
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Dashboard",
			Handler:       dashboardHandler,
			ServerStreams: true,
		},
	},
	Metadata: "manager",
}

func unaryHandler(method string, call func(ctx context.Context, srv managerService, in *structpb.Struct) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + managerServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			response, err := call(ctx, srv.(managerService), req.(*structpb.Struct))
			if err != nil {
				return nil, err
			}
			if response == nil {
				return &emptypb.Empty{}, nil
			}
			return toStruct(response)
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}

func dashboardHandler(srv interface{}, stream grpc.ServerStream) error {
	if err := stream.RecvMsg(new(emptypb.Empty)); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		response, err := srv.(managerService).Dashboard(ctx)
		if err != nil {
			return status.Error(codes.Unavailable, err.Error())
		}
		frame, err := toStruct(response)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.SendMsg(frame); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-time.After(dashboardInterval):
		}
	}
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func fromStruct(in *structpb.Struct, v interface{}) error {
	encoded, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, v)
}
