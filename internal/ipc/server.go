package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// controlService is the method set registered for the Control service.
type controlService interface {
	command(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type controlServer struct {
	handler Handler
}

func (s *controlServer) command(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	resp := s.handler.Handle(ctx, requestFromStruct(in))
	return resp.toStruct()
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*controlService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Command", Handler: commandHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func commandHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlService).command(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: commandMethod}
	handle := func(ctx context.Context, req any) (any, error) {
		return srv.(controlService).command(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handle)
}

// Serve answers control requests on listener until ctx is cancelled.
// In-flight requests finish before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	server := grpc.NewServer()
	server.RegisterService(&controlServiceDesc, &controlServer{handler: handler})

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-serveCtx.Done()
		server.GracefulStop()
	}()

	err := server.Serve(listener)
	if ctx.Err() != nil || errors.Is(err, grpc.ErrServerStopped) {
		<-stopped
		return nil
	}
	cancel()
	<-stopped
	if err != nil {
		return fmt.Errorf("serve IPC: %w", err)
	}
	return nil
}
