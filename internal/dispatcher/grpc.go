// grpc.go runs Call: grpc tasks using a long-lived, per-target connection
// pool over google.golang.org/grpc. Without the target .proto compiled in,
// this engine cannot marshal an arbitrary request message into the method's
// real request type; instead it boxes the `with.request` map into a
// google.protobuf.Struct (structpb), the standard dynamic-JSON-shaped proto
// message, and lets grpc's default codec marshal that like any other
// proto.Message. This only works against a server method that genuinely
// expects a Struct (or that forwards its raw bytes), but it is the same kind
// of opaque-payload contract the teacher's ssh executor uses for other
// transports it cannot generically type.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCExecutor invokes Call: grpc tasks.
type GRPCExecutor struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func NewGRPCExecutor() *GRPCExecutor {
	return &GRPCExecutor{conns: make(map[string]*grpc.ClientConn)}
}

func (e *GRPCExecutor) connFor(target string) (*grpc.ClientConn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if conn, ok := e.conns[target]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc: dial %s: %w", target, err)
	}
	e.conns[target] = conn
	return conn, nil
}

func (e *GRPCExecutor) Call(ctx context.Context, args map[string]interface{}, dctx DispatchContext) (interface{}, error) {
	target, _ := args["target"].(string)
	method, _ := args["method"].(string)
	if target == "" || method == "" {
		return nil, fmt.Errorf("grpc: with.target and with.method are required")
	}

	conn, err := e.connFor(target)
	if err != nil {
		return nil, err
	}

	req, _ := args["request"].(map[string]interface{})
	reqStruct, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("grpc: encode with.request as google.protobuf.Struct: %w", err)
	}

	reply := &structpb.Struct{}
	if err := conn.Invoke(ctx, method, reqStruct, reply); err != nil {
		return nil, fmt.Errorf("grpc: invoke %s: %w", method, err)
	}
	return reply.AsMap(), nil
}
