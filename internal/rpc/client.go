package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/gv-guard/internal/policy"
)

// #region client-struct
// Client wraps a connection to a GuardService.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the guard gRPC server at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
// Close is then a no-op; the caller owns cc.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region observe
// Observe sends one reading for req.StreamID.
func (c *Client) Observe(ctx context.Context, req ObserveRequest) (Observation, error) {
	in, err := observeRequestStruct(req)
	if err != nil {
		return Observation{}, fmt.Errorf("encode observe request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ObserveMethod, in, out); err != nil {
		return Observation{}, fmt.Errorf("observe rpc: %w", err)
	}
	return decodeObservation(out), nil
}

// #endregion observe

// #region close-stream
// CloseStream drops the server-side session of streamID. It reports
// whether the server had the stream open.
func (c *Client) CloseStream(ctx context.Context, streamID string) (bool, error) {
	in, err := structpb.NewStruct(map[string]any{"stream_id": streamID})
	if err != nil {
		return false, fmt.Errorf("encode close request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CloseMethod, in, out); err != nil {
		return false, fmt.Errorf("close rpc: %w", err)
	}
	return boolean(out, "closed"), nil
}

// #endregion close-stream

// #region classify
// Classify asks for a one-shot decision on m.
func (c *Client) Classify(ctx context.Context, m policy.Metrics) (Verdict, error) {
	in, err := metricsStruct(m)
	if err != nil {
		return Verdict{}, fmt.Errorf("encode classify request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ClassifyMethod, in, out); err != nil {
		return Verdict{}, fmt.Errorf("classify rpc: %w", err)
	}
	return Verdict{
		Decision:    decodeDecision(out),
		Explanation: str(out, "explanation"),
	}, nil
}

// #endregion classify
