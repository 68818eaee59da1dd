package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the KV service over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Get returns the value stored under key, or "" if it is not set.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, getMethod, wrapperspb.String(key), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Set stores value under key and returns the service's acknowledgement.
func (c *Client) Set(ctx context.Context, key, value string) (string, error) {
	in, err := structpb.NewStruct(map[string]any{"key": key, "value": value})
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, setMethod, in, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Test runs the service's self-test.
func (c *Client) Test(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, testMethod, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
