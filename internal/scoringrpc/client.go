package scoringrpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/parley/internal/interview"
)

const defaultDialTimeout = 3 * time.Second

// Client calls a remote scoring service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to endpoint and waits for the channel to become ready. Extra options are
// appended after the insecure transport credentials.
func Dial(ctx context.Context, endpoint string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("scoring grpc endpoint is empty")
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial scoring grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := awaitReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("scoring grpc readiness at %q: %w", endpoint, err)
	}
	return &Client{conn: conn}, nil
}

// awaitReady drives conn out of idle and waits for Ready. TransientFailure ends the wait.
func awaitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for state := conn.GetState(); ; state = conn.GetState() {
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return errors.New("server unreachable")
		case connectivity.Shutdown:
			return errors.New("connection shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("still %s: %w", state, ctx.Err())
		}
	}
}

// Evaluate implements the scoring service over the RPC.
func (c *Client) Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error) {
	in, err := encodeRequest(transcript, interviewType)
	if err != nil {
		return interview.Evaluation{}, &interview.ServiceError{Op: "evaluate", Err: err}
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, evaluateMethod, in, out); err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument &&
			strings.Contains(st.Message(), interview.ErrUnknownInterviewType.Error()) {
			err = fmt.Errorf("%w %q", interview.ErrUnknownInterviewType, interviewType)
		}
		return interview.Evaluation{}, &interview.ServiceError{Op: "evaluate", Err: err}
	}

	evaluation, err := decodeEvaluation(out)
	if err != nil {
		return interview.Evaluation{}, &interview.ServiceError{Op: "decode evaluation", Err: err}
	}
	return evaluation, nil
}

// Health reports the remote serving status for the scoring service.
func (c *Client) Health(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("scoring health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("scoring service is %s", resp.GetStatus().String())
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
