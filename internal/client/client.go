// Package client calls a remote accord server.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/ppiankov/accord/api/accordv1"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/svt"
)

const callTimeout = 5 * time.Second

// Client connects to an accord gRPC server.
type Client struct {
	conn   *grpc.ClientConn
	client pb.AccordServiceClient
}

// New creates a gRPC client connected to the given address.
// Fail-closed: if the server cannot be reached, Evaluate returns a denial.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to accord server: %w", err)
	}
	return &Client{
		conn:   conn,
		client: pb.NewAccordServiceClient(conn),
	}, nil
}

// Evaluate asks the remote server whether did may perform intent.
// Fail-closed: any RPC error yields a denial.
func (c *Client) Evaluate(did string, intent model.Intent) model.AccessDecision {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	var resp pb.EvalResponse
	err := c.call(ctx, c.client.Evaluate, pb.EvalRequest{DID: did, Intent: string(intent)}, &resp)
	if err != nil {
		// Fail-closed: unreachable server → deny
		return model.AccessDecision{
			Identity: model.Identity{DID: did, Tier: model.MaxTier},
			Intent:   intent,
			Allowed:  false,
			Reason:   model.ReasonDefaultDeny,
			PolicyID: "failclosed.unreachable",
			Detail:   fmt.Sprintf("accord server unreachable: %v", err),
		}
	}
	return resp.Decision
}

// Submit sends req through the remote pipeline. Like svt.Processor.Submit,
// a denial is returned as *policy.DeniedError.
func (c *Client) Submit(ctx context.Context, req svt.Request) (svt.Result, error) {
	return c.submit(ctx, req, false)
}

// Weigh computes the weight remotely without writing to any sink.
func (c *Client) Weigh(ctx context.Context, req svt.Request) (svt.Result, error) {
	return c.submit(ctx, req, true)
}

func (c *Client) submit(ctx context.Context, req svt.Request, dryRun bool) (svt.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var resp pb.SubmitResponse
	err := c.call(ctx, c.client.Submit, pb.SubmitRequest{
		DID:             req.DID,
		Intent:          string(req.Intent),
		Message:         req.Message,
		Timestamp:       req.Timestamp,
		FeatureIndex:    req.FeatureIndex,
		EnergySignature: req.EnergySignature,
		DryRun:          dryRun,
	}, &resp)
	if err != nil {
		return svt.Result{}, err
	}

	res := svt.Result{
		ID:       resp.SvtID,
		Decision: resp.Decision,
		Submission: model.Submission{
			Identity:        resp.Decision.Identity,
			Intent:          req.Intent,
			Message:         req.Message,
			Timestamp:       resp.Timestamp,
			FeatureIndex:    req.FeatureIndex,
			EnergySignature: uint16(req.EnergySignature),
		},
		Inserted:  resp.Inserted,
		Published: resp.Published,
	}
	if resp.Breakdown != nil {
		b := resp.Breakdown.Model()
		res.Breakdown = &b
	}
	return res, policy.Deny(resp.Decision)
}

type rpc func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) call(ctx context.Context, method rpc, req, resp any) error {
	in, err := pb.ToStruct(req)
	if err != nil {
		return err
	}
	out, err := method(ctx, in)
	if err != nil {
		return fmt.Errorf("accord server: %w", err)
	}
	return pb.FromStruct(out, resp)
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
