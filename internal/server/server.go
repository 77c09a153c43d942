// Package server exposes access evaluation and SVT submission over gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/ppiankov/accord/api/accordv1"
	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/metrics"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/svt"
)

// Config holds gRPC server configuration. Sinks are opened by the caller
// and survive reloads.
type Config struct {
	Addr       string
	ConfigPath string
	Source     feature.Source
	Ledger     svt.Ledger
	Publisher  svt.Publisher
	Auditor    svt.Auditor
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server implements the AccordService gRPC server.
type Server struct {
	mu         sync.RWMutex
	proc       *svt.Processor
	policyHash string
	cfg        Config

	grpcServer *grpc.Server
}

// New loads the configuration file and creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Server{
		cfg:        cfg,
		grpcServer: grpc.NewServer(),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	pb.RegisterAccordServiceServer(s.grpcServer, s)
	return s, nil
}

// Reload re-reads the configuration file and swaps in a new processor.
// On error the previous processor stays active.
func (s *Server) Reload() error {
	cfg, hash, err := config.LoadWithHash(s.cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	proc, err := svt.Build(cfg, hash, s.cfg.Source, svt.Sinks{
		Ledger:    s.cfg.Ledger,
		Publisher: s.cfg.Publisher,
		Auditor:   s.cfg.Auditor,
	}, s.cfg.Logger, s.cfg.Metrics)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.proc = proc
	s.policyHash = hash
	s.mu.Unlock()

	s.cfg.Logger.Info("configuration loaded",
		zap.String("path", s.cfg.ConfigPath),
		zap.String("policy_hash", hash),
		zap.Int("rules", len(cfg.Policy.Rules)))
	return nil
}

// PolicyHash returns the hash of the active configuration file.
func (s *Server) PolicyHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policyHash
}

func (s *Server) processor() *svt.Processor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proc
}

// Serve listens on cfg.Addr. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeOn(lis)
}

// ServeOn serves on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	s.cfg.Logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Evaluate implements the Evaluate RPC. Denials are responses, not errors.
func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.EvalRequest
	if err := pb.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.DID == "" || req.Intent == "" {
		return nil, status.Error(codes.InvalidArgument, "did and intent are required")
	}

	d := s.processor().Resolve(req.DID, model.Intent(req.Intent))
	out, err := pb.ToStruct(pb.EvalResponse{Decision: d})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Submit implements the Submit RPC. A denied submission is a response with
// no svt_id and no breakdown.
func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.SubmitRequest
	if err := pb.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r := svt.Request{
		DID:             req.DID,
		Intent:          model.Intent(req.Intent),
		Message:         req.Message,
		Timestamp:       req.Timestamp,
		FeatureIndex:    req.FeatureIndex,
		EnergySignature: req.EnergySignature,
	}

	proc := s.processor()
	var (
		res svt.Result
		err error
	)
	if req.DryRun {
		res, err = proc.Weigh(r)
	} else {
		res, err = proc.Submit(ctx, r)
	}
	switch {
	case errors.Is(err, svt.ErrInvalidRequest):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, svt.ErrAudit):
		return nil, status.Error(codes.Unavailable, err.Error())
	case err != nil && !errors.Is(err, policy.ErrAccessDenied):
		s.cfg.Logger.Error("submit failed", zap.String("did", req.DID), zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := pb.SubmitResponse{
		SvtID:     res.ID,
		Decision:  res.Decision,
		Timestamp: res.Submission.Timestamp,
		Inserted:  res.Inserted,
		Published: res.Published,
	}
	if res.Breakdown != nil {
		resp.Breakdown = pb.FromModel(*res.Breakdown)
	}
	out, err := pb.ToStruct(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
