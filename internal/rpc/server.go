package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/policy"
)

// #region server
// Server implements GuardServer. Each stream_id owns one engine.Session;
// streams are independent and a stream's own steps are serialized.
type Server struct {
	engine   *engine.Engine
	recorder engine.Recorder
	log      zerolog.Logger

	mu      sync.Mutex
	streams map[string]*stream
}

type stream struct {
	mu      sync.Mutex
	sess    *engine.Session
	started time.Time

	// lastSeen is guarded by Server.mu.
	lastSeen time.Time
}

// NewServer serves decisions from eng. recorder and logger may be nil.
func NewServer(eng *engine.Engine, recorder engine.Recorder, logger *zerolog.Logger) *Server {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Server{
		engine:   eng,
		recorder: recorder,
		log:      l.With().Str("component", "rpc").Logger(),
		streams:  make(map[string]*stream),
	}
}

// Streams returns the number of open streams.
func (s *Server) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// #endregion server

// #region observe
// Observe applies one reading to the caller's stream. The first call for a
// stream_id opens it with the given scenario. A halted stream rejects
// further readings until a call with reset=true.
func (s *Server) Observe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := str(in, "stream_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "stream_id is required")
	}
	scenario := str(in, "scenario")
	g, err := number(in, "global")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	l, err := number(in, "local")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := number(in, "recoverability")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	st, err := s.stream(id, scenario, boolean(in, "reset"))
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	if st.sess.Halted() {
		return nil, status.Errorf(codes.FailedPrecondition, "stream %s halted; send reset to start over", id)
	}

	row := st.sess.Step(g, l, rec)
	if s.recorder != nil {
		s.recorder.ObserveStep(row.Scenario, row.Decision, row.Substituted)
	}
	if row.Decision.Action.Halts() {
		sum := st.sess.Summary()
		s.log.Warn().
			Str("stream_id", id).
			Str("scenario", row.Scenario).
			Int("step", row.Step).
			Str("reason", string(row.Decision.Reason)).
			Msg("safe refusal, stream halted")
		if s.recorder != nil {
			s.recorder.ObserveRun(row.Scenario, sum.GoodnessRatio, sum.PeakAbsVelocity, true, time.Since(st.started))
		}
	}

	out := map[string]any{
		"stream_id":      id,
		"scenario":       row.Scenario,
		"step":           row.Step,
		"strain":         row.Reading.Strain,
		"velocity":       row.Reading.Velocity,
		"cum_drift":      row.Aggregate.CumulativeAbsDrift,
		"peak_velocity":  row.Aggregate.PeakAbsVelocity,
		"recoverability": row.Recoverability,
		"substituted":    row.Substituted,
		"goodness_ratio": row.GoodnessRatio,
		"halted":         st.sess.Halted(),
	}
	if row.RecoverySteps != nil {
		out["recovery_steps"] = *row.RecoverySteps
	}
	decisionFields(out, row.Decision, policy.Explain(row.Decision, row.Scenario))
	return encode(out)
}

// stream returns the session for id, opening or replacing it as needed.
func (s *Server) stream(id, scenario string, reset bool) (*stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	st, ok := s.streams[id]
	if ok && !reset {
		if scenario != "" && scenario != st.sess.Scenario() {
			return nil, status.Errorf(codes.InvalidArgument,
				"stream %s is bound to scenario %s, got %s", id, st.sess.Scenario(), scenario)
		}
		st.lastSeen = now
		return st, nil
	}
	if scenario == "" {
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "scenario is required to open a stream")
		}
		scenario = st.sess.Scenario()
	}

	sess, err := s.engine.NewSession(scenario)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	st = &stream{sess: sess, started: now, lastSeen: now}
	s.streams[id] = st
	s.log.Debug().Str("stream_id", id).Str("scenario", scenario).Bool("reset", ok).Msg("stream opened")
	return st, nil
}

// #endregion observe

// #region lifecycle
// Close drops the session of stream_id. Closing an unknown stream is not
// an error; the reply's closed field tells the two apart.
func (s *Server) Close(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := str(in, "stream_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "stream_id is required")
	}
	s.mu.Lock()
	st, ok := s.streams[id]
	delete(s.streams, id)
	s.mu.Unlock()

	out := map[string]any{"stream_id": id, "closed": ok}
	if ok {
		st.mu.Lock()
		out["steps"] = st.sess.Steps()
		st.mu.Unlock()
		s.log.Debug().Str("stream_id", id).Msg("stream closed")
	}
	return encode(out)
}

// EvictIdle drops streams that have not seen a reading for maxIdle and
// returns how many were dropped.
func (s *Server) EvictIdle(maxIdle time.Duration) int {
	return s.evictIdle(time.Now(), maxIdle)
}

func (s *Server) evictIdle(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.streams {
		if now.Sub(st.lastSeen) > maxIdle {
			delete(s.streams, id)
			n++
		}
	}
	return n
}

// RunEvictor calls EvictIdle every interval until ctx is done.
func (s *Server) RunEvictor(ctx context.Context, maxIdle, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				s.log.Info().Int("evicted", n).Dur("max_idle", maxIdle).Msg("idle streams evicted")
			}
		}
	}
}

// #endregion lifecycle

// #region classify
// Classify is the stateless one-shot path. Missing metrics read as NaN and
// classify as unclassifiable input.
func (s *Server) Classify(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	m, err := decodeMetrics(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	d := s.engine.Classifier().Classify(m)
	out := map[string]any{}
	decisionFields(out, d, policy.Explain(d, m.Scenario))
	return encode(out)
}

// #endregion classify

// #region interceptor
// UnaryLogger logs every call with its method, latency and status code.
func UnaryLogger(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Dur("latency", time.Since(start)).
			Str("code", status.Code(err).String()).
			Msg("rpc")
		return resp, err
	}
}

// #endregion interceptor

func encode(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
