package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"finance_tracker/internal/limits"
	"finance_tracker/internal/runtime"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

type Server struct {
	HTTPAddr string
	GRPCAddr string

	httpServer   *http.Server
	grpcServer   *grpc.Server
	httpLn       net.Listener
	grpcLn       net.Listener
	limits       limits.Limits
	shutdown     runtime.ShutdownConfig
	inflight     *runtime.InflightTracker
	stoppers     []Stopper
	closeIdle    []func()
	shutdownOnce sync.Once
	shutdownErr  error
}

type Stopper interface {
	Stop(ctx context.Context) error
}

type StopFunc func(ctx context.Context) error

func (s StopFunc) Stop(ctx context.Context) error {
	return s(ctx)
}

type Options struct {
	Limits    limits.Limits
	Shutdown  runtime.ShutdownConfig
	Inflight  *runtime.InflightTracker
	Stoppers  []Stopper
	CloseIdle []func()
}

func StartServers(handler http.Handler, grpcSrv *grpc.Server, httpAddr string, grpcAddr string, options Options) (*Server, error) {
	if httpAddr != "" && handler == nil {
		return nil, errors.New("handler is nil")
	}

	limitConfig := options.Limits
	if limitConfig.MaxHeaderBytes == 0 {
		limitConfig = limits.Default()
	}
	shutdownConfig := runtime.ApplyShutdownDefaults(options.Shutdown)

	var httpSrv *http.Server
	var httpLn net.Listener
	var grpcLn net.Listener

	if httpAddr != "" {
		ln, err := net.Listen("tcp", httpAddr)
		if err != nil {
			return nil, err
		}
		httpLn = ln
		httpSrv = limitConfig.HTTPServer(options.Inflight.Track(handler))
		go serveHTTP(httpSrv, httpLn)
	}

	if grpcAddr != "" {
		if grpcSrv == nil {
			closeListener(httpLn)
			return nil, errors.New("grpc server is required")
		}
		ln, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			closeListener(httpLn)
			return nil, err
		}
		grpcLn = ln
		go serveGRPC(grpcSrv, grpcLn)
	}

	if httpLn == nil && grpcLn == nil {
		return nil, errors.New("no listeners configured")
	}

	s := &Server{
		HTTPAddr:   addrString(httpLn),
		GRPCAddr:   addrString(grpcLn),
		httpServer: httpSrv,
		httpLn:     httpLn,
		grpcLn:     grpcLn,
		limits:     limitConfig,
		shutdown:   shutdownConfig,
		inflight:   options.Inflight,
		stoppers:   options.Stoppers,
		closeIdle:  options.CloseIdle,
	}
	if grpcLn != nil {
		s.grpcServer = grpcSrv
	}
	zap.L().Info("listening", zap.String("http_addr", s.HTTPAddr), zap.String("grpc_addr", s.GRPCAddr))
	return s, nil
}

func serveHTTP(server *http.Server, ln net.Listener) {
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("http server error", zap.Error(err))
	}
}

func serveGRPC(server *grpc.Server, ln net.Listener) {
	if err := server.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		zap.L().Error("grpc server error", zap.Error(err))
	}
}

func addrString(ln net.Listener) string {
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}

func closeListener(ln net.Listener) {
	if ln != nil {
		_ = ln.Close()
	}
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	if s == nil {
		return nil
	}
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdownSequence()
	})
	return s.shutdownErr
}

func (s *Server) shutdownSequence() error {
	started := time.Now()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), s.shutdown.GracefulTimeout)
	for _, stopper := range s.stoppers {
		if stopper == nil {
			continue
		}
		if err := stopper.Stop(stopCtx); err != nil {
			zap.L().Warn("stopper failed", zap.Error(err))
		}
	}
	stopCancel()

	if s.shutdown.Drain > 0 {
		time.Sleep(s.shutdown.Drain)
	}

	for _, closeIdle := range s.closeIdle {
		if closeIdle != nil {
			closeIdle()
		}
	}

	gracefulCtx, gracefulCancel := context.WithTimeout(context.Background(), s.shutdown.GracefulTimeout)
	defer gracefulCancel()

	grpcDone := make(chan struct{})
	if s.grpcServer != nil {
		go func() {
			s.grpcServer.GracefulStop()
			close(grpcDone)
		}()
	} else {
		close(grpcDone)
	}

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(gracefulCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			firstErr = err
		}
	}
	if s.inflight != nil {
		_ = s.inflight.Wait(gracefulCtx)
	}
	select {
	case <-grpcDone:
	case <-gracefulCtx.Done():
	}
	if gracefulCtx.Err() == nil {
		zap.L().Info("shutdown complete", zap.Duration("took", time.Since(started)))
		return firstErr
	}

	zap.L().Warn("graceful shutdown timed out; forcing close")
	if s.shutdown.ForceClose > 0 {
		time.Sleep(s.shutdown.ForceClose)
	}
	s.closeServers()
	if firstErr != nil {
		return firstErr
	}
	return gracefulCtx.Err()
}

func (s *Server) closeServers() {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
}
