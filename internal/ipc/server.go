package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds how long a single command may take.
const DefaultRequestTimeout = 5 * time.Second

// Backend executes commands. Implementations must be safe to call from the
// server's connection goroutines.
type Backend interface {
	Status(ctx context.Context) (StatusData, error)
	Indicate(ctx context.Context, window uint32) (bool, error)
	Reset(ctx context.Context) error
	SetStrategy(ctx context.Context, name string) error
	SwitchSlot(ctx context.Context, slot int) error
	GestureBegin(ctx context.Context) error
	GestureUpdate(ctx context.Context, delta float64) error
	GestureEnd(ctx context.Context, cancel bool) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	backend    Backend
	logger     *slog.Logger
	timeout    time.Duration

	listener     net.Listener
	baseCtx      context.Context
	wg           sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. A stale socket at socketPath is
// removed.
func NewServer(socketPath string, backend Backend, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		return nil, errors.New("IPC socket path is empty")
	}
	if backend == nil {
		return nil, errors.New("IPC backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale socket: %w", err)
	}

	return &Server{
		socketPath: socketPath,
		backend:    backend,
		logger:     logger,
		timeout:    DefaultRequestTimeout,
		baseCtx:    context.Background(),
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Run starts the server and blocks until ctx is cancelled, then stops it.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			stopping := s.shuttingDown
			s.shutdownMu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.timeout + time.Second))

	reader := bufio.NewReader(conn)

	// One JSON request per line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.write(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()
	s.write(conn, s.handleCommand(ctx, req))
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)

	switch req.Command {
	case CommandGetStatus:
		status, err := s.backend.Status(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
		}
		return ok(status)

	case CommandIndicate:
		var p IndicatePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid indicate payload: %v", err))
		}
		indicated, err := s.backend.Indicate(ctx, p.Window)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to indicate: %v", err))
		}
		return ok(IndicateData{Indicated: indicated})

	case CommandReset:
		return result(s.backend.Reset(ctx), "Failed to reset")

	case CommandSetStrategy:
		var p StrategyPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid strategy payload: %v", err))
		}
		if p.Strategy == "" {
			return NewErrorResponse("strategy is required")
		}
		return result(s.backend.SetStrategy(ctx, p.Strategy), "Failed to set strategy")

	case CommandSwitchSlot:
		var p SlotPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid slot payload: %v", err))
		}
		return result(s.backend.SwitchSlot(ctx, p.Slot), "Failed to switch slot")

	case CommandGestureBegin:
		return result(s.backend.GestureBegin(ctx), "Failed to begin gesture")

	case CommandGestureUpdate, CommandGestureEnd:
		var p GesturePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid gesture payload: %v", err))
		}
		if req.Command == CommandGestureUpdate {
			return result(s.backend.GestureUpdate(ctx, p.Delta), "Failed to update gesture")
		}
		return result(s.backend.GestureEnd(ctx, p.Cancel), "Failed to end gesture")

	case CommandEnable:
		return result(s.backend.Enable(ctx), "Failed to enable")

	case CommandDisable:
		return result(s.backend.Disable(ctx), "Failed to disable")

	case CommandReload:
		s.logger.Info("IPC: received RELOAD command")
		return result(s.backend.Reload(ctx), "Failed to reload config")

	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func ok(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func result(err error, msg string) *Response {
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("%s: %v", msg, err))
	}
	return ok(nil)
}

func (s *Server) write(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal IPC response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("failed to send IPC response", "error", err)
	}
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

// SocketPath is where the server listens.
func (s *Server) SocketPath() string { return s.socketPath }
