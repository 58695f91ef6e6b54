package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/luigirizzo/lrtile/internal/platform"
	"github.com/luigirizzo/lrtile/internal/runtimepath"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

const connDeadline = 5 * time.Second

// Controller is the daemon surface the server dispatches to.
type Controller interface {
	Reload() error
	Status() StatusData
	Displays() []platform.Display
	RefreshDisplays() ([]platform.Display, error)
	Snap(cmd tiling.Command) (SnapData, error)
	Undo() error
	SetEnabled(enabled *bool, persist bool) (bool, error)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctrl         Controller
	logger       *slog.Logger
	wg           sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. An empty socketPath uses the default
// runtime socket.
func NewServer(socketPath string, ctrl Controller, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		socketPath: socketPath,
		ctrl:       ctrl,
		logger:     logger,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections. A stale socket file is
// replaced; a socket that still answers means another daemon owns it.
func (s *Server) Start() error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("another daemon is already listening on %s", s.socketPath)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

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

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			closing := s.shuttingDown
			s.shutdownMu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
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

// handleConnection serves one newline-terminated request.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connDeadline))

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("invalid request: %v", err)))
		return
	}

	resp := s.handleCommand(req)
	resp.ID = req.ID
	s.writeResponse(conn, resp)
}

func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command, "id", req.ID)

	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return okResponse(s.ctrl.Status())
	case CommandGetDisplays:
		return okResponse(DisplaysData{Displays: displayInfos(s.ctrl.Displays())})
	case CommandRefreshDisplays:
		displays, err := s.ctrl.RefreshDisplays()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("failed to refresh displays: %v", err))
		}
		return okResponse(DisplaysData{Displays: displayInfos(displays)})
	case CommandSnap:
		return s.handleSnap(req.Payload)
	case CommandUndo:
		if err := s.ctrl.Undo(); err != nil {
			return NewErrorResponse(fmt.Sprintf("failed to undo: %v", err))
		}
		return okResponse(nil)
	case CommandSetEnabled:
		return s.handleSetEnabled(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD")
	if err := s.ctrl.Reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to reload config: %v", err))
	}
	return okResponse(nil)
}

func (s *Server) handleSnap(payload json.RawMessage) *Response {
	var req SnapPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid snap payload: %v", err))
	}
	cmd, err := tiling.ParseCommand(req.Command)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	data, err := s.ctrl.Snap(cmd)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("snap %s failed: %v", cmd, err))
	}
	return okResponse(data)
}

func (s *Server) handleSetEnabled(payload json.RawMessage) *Response {
	var req SetEnabledPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("invalid set_enabled payload: %v", err))
		}
	}

	enabled, err := s.ctrl.SetEnabled(req.Enabled, req.Persist)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to set enabled: %v", err))
	}
	return okResponse(EnabledData{Enabled: enabled})
}

func okResponse(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func displayInfos(displays []platform.Display) []DisplayInfo {
	out := make([]DisplayInfo, len(displays))
	for i, d := range displays {
		out[i] = DisplayInfo{
			ID:     d.ID,
			Name:   d.Name,
			Bounds: tiling.Rect{X: d.Bounds.X, Y: d.Bounds.Y, Width: d.Bounds.Width, Height: d.Bounds.Height},
			Usable: tiling.Rect{X: d.Usable.X, Y: d.Usable.Y, Width: d.Usable.Width, Height: d.Usable.Height},
		}
	}
	return out
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// Stop closes the listener, waits for in-flight requests and removes the
// socket file.
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
