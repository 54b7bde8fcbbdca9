// Package ipc serves the shell's control socket: one JSON request per
// connection over a unix socket, mirrored by the CLI client.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/readershell/internal/display"
	"github.com/1broseidon/readershell/internal/platform"
	"github.com/1broseidon/readershell/internal/runtimepath"
	"github.com/1broseidon/readershell/internal/settings"
)

// Mover relocates the shell window to a display by snapshot index.
type Mover interface {
	MoveToDisplay(index int) error
}

// Rebuilder regenerates the menu.
type Rebuilder interface {
	Rebuild() error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	backend      platform.Backend
	store        *settings.Store
	mover        Mover
	rebuilder    Rebuilder
	siteID       string
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(backend platform.Backend, store *settings.Store, mover Mover, rebuilder Rebuilder, siteID string) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		backend:    backend,
		store:      store,
		mover:      mover,
		rebuilder:  rebuilder,
		siteID:     siteID,
		startTime:  time.Now(),
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetDisplays:
		return s.handleGetDisplays()
	case CommandGetSettings:
		return s.handleGetSettings()
	case CommandMoveToDisplay:
		return s.handleMoveToDisplay(req.Payload)
	case CommandRebuildMenu:
		return s.handleRebuildMenu()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleGetStatus returns current shell status
func (s *Server) handleGetStatus() *Response {
	currentIndex, located, displayCount := s.locate()

	status := StatusData{
		Site:            s.siteID,
		DisplayCount:    displayCount,
		CurrentDisplay:  currentIndex,
		Located:         located,
		SettingsVersion: s.store.Read().Version(),
		UptimeSeconds:   int64(time.Since(s.startTime).Seconds()),
		DaemonRunning:   true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

// handleGetDisplays returns the current topology snapshot
func (s *Server) handleGetDisplays() *Response {
	displays, err := s.backend.Displays()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get displays: %v", err))
	}

	currentIndex := 0
	located := false
	if pos, err := s.backend.WindowPosition(); err == nil {
		currentIndex, located = display.Locate(pos, displays)
	}

	infos := make([]DisplayInfo, len(displays))
	for i, d := range displays {
		infos[i] = DisplayInfo{
			Index:   d.Index,
			Name:    d.Name,
			X:       d.Bounds.X,
			Y:       d.Bounds.Y,
			Width:   d.Bounds.Width,
			Height:  d.Bounds.Height,
			Scale:   d.Scale,
			Current: located && d.Index == currentIndex,
		}
	}

	resp, _ := NewOKResponse(DisplaysData{Displays: infos})
	return resp
}

// handleGetSettings returns the raw settings document
func (s *Server) handleGetSettings() *Response {
	doc := s.store.Read()
	raw, err := json.Marshal(doc)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to serialize settings: %v", err))
	}

	resp, _ := NewOKResponse(SettingsData{Version: doc.Version(), Document: raw})
	return resp
}

// handleMoveToDisplay relocates the shell window
func (s *Server) handleMoveToDisplay(payload json.RawMessage) *Response {
	var req MoveToDisplayPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid move payload: %v", err))
	}
	if req.Index < 0 {
		return NewErrorResponse("index must be non-negative")
	}

	log.Printf("IPC: Move window to display %d", req.Index)

	if err := s.mover.MoveToDisplay(req.Index); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to move window: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleRebuildMenu forces a menu rebuild
func (s *Server) handleRebuildMenu() *Response {
	if err := s.rebuilder.Rebuild(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to rebuild menu: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) locate() (index int, located bool, count int) {
	displays, err := s.backend.Displays()
	if err != nil {
		return 0, false, 0
	}
	pos, err := s.backend.WindowPosition()
	if err != nil {
		return 0, false, len(displays)
	}
	index, located = display.Locate(pos, displays)
	return index, located, len(displays)
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
