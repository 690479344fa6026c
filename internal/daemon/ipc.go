package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gotosym/internal/symbols"
)

// Command is a request from a client (CLI or editor shim) to the
// daemon.
type Command struct {
	Action  string   `json:"action"` // status, stop, rescan, symbols, open, close, save, add, remove
	Project string   `json:"project,omitempty"`
	File    string   `json:"file,omitempty"`
	Name    string   `json:"name,omitempty"` // exact-name filter for symbols
	Folders []string `json:"folders,omitempty"`
}

// Response is the daemon's reply.
type Response struct {
	Status  string `json:"status"` // ok, error
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// IPCServer handles client connections over a unix socket, one
// newline-delimited JSON command per connection.
type IPCServer struct {
	socketPath string
	listener   net.Listener
	daemon     *Daemon
}

// NewIPCServer starts listening on the given socket path.
func NewIPCServer(socketPath string, daemon *Daemon) (*IPCServer, error) {
	// Remove stale socket if it exists
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on socket: %w", err)
	}

	return &IPCServer{
		socketPath: socketPath,
		listener:   listener,
		daemon:     daemon,
	}, nil
}

// Close shuts down the IPC server.
func (s *IPCServer) Close() error {
	os.Remove(s.socketPath)
	return s.listener.Close()
}

// Serve accepts connections until the listener closes or the context
// is cancelled.
func (s *IPCServer) Serve(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Transient accept failure: back off instead of spinning.
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *IPCServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return
	}

	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		s.sendResponse(conn, Response{Status: "error", Message: "invalid command"})
		return
	}

	s.sendResponse(conn, s.handleCommand(cmd))
}

func (s *IPCServer) handleCommand(cmd Command) Response {
	switch cmd.Action {
	case "status":
		return Response{Status: "ok", Data: s.daemon.Status()}

	case "stop":
		s.daemon.Stop()
		return Response{Status: "ok", Message: "daemon stopping"}

	case "rescan":
		if cmd.Project == "" {
			return Response{Status: "error", Message: "project required"}
		}
		s.daemon.Projects().Get(cmd.Project).Rescan()
		return Response{Status: "ok", Message: "rescan started"}

	case "symbols":
		if cmd.Project == "" {
			return Response{Status: "error", Message: "project required"}
		}
		mgr := s.daemon.Projects().Get(cmd.Project)
		if !mgr.Loaded() {
			// Kick off the first scan and tell the caller to retry.
			mgr.ScanAll()
			return Response{Status: "error", Message: "loading symbols, please try again shortly"}
		}
		syms := mgr.Symbols()
		if cmd.Name != "" {
			var matched []symbols.Symbol
			for _, sym := range syms {
				if sym.Name == cmd.Name {
					matched = append(matched, sym)
				}
			}
			syms = matched
		}
		return Response{Status: "ok", Data: syms}

	case "open":
		if cmd.Project == "" {
			return Response{Status: "error", Message: "project required"}
		}
		s.daemon.Projects().Get(cmd.Project).FileOpened(cmd.File, cmd.Folders)
		return Response{Status: "ok"}

	case "close":
		if cmd.Project == "" {
			return Response{Status: "error", Message: "project required"}
		}
		s.daemon.Projects().Get(cmd.Project).FileClosed(cmd.File, cmd.Folders)
		return Response{Status: "ok"}

	case "save":
		if cmd.Project == "" {
			return Response{Status: "error", Message: "project required"}
		}
		s.daemon.Projects().Get(cmd.Project).FileSaved(cmd.File)
		return Response{Status: "ok"}

	case "add":
		if cmd.Project == "" {
			return Response{Status: "error", Message: "project required"}
		}
		if err := s.daemon.AddProject(cmd.Project); err != nil {
			return Response{Status: "error", Message: err.Error()}
		}
		return Response{Status: "ok", Message: "project added"}

	case "remove":
		if cmd.Project == "" {
			return Response{Status: "error", Message: "project required"}
		}
		if err := s.daemon.RemoveProject(cmd.Project); err != nil {
			return Response{Status: "error", Message: err.Error()}
		}
		return Response{Status: "ok", Message: "project removed"}

	default:
		return Response{Status: "error", Message: "unknown action"}
	}
}

func (s *IPCServer) sendResponse(conn net.Conn, resp Response) {
	data, _ := json.Marshal(resp)
	conn.Write(append(data, '\n'))
}

// IPCClient talks to a running daemon.
type IPCClient struct {
	socketPath string
}

// NewIPCClient returns a client for the given socket path.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath}
}

// DefaultSocketPath returns the per-user socket path.
func DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/gotosym-%d.sock", os.Getuid())
}

// Send sends one command and reads the response.
func (c *IPCClient) Send(cmd Command) (*Response, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	defer conn.Close()

	data, _ := json.Marshal(cmd)
	conn.Write(append(data, '\n'))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &resp, nil
}

// IsRunning reports whether a daemon answers on the socket.
func (c *IPCClient) IsRunning() bool {
	resp, err := c.Send(Command{Action: "status"})
	return err == nil && resp.Status == "ok"
}

// Stop tells the daemon to shut down.
func (c *IPCClient) Stop() error {
	_, err := c.Send(Command{Action: "stop"})
	return err
}

// Status fetches the daemon status.
func (c *IPCClient) Status() (*Status, error) {
	resp, err := c.Send(Command{Action: "status"})
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("%s", resp.Message)
	}

	data, _ := json.Marshal(resp.Data)
	var status Status
	json.Unmarshal(data, &status)
	return &status, nil
}

// Rescan asks the daemon for a full rescan of a project.
func (c *IPCClient) Rescan(project string) error {
	return c.expectOK(Command{Action: "rescan", Project: project})
}

// Symbols fetches the ranked symbol snapshot for a project, optionally
// filtered to an exact name.
func (c *IPCClient) Symbols(project, name string) ([]symbols.Symbol, error) {
	resp, err := c.Send(Command{Action: "symbols", Project: project, Name: name})
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("%s", resp.Message)
	}

	data, _ := json.Marshal(resp.Data)
	var syms []symbols.Symbol
	if err := json.Unmarshal(data, &syms); err != nil {
		return nil, fmt.Errorf("parsing symbols: %w", err)
	}
	return syms, nil
}

// NotifyEvent forwards an editor lifecycle event (open, close, save).
func (c *IPCClient) NotifyEvent(action, project, file string, folders []string) error {
	return c.expectOK(Command{Action: action, Project: project, File: file, Folders: folders})
}

// AddProject registers a project with the daemon.
func (c *IPCClient) AddProject(project string) error {
	return c.expectOK(Command{Action: "add", Project: project})
}

// RemoveProject unregisters a project.
func (c *IPCClient) RemoveProject(project string) error {
	return c.expectOK(Command{Action: "remove", Project: project})
}

func (c *IPCClient) expectOK(cmd Command) error {
	resp, err := c.Send(cmd)
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}
