package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ironsheep/image-edit-mcp/internal/collection"
	"github.com/ironsheep/image-edit-mcp/internal/config"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	"github.com/ironsheep/image-edit-mcp/internal/metrics"
)

// Notification methods sent when the collection changes.
const (
	NotifyModifyStarted    = "notifications/images/modify_started"
	NotifyModified         = "notifications/images/modified"
	NotifyCurrentChanged   = "notifications/images/current_changed"
	NotifyReferenceChanged = "notifications/images/reference_changed"
	NotifyCountChanged     = "notifications/images/count_changed"
)

// Server handles MCP protocol communication
type Server struct {
	// mu guards the collection and pending. Every tool call and every
	// maintenance tick holds it.
	mu      sync.Mutex
	images  *collection.Collection
	pending []MCPNotification

	cfg     config.Config
	version string
	logger  *slog.Logger
	metrics *metrics.Metrics

	outMu sync.Mutex
	enc   *json.Encoder
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithConfig replaces config.Default().
func WithConfig(cfg config.Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the version reported by initialize.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a new MCP server instance
func New(opts ...Option) *Server {
	s := &Server{
		cfg:     config.Default(),
		version: "0.1.0",
		logger:  editor.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	imageOpts := []editor.Option{
		editor.WithLogger(s.logger),
		editor.WithMetrics(s.metrics),
		editor.WithHistoryLimit(s.cfg.HistoryLimit),
		editor.WithUploadBudget(s.cfg.UploadBudget),
		editor.WithChunkSize(s.cfg.UploadChunkSize),
	}
	s.images = collection.New(
		collection.WithCallbacks(s.callbacks()),
		collection.WithLogger(s.logger),
		collection.WithMetrics(s.metrics),
		collection.WithImageOptions(imageOpts...),
		collection.WithMaxConcurrentLoads(s.cfg.MaxConcurrentLoads),
	)
	return s
}

// callbacks turns collection events into queued notifications. They run
// with s.mu held.
func (s *Server) callbacks() collection.Callbacks {
	return collection.Callbacks{
		ModifyStart: func(index int) {
			s.queue(NotifyModifyStarted, s.imageRef(index))
		},
		ModifyDone: func(index int) {
			s.queue(NotifyModified, s.imageRef(index))
		},
		CurrentChanged: func() {
			s.queue(NotifyCurrentChanged, s.imageRef(s.images.CurrentIndex()))
		},
		ReferenceChanged: func() {
			s.queue(NotifyReferenceChanged, s.imageRef(s.images.ReferenceIndex()))
		},
		NumImagesChanged: func() {
			s.queue(NotifyCountChanged, map[string]interface{}{"count": s.images.Len()})
		},
	}
}

func (s *Server) imageRef(index int) map[string]interface{} {
	ref := map[string]interface{}{"index": index}
	if img := s.images.Image(index); img != nil {
		ref["id"] = img.ID()
	}
	return ref
}

func (s *Server) queue(method string, params interface{}) {
	s.pending = append(s.pending, MCPNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// takePending returns and clears the queued notifications.
func (s *Server) takePending() []MCPNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.pending
	s.pending = nil
	return n
}

// maintain drains finished commands and advances texture uploads.
func (s *Server) maintain() {
	s.mu.Lock()
	s.images.Update()
	s.mu.Unlock()
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads requests from in until EOF and writes responses and
// notifications to out. Between requests a ticker keeps background edits
// moving so notifications arrive without polling.
func (s *Server) Serve(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	s.outMu.Lock()
	s.enc = json.NewEncoder(out)
	s.outMu.Unlock()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	if s.cfg.TickInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick(stop, s.cfg.TickInterval)
		}()
	}
	defer func() {
		close(stop)
		wg.Wait()
	}()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			continue
		}

		s.maintain()
		resp := s.handleRequest(&req)
		if resp != nil {
			s.write(resp)
		}
		s.flush()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

func (s *Server) tick(stop <-chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.maintain()
			s.flush()
		}
	}
}

// flush writes the queued notifications.
func (s *Server) flush() {
	for _, n := range s.takePending() {
		s.write(n)
	}
}

func (s *Server) write(v interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.enc == nil {
		return
	}
	if err := s.enc.Encode(v); err != nil {
		s.logger.Error("failed to encode message", "error", err)
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "image-edit-mcp",
				"version": s.version,
			},
		},
	}
}
