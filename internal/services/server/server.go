// Package server exposes the current command snapshot over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/cmdsrv/internal/model"
	"github.com/temirov/cmdsrv/internal/params"
	"github.com/temirov/cmdsrv/internal/registry"
	"github.com/temirov/cmdsrv/internal/types"
)

const (
	defaultShutdownDuration = 5 * time.Second
	headerContentType       = "Content-Type"
	headerAllow             = "Allow"
	headerRequestID         = "X-Request-Id"
	mimeTypeJSONUTF8        = types.MimeTypeJSON + "; charset=utf-8"
	mimeTypeTextUTF8        = types.MimeTypeText + "; charset=utf-8"
	messageFieldName        = "message"
	loggerName              = "server"

	errorNoSnapshot       = "server has no command snapshot"
	errorRouteNotFound    = "no command at %s"
	errorMethodNotAllowed = "%s is not supported for %s"
	logMessageRequest     = "request"
	logMessageFailed      = "command failed"
)

// SnapshotProvider hands out the snapshot current at the time of the call.
type SnapshotProvider interface {
	Snapshot() *registry.Snapshot
}

// CommandExecutionError represents a failure accompanied by an HTTP status code.
type CommandExecutionError struct {
	statusCode int
	err        error
}

// Error returns the error string.
func (executionError CommandExecutionError) Error() string {
	return executionError.err.Error()
}

// Unwrap exposes the wrapped error.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.err
}

// StatusCode reports the associated HTTP status code.
func (executionError CommandExecutionError) StatusCode() int {
	return executionError.statusCode
}

// NewCommandExecutionError creates a new CommandExecutionError.
func NewCommandExecutionError(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return CommandExecutionError{statusCode: statusCode, err: err}
}

// Config defines runtime options for the server.
type Config struct {
	Address         string
	ShutdownTimeout time.Duration
	Snapshots       SnapshotProvider
	Model           model.Reader
	Logger          *zap.Logger
}

// Server routes requests against the current snapshot and runs the matched command.
type Server struct {
	config Config
	logger *zap.Logger
}

// NewServer creates a new Server with defaults applied.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = types.DefaultAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	logger := normalized.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Server{config: normalized, logger: logger.Named(loggerName)}
}

// Run starts the server and blocks until the provided context is canceled.
// The notify callback receives the bound address once the listener is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf("listen on %s: %w", server.config.Address, listenErr)
	}
	actualAddress := listener.Addr().String()

	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: 10 * time.Second}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveErr := httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve commands: %w", serveErr)
		}
		return nil
	})

	server.logger.Info("listening", zap.String("address", actualAddress))
	if notify != nil {
		notify(actualAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) && !errors.Is(shutdownErr, http.ErrServerClosed) {
			return fmt.Errorf("shutdown commands: %w", shutdownErr)
		}
		return nil
	})

	return group.Wait()
}

// Handler returns the HTTP handler serving every registered command.
func (server Server) Handler() http.Handler {
	return http.HandlerFunc(server.handleCommand)
}

func (server Server) handleCommand(writer http.ResponseWriter, request *http.Request) {
	started := time.Now()
	requestID := uuid.NewString()
	writer.Header().Set(headerRequestID, requestID)
	recorder := &statusRecorder{ResponseWriter: writer, statusCode: http.StatusOK}

	server.dispatch(recorder, request, requestID)

	server.logger.Info(logMessageRequest,
		zap.String("request_id", requestID),
		zap.String("method", request.Method),
		zap.String("path", request.URL.EscapedPath()),
		zap.Int("status", recorder.statusCode),
		zap.Duration("duration", time.Since(started)),
	)
}

func (server Server) dispatch(writer http.ResponseWriter, request *http.Request, requestID string) {
	if server.config.Snapshots == nil {
		server.writeMessage(writer, http.StatusServiceUnavailable, errorNoSnapshot)
		return
	}
	snapshot := server.config.Snapshots.Snapshot()
	if snapshot == nil {
		server.writeMessage(writer, http.StatusServiceUnavailable, errorNoSnapshot)
		return
	}

	escapedPath := request.URL.EscapedPath()
	match, lookupErr := snapshot.Lookup(request.Method, escapedPath)
	if lookupErr != nil {
		var methodError *registry.MethodNotAllowedError
		if errors.As(lookupErr, &methodError) {
			writer.Header().Set(headerAllow, strings.Join(methodError.Allowed, ", "))
			server.writeMessage(writer, http.StatusMethodNotAllowed, fmt.Sprintf(errorMethodNotAllowed, request.Method, escapedPath))
			return
		}
		server.writeMessage(writer, http.StatusNotFound, fmt.Sprintf(errorRouteNotFound, escapedPath))
		return
	}

	source, sourceErr := params.FromRequest(request)
	if sourceErr != nil {
		server.writeError(writer, sourceErr, requestID)
		return
	}
	vars, processErr := params.Process(match.Leaf.Endpoint, source, match.Captures)
	if processErr != nil {
		server.writeError(writer, processErr, requestID)
		return
	}

	format := NegotiateFormat(request.Header.Get("Accept"))
	response, executeErr := match.Leaf.Executor.Execute(request.Context(), registry.Request{
		Vars:     vars,
		Format:   format,
		Snapshot: snapshot,
		Model:    server.config.Model,
	})
	if executeErr != nil {
		server.writeError(writer, executeErr, requestID)
		return
	}
	server.writeResponse(writer, format, response)
}

func (server Server) writeResponse(writer http.ResponseWriter, format string, response registry.Response) {
	if format == types.FormatText {
		writer.Header().Set(headerContentType, mimeTypeTextUTF8)
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte(response.Message))
		return
	}

	if response.Data != nil {
		server.writeJSON(writer, http.StatusOK, response.Data)
		return
	}
	server.writeJSON(writer, http.StatusOK, map[string]string{messageFieldName: response.Message})
}

func (server Server) writeError(writer http.ResponseWriter, err error, requestID string) {
	statusCode := server.statusCodeFromError(err)
	if statusCode >= http.StatusInternalServerError {
		server.logger.Error(logMessageFailed, zap.String("request_id", requestID), zap.Error(err))
	}
	server.writeMessage(writer, statusCode, err.Error())
}

func (server Server) writeMessage(writer http.ResponseWriter, statusCode int, message string) {
	server.writeJSON(writer, statusCode, map[string]string{messageFieldName: message})
}

func (server Server) writeJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	var buffer bytes.Buffer
	if encodeErr := json.NewEncoder(&buffer).Encode(payload); encodeErr != nil {
		fallback := map[string]string{messageFieldName: fmt.Sprintf("encode response: %v", encodeErr)}
		writer.Header().Set(headerContentType, mimeTypeJSONUTF8)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSONUTF8)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func (server Server) statusCodeFromError(err error) int {
	var executionError CommandExecutionError
	if errors.As(err, &executionError) {
		return executionError.StatusCode()
	}
	if registry.IsRequestError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (recorder *statusRecorder) WriteHeader(statusCode int) {
	recorder.statusCode = statusCode
	recorder.ResponseWriter.WriteHeader(statusCode)
}
