package temporal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/casewright/petition-service/internal/domain"
)

// Signal and query names live here rather than in the workflows package so
// the HTTP layer can use them without importing workflow code.
const (
	// SignalCancel asks a running petition workflow to stop.
	SignalCancel = "cancel"

	// QueryProgress reads a running workflow's progress snapshot.
	QueryProgress = "progress"
)

const (
	// DefaultWorkflowExecutionTimeout bounds a single petition workflow run.
	DefaultWorkflowExecutionTimeout = 4 * time.Hour

	// DefaultHealthCheckTimeout bounds Temporal server health probes.
	DefaultHealthCheckTimeout = 5 * time.Second
)

// WorkflowIDForCase derives the workflow ID for a case. The ID is stable per
// case, so Temporal rejects a second start while the first run is still open.
func WorkflowIDForCase(caseID string) string {
	return "petition-" + caseID
}

// Sentinel error categories for Temporal operations.
var (
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")
	ErrQueryFailed            = errors.New("query failed")
	ErrSignalFailed           = errors.New("signal failed")
	ErrClientClosed           = errors.New("client closed")
	ErrConnectionFailed       = errors.New("connection failed")
	ErrNamespaceNotFound      = errors.New("namespace not found")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrResourceExhausted      = errors.New("resource exhausted")
	ErrDeadlineExceeded       = errors.New("deadline exceeded")
)

// TemporalError carries the failed operation, a sentinel category, and the
// workflow identity alongside the underlying SDK error.
type TemporalError struct {
	Op         string
	Kind       error
	WorkflowID string
	RunID      string
	Err        error
}

func (e *TemporalError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.WorkflowID != "" {
		b.WriteString(" [workflowID=")
		b.WriteString(e.WorkflowID)
		if e.RunID != "" {
			b.WriteString(", runID=")
			b.WriteString(e.RunID)
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TemporalError) Unwrap() error { return e.Err }

// Is matches against the sentinel category, so errors.Is(err, ErrX) works
// even though the sentinel is not in the Unwrap chain.
func (e *TemporalError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// classify maps a Temporal SDK error onto one of the sentinel categories.
func classify(err error) error {
	var (
		notFound       *serviceerror.NotFound
		alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		nsNotFound     *serviceerror.NamespaceNotFound
		permDenied     *serviceerror.PermissionDenied
		invalidArg     *serviceerror.InvalidArgument
		exhausted      *serviceerror.ResourceExhausted
		deadline       *serviceerror.DeadlineExceeded
		queryFailed    *serviceerror.QueryFailed
		unavailable    *serviceerror.Unavailable
	)
	switch {
	case errors.As(err, &notFound):
		return ErrWorkflowNotFound
	case errors.As(err, &alreadyStarted):
		return ErrWorkflowAlreadyStarted
	case errors.As(err, &nsNotFound):
		return ErrNamespaceNotFound
	case errors.As(err, &permDenied):
		return ErrPermissionDenied
	case errors.As(err, &invalidArg):
		return ErrInvalidArgument
	case errors.As(err, &exhausted):
		return ErrResourceExhausted
	case errors.As(err, &deadline):
		return ErrDeadlineExceeded
	case errors.As(err, &queryFailed):
		return ErrQueryFailed
	case errors.As(err, &unavailable):
		return ErrConnectionFailed
	case errors.Is(err, context.DeadlineExceeded):
		return ErrDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return ErrClientClosed
	default:
		return ErrConnectionFailed
	}
}

func wrapTemporalError(op string, err error, workflowID, runID string) error {
	if err == nil {
		return nil
	}
	return &TemporalError{
		Op:         op,
		Kind:       classify(err),
		WorkflowID: workflowID,
		RunID:      runID,
		Err:        err,
	}
}

// IsWorkflowNotFound reports whether err is a workflow-not-found error.
func IsWorkflowNotFound(err error) bool { return errors.Is(err, ErrWorkflowNotFound) }

// IsWorkflowAlreadyStarted reports whether err means a run with the same
// workflow ID is already open.
func IsWorkflowAlreadyStarted(err error) bool { return errors.Is(err, ErrWorkflowAlreadyStarted) }

// IsQueryFailed reports whether err is a query failure.
func IsQueryFailed(err error) bool { return errors.Is(err, ErrQueryFailed) }

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool { return errors.Is(err, ErrConnectionFailed) }

// TLSConfig holds mutual-TLS settings for the Temporal connection.
type TLSConfig struct {
	Enabled    bool
	CertPath   string // client certificate, PEM
	KeyPath    string // client private key, PEM
	CACertPath string // CA bundle, PEM
	ServerName string

	// InsecureSkipVerify disables certificate verification. Test use only.
	InsecureSkipVerify bool
}

func (t *TLSConfig) buildTLSConfig() (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}

	out := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify,
		ServerName:         t.ServerName,
		MinVersion:         tls.VersionTLS12,
	}

	if t.CertPath != "" && t.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}

	if t.CACertPath != "" {
		pem, err := os.ReadFile(t.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		out.RootCAs = pool
	}

	return out, nil
}

// ClientConfig configures the Temporal connection.
type ClientConfig struct {
	HostPort  string // e.g. "localhost:7233"
	Namespace string
	TaskQueue string
	TLS       *TLSConfig

	// HealthCheckTimeout bounds health probes; zero means the default.
	HealthCheckTimeout time.Duration
}

// NewClient dials the Temporal server described by cfg.
func NewClient(cfg ClientConfig) (client.Client, error) {
	opts := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsCfg, err := cfg.TLS.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("configure TLS: %w", err)
		}
		opts.ConnectionOptions = client.ConnectionOptions{TLS: tlsCfg}
	}

	c, err := client.Dial(opts)
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}
	return c, nil
}

// PetitionWorkflowInput is the start argument for a petition document
// workflow. Defined here so the HTTP layer can build one without importing
// the workflows package.
type PetitionWorkflowInput struct {
	CaseID          string
	BeneficiaryName string
	VisaCategory    domain.VisaCategory
	FieldOfEndeavor string

	// URLs are caller-supplied evidence sources.
	URLs []string

	// Files carry pre-extracted evidence text.
	Files []domain.UploadedFile
}

// PetitionWorkflowClient starts and manages petition workflows. All methods
// fail with ErrClientClosed after Close.
type PetitionWorkflowClient struct {
	mu                 sync.RWMutex
	client             client.Client
	taskQueue          string
	healthCheckTimeout time.Duration
	closed             bool
}

func NewPetitionWorkflowClient(c client.Client, taskQueue string) *PetitionWorkflowClient {
	return &PetitionWorkflowClient{
		client:             c,
		taskQueue:          taskQueue,
		healthCheckTimeout: DefaultHealthCheckTimeout,
	}
}

// Close shuts down the underlying connection. Idempotent.
func (c *PetitionWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

// guard returns an ErrClientClosed error for op if the client is closed.
func (c *PetitionWorkflowClient) guard(op, workflowID, runID string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.closed {
		return nil
	}
	return &TemporalError{Op: op, Kind: ErrClientClosed, WorkflowID: workflowID, RunID: runID}
}

// Health probes connectivity to the Temporal server.
func (c *PetitionWorkflowClient) Health(ctx context.Context) error {
	if err := c.guard("Health", "", ""); err != nil {
		return err
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{}); err != nil {
		return wrapTemporalError("Health", err, "", "")
	}
	return nil
}

// StartPetitionWorkflow starts the document workflow for input.CaseID. The
// workflow ID comes from WorkflowIDForCase, so at most one run per case is
// open at a time; a concurrent start fails with ErrWorkflowAlreadyStarted.
func (c *PetitionWorkflowClient) StartPetitionWorkflow(ctx context.Context, workflowFunc interface{}, input PetitionWorkflowInput) (workflowID, runID string, err error) {
	workflowID = WorkflowIDForCase(input.CaseID)
	if err := c.guard("StartPetitionWorkflow", workflowID, ""); err != nil {
		return "", "", err
	}

	opts := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultWorkflowExecutionTimeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, opts, workflowFunc, input)
	if err != nil {
		return "", "", wrapTemporalError("StartPetitionWorkflow", err, workflowID, "")
	}
	return workflowID, run.GetRunID(), nil
}

// CancelWorkflow requests cancellation of a running workflow.
func (c *PetitionWorkflowClient) CancelWorkflow(ctx context.Context, workflowID, runID string) error {
	if err := c.guard("CancelWorkflow", workflowID, runID); err != nil {
		return err
	}
	if err := c.client.CancelWorkflow(ctx, workflowID, runID); err != nil {
		return wrapTemporalError("CancelWorkflow", err, workflowID, runID)
	}
	return nil
}

// GetWorkflowResult blocks until the workflow completes and decodes its
// result into result.
func (c *PetitionWorkflowClient) GetWorkflowResult(ctx context.Context, workflowID, runID string, result interface{}) error {
	if err := c.guard("GetWorkflowResult", workflowID, runID); err != nil {
		return err
	}
	run := c.client.GetWorkflow(ctx, workflowID, runID)
	if err := run.Get(ctx, result); err != nil {
		return wrapTemporalError("GetWorkflowResult", err, workflowID, runID)
	}
	return nil
}

// SignalWorkflow delivers a signal to a running workflow.
func (c *PetitionWorkflowClient) SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error {
	if err := c.guard("SignalWorkflow", workflowID, runID); err != nil {
		return err
	}
	if err := c.client.SignalWorkflow(ctx, workflowID, runID, signalName, arg); err != nil {
		return wrapTemporalError("SignalWorkflow", err, workflowID, runID)
	}
	return nil
}

// QueryWorkflow runs a query against a workflow and decodes the response
// into result when result is non-nil.
func (c *PetitionWorkflowClient) QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, result interface{}, args ...interface{}) error {
	if err := c.guard("QueryWorkflow", workflowID, runID); err != nil {
		return err
	}

	resp, err := c.client.QueryWorkflow(ctx, workflowID, runID, queryType, args...)
	if err != nil {
		return wrapTemporalError("QueryWorkflow", err, workflowID, runID)
	}
	if result != nil {
		if err := resp.Get(result); err != nil {
			return &TemporalError{
				Op:         "QueryWorkflow",
				Kind:       ErrQueryFailed,
				WorkflowID: workflowID,
				RunID:      runID,
				Err:        fmt.Errorf("decode query result: %w", err),
			}
		}
	}
	return nil
}

// Client exposes the underlying Temporal client.
func (c *PetitionWorkflowClient) Client() client.Client { return c.client }

// TaskQueue returns the configured task queue name.
func (c *PetitionWorkflowClient) TaskQueue() string { return c.taskQueue }
