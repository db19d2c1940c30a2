// Package audit records every state-mutating write for the audit trail.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/fentz26/taskboard/internal/models"
)

// Actions recorded by the service.
const (
	ActionTaskWrite      = "task.write"
	ActionMetadataUpsert = "metadata.upsert"
	ActionLogTouch       = "log.touch"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Sink persists audit entries.
type Sink interface {
	WriteAudit(ctx context.Context, action, inputsHash, outcome, employee, details string) (*models.AuditEntry, error)
}

// Writer hashes the inputs of an action and hands the entry to a Sink.
type Writer struct {
	sink   Sink
	logger *slog.Logger
}

// NewWriter creates a new audit writer. A nil logger uses slog.Default().
func NewWriter(s Sink, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{sink: s, logger: logger}
}

// Record writes an entry for action. The outcome is derived from cause: nil
// is a success, anything else a failure with the error text as details.
// Audit failures are logged and never fail the action being audited.
func (w *Writer) Record(ctx context.Context, action string, inputs interface{}, employee string, cause error) {
	if w == nil || w.sink == nil {
		return
	}
	outcome, details := OutcomeSuccess, ""
	if cause != nil {
		outcome, details = OutcomeFailure, cause.Error()
	}
	if _, err := w.sink.WriteAudit(ctx, action, HashInputs(inputs), outcome, employee, details); err != nil {
		w.logger.Warn("audit write failed", "action", action, "employee", employee, "error", err)
	}
}

// HashInputs creates a SHA256 hash of the inputs for reproducibility.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
