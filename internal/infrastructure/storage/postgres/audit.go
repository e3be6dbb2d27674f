package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"pharmadesk/internal/core/allocator"
	appctx "pharmadesk/internal/core/context"
	"pharmadesk/internal/core/id"
	"pharmadesk/internal/domain/audit"
	"pharmadesk/pkg/logger"
)

// CompressionAlgo is the encoding of changes_compressed.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

var _ audit.Recorder = (*AuditService)(nil)

// AuditEntry is one row of sys_audit.
type AuditEntry struct {
	ID                id.ID           `db:"id" json:"id"`
	EntityType        string          `db:"entity_type" json:"entityType"`
	EntityID          *id.ID          `db:"entity_id" json:"entityId,omitempty"`
	BusinessID        string          `db:"business_id" json:"businessId,omitempty"`
	Action            audit.Action    `db:"action" json:"action"`
	OperatorID        string          `db:"operator_id" json:"operatorId,omitempty"`
	RequestID         string          `db:"request_id" json:"requestId,omitempty"`
	Changes           json.RawMessage `db:"changes" json:"changes,omitempty"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// AuditService writes and reads sys_audit. Payloads larger than the
// threshold are stored zstd-compressed.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates a new audit service.
// compressThreshold <= 0 disables compression.
func NewAuditService(txManager *TxManager, compressThreshold int) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// Log records an entry inside the transaction carried by ctx, if any.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if entry.OperatorID == "" {
		entry.OperatorID = appctx.GetOperatorID(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = appctx.GetRequestID(ctx)
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo = s.pack(entry.Changes)

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, business_id, action, operator_id, request_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.BusinessID, entry.Action,
		entry.OperatorID, entry.RequestID,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// LogChange records an action on a stored record with a JSON payload.
// An audit.Update payload is stored as the fields that changed.
func (s *AuditService) LogChange(ctx context.Context, entityType string, entityID id.ID, businessID string, action audit.Action, changes any) error {
	if u, ok := changes.(audit.Update); ok {
		diff, err := updateChanges(u)
		if err != nil {
			return err
		}
		changes = diff
	}

	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}

	var ref *id.ID
	if !id.IsNil(entityID) {
		ref = &entityID
	}

	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   ref,
		BusinessID: businessID,
		Action:     action,
		Changes:    payload,
	})
}

// History returns the newest entries for a record first.
func (s *AuditService) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	return s.query(ctx, `
		SELECT id, entity_type, entity_id, business_id, action, operator_id, request_id,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
}

// SequenceEvents returns allocation and collision events of one counter key.
func (s *AuditService) SequenceEvents(ctx context.Context, key string, limit int) ([]AuditEntry, error) {
	return s.query(ctx, `
		SELECT id, entity_type, entity_id, business_id, action, operator_id, request_id,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND business_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, audit.EntitySequence, key, limit)
}

func (s *AuditService) query(ctx context.Context, sql string, args ...any) ([]AuditEntry, error) {
	var entries []AuditEntry
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}

	for i := range entries {
		changes, err := s.unpack(entries[i])
		if err != nil {
			return nil, err
		}
		entries[i].Changes = changes
		entries[i].ChangesCompressed = nil
	}
	return entries, nil
}

func (s *AuditService) pack(changes json.RawMessage) (json.RawMessage, []byte, CompressionAlgo) {
	if s.compressThreshold <= 0 || len(changes) <= s.compressThreshold {
		return changes, nil, CompressionNone
	}
	return nil, s.encoder.EncodeAll(changes, nil), CompressionZstd
}

func (s *AuditService) unpack(e AuditEntry) (json.RawMessage, error) {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return e.Changes, nil
	}
	raw, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress audit changes %s: %w", e.ID, err)
	}
	return raw, nil
}

// AllocationObserver records allocator events as sequence audit entries.
// Writes bypass the request transaction: a collision is recorded even
// though the insert that caused it was rolled back.
func (s *AuditService) AllocationObserver() allocator.Observer {
	record := func(ctx context.Context, action audit.Action, e allocator.Event) {
		changes := map[string]any{
			"businessId": e.BusinessID,
			"value":      e.Value,
			"field":      e.Field,
			"attempt":    e.Attempt,
		}
		if e.Err != nil {
			changes["error"] = e.Err.Error()
		}
		payload, err := json.Marshal(changes)
		if err != nil {
			logger.Warn(ctx, "marshal allocation event", "error", err)
			return
		}

		entry := AuditEntry{
			ID:         id.New(),
			EntityType: audit.EntitySequence,
			BusinessID: e.Sequence,
			Action:     action,
			OperatorID: appctx.GetOperatorID(ctx),
			RequestID:  appctx.GetRequestID(ctx),
			Changes:    payload,
			CreatedAt:  time.Now().UTC(),
		}
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo = s.pack(entry.Changes)

		_, err = s.txManager.Pool().Exec(ctx, `
			INSERT INTO sys_audit (
				id, entity_type, business_id, action, operator_id, request_id,
				changes, changes_compressed, compression_algo, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			entry.ID, entry.EntityType, entry.BusinessID, entry.Action, entry.OperatorID, entry.RequestID,
			entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
		)
		if err != nil {
			// Audit failure must not fail an allocation that already committed.
			logger.Warn(ctx, "record allocation event", "action", action, "sequence", e.Sequence, "error", err)
		}
	}

	return allocator.ObserverFuncs{
		OnAllocated: func(ctx context.Context, e allocator.Event) { record(ctx, audit.ActionIDAllocated, e) },
		OnCollided:  func(ctx context.Context, e allocator.Event) { record(ctx, audit.ActionIDCollision, e) },
	}
}

// bookkeepingFields change on every update and are left out of diffs.
var bookkeepingFields = []string{"version", "updatedAt", "updatedBy"}

// updateChanges compares the JSON forms of both states, so nested lines and
// items are covered as well as columns.
func updateChanges(u audit.Update) (map[string]any, error) {
	before, err := jsonFields(u.Before)
	if err != nil {
		return nil, err
	}
	after, err := jsonFields(u.After)
	if err != nil {
		return nil, err
	}

	diff := Diff(before, after)
	out := make(map[string]any, len(diff))
	for _, field := range ColumnsExcept(slices.Sorted(maps.Keys(diff)), bookkeepingFields...) {
		out[field] = diff[field]
	}
	return out, nil
}

func jsonFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit state: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode audit state: %w", err)
	}
	return fields, nil
}

// Diff returns the fields whose values differ between two column maps,
// as {"field": {"old": ..., "new": ...}}.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists || fmt.Sprint(oldVal) != fmt.Sprint(newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}
