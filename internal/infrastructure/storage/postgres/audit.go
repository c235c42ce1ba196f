package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "barstock/internal/core/context"
	"barstock/internal/core/id"
)

const auditTable = "sys_audit"

// CompressionAlgo specifies how changes are stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the change payload size above which entries are compressed.
const DefaultCompressThreshold = 10 * 1024

// AuditEntry is one audit log row.
type AuditEntry struct {
	ID                id.ID           `db:"id" json:"id"`
	EntityType        string          `db:"entity_type" json:"entity_type"`
	EntityID          id.ID           `db:"entity_id" json:"entity_id"`
	Action            string          `db:"action" json:"action"`
	UserID            string          `db:"user_id" json:"user_id,omitempty"`
	UserEmail         string          `db:"user_email" json:"user_email,omitempty"`
	RequestID         string          `db:"request_id" json:"request_id,omitempty"`
	TraceID           string          `db:"trace_id" json:"trace_id,omitempty"`
	Changes           json.RawMessage `db:"changes" json:"changes,omitempty"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	Metadata          json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// AuditService writes consumption and generation summaries to sys_audit.
// Payloads above the threshold are stored zstd-compressed.
type AuditService struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	codec             *changeCodec
	compressThreshold int
}

// NewAuditService creates a new audit service. A non-positive threshold
// selects DefaultCompressThreshold.
func NewAuditService(txManager *TxManager, compressThreshold int) (*AuditService, error) {
	codec, err := newChangeCodec()
	if err != nil {
		return nil, err
	}
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &AuditService{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		codec:             codec,
		compressThreshold: compressThreshold,
	}, nil
}

// Log records an audit entry in the caller's transaction.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	entry = s.prepare(ctx, entry)
	sql, args, err := s.builder.Insert(auditTable).SetMap(StructToMap(entry)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// prepare stamps the entry with the acting user and the request that
// produced it, and compresses large payloads.
func (s *AuditService) prepare(ctx context.Context, entry AuditEntry) AuditEntry {
	if user := appctx.GetUser(ctx); user != nil {
		if entry.UserID == "" {
			entry.UserID = user.UserID
		}
		if entry.UserEmail == "" {
			entry.UserEmail = user.Email
		}
	}
	if trace := appctx.GetTrace(ctx); trace != nil {
		if entry.RequestID == "" {
			entry.RequestID = trace.RequestID
		}
		if entry.TraceID == "" {
			entry.TraceID = trace.TraceID
		}
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo = s.codec.encode(entry.Changes, s.compressThreshold)
	return entry
}

// LogChange marshals changes and records them against an entity.
func (s *AuditService) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changesJSON,
	})
}

// History returns the newest entries for an entity with changes decompressed.
func (s *AuditService) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	sql, args, err := s.builder.Select(ExtractDBColumns[AuditEntry]()...).
		From(auditTable).
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []AuditEntry
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	for i := range entries {
		changes, err := s.codec.decode(entries[i])
		if err != nil {
			return nil, err
		}
		entries[i].Changes = changes
		entries[i].ChangesCompressed = nil
	}
	return entries, nil
}

type changeCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newChangeCodec() (*changeCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &changeCodec{encoder: encoder, decoder: decoder}, nil
}

// encode moves payloads larger than threshold into the compressed column.
func (c *changeCodec) encode(changes json.RawMessage, threshold int) (json.RawMessage, []byte, CompressionAlgo) {
	if len(changes) <= threshold {
		return changes, nil, CompressionNone
	}
	return nil, c.encoder.EncodeAll(changes, nil), CompressionZstd
}

func (c *changeCodec) decode(e AuditEntry) (json.RawMessage, error) {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return e.Changes, nil
	}
	out, err := c.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress changes of %s: %w", e.ID, err)
	}
	return out, nil
}
