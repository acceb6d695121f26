package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "facturio/internal/core/context"
	"facturio/internal/core/id"
)

// CompressionAlgo specifies the compression algorithm used for stored details.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is a single recorded lifecycle event.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	InvoiceID         id.ID           `db:"invoice_id"`
	Action            string          `db:"action"`
	Subject           string          `db:"subject"`
	Details           json.RawMessage `db:"details"`
	DetailsCompressed []byte          `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService records invoice lifecycle events (creation, transitions,
// sends, sweeps). Large detail payloads are zstd-compressed before storage.
type AuditService struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder

	compressThreshold int
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
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
		compressThreshold: 10 * 1024,
	}, nil
}

// Record stores one audit entry for the given invoice. The acting subject is
// taken from the request context when present.
func (s *AuditService) Record(ctx context.Context, action string, invoiceID id.ID, details map[string]any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	entry := AuditEntry{
		ID:              id.New(),
		InvoiceID:       invoiceID,
		Action:          action,
		Details:         detailsJSON,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if sub := appctx.GetSubject(ctx); sub != nil {
		entry.Subject = sub.Subject
	}

	if len(entry.Details) > s.compressThreshold {
		entry.DetailsCompressed = s.encoder.EncodeAll(entry.Details, nil)
		entry.Details = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO invoice_audit (
			id, invoice_id, action, subject,
			details, details_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.InvoiceID, entry.Action, entry.Subject,
		entry.Details, entry.DetailsCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	return err
}

// History retrieves the audit trail of one invoice, newest first.
func (s *AuditService) History(ctx context.Context, invoiceID id.ID, limit int) ([]AuditEntry, error) {
	sql := `
		SELECT id, invoice_id, action, subject,
			   details, details_compressed, compression_algo, created_at
		FROM invoice_audit
		WHERE invoice_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, invoiceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.InvoiceID, &e.Action, &e.Subject,
			&e.Details, &e.DetailsCompressed, &e.CompressionAlgo,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.DetailsCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.DetailsCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress details: %w", err)
			}
			e.Details = decompressed
			e.DetailsCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
