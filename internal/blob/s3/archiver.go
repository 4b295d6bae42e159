package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alphavault/fundd/internal/domain"
)

// ActivityArchiveStore provides read access to activity records for archival
// purposes. The Postgres activity store satisfies this through its
// time-ranged ListBefore query.
type ActivityArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.ActivityRecord, error)
}

// AuditArchiveStore provides read access to audit entries for archival
// purposes.
type AuditArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.AuditEntry, error)
}

// ArchiveImpl implements domain.Archiver by querying the domain stores for
// old records, serializing them to JSONL, and uploading the result to S3.
//
// Archived rows are not deleted here. The caller prunes the primary store
// once the upload has succeeded.
type ArchiveImpl struct {
	writer   domain.BlobWriter
	activity ActivityArchiveStore
	auditSrc AuditArchiveStore
	audit    domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	activity ActivityArchiveStore,
	auditSrc AuditArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:   writer,
		activity: activity,
		auditSrc: auditSrc,
		audit:    audit,
	}
}

// ArchiveActivity queries all activity records before the cutoff, serializes
// them to JSONL, and uploads the file to S3 at archive/activity/YYYY-MM.jsonl.
// The archival event is recorded in the audit log and the count of archived
// records is returned.
func (a *ArchiveImpl) ArchiveActivity(ctx context.Context, before time.Time) (int64, error) {
	records, err := a.activity.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity query: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity marshal: %w", err)
	}

	path := archivePath("activity", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive activity upload: %w", err)
	}

	count := int64(len(records))

	if err := a.audit.Log(ctx, "archive.activity", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive activity audit log: %w", err)
	}

	return count, nil
}

// ArchiveAudit queries all audit entries before the cutoff, serializes them
// to JSONL, and uploads the file to S3 at archive/audit/YYYY-MM.jsonl. The
// archival event is recorded in the audit log and the count of archived
// records is returned.
func (a *ArchiveImpl) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.auditSrc.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath("audit", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	count := int64(len(entries))

	if err := a.audit.Log(ctx, "archive.audit", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive audit audit log: %w", err)
	}

	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/activity/2026-01.jsonl
//	archive/audit/2026-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
