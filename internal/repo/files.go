package repo

import (
	"context"
	"fmt"
)

// ListFiles returns every stored file's metadata, newest first.
func (r *PostgresRepository) ListFiles(ctx context.Context) ([]FileMetadata, error) {
	const q = `
SELECT id, file_path, file_name, mime_type, lead_id, status, created_at
FROM lead_files
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []FileMetadata
	for rows.Next() {
		var f FileMetadata
		if err := rows.Scan(&f.ID, &f.FilePath, &f.FileName, &f.MimeType, &f.LeadID, &f.Status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// InsertFileMetadata records a newly stored file.
func (r *PostgresRepository) InsertFileMetadata(ctx context.Context, f FileMetadata) (*FileMetadata, error) {
	const q = `
INSERT INTO lead_files (id, file_path, file_name, mime_type, lead_id, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, file_path, file_name, mime_type, lead_id, status, created_at;
`
	var inserted FileMetadata
	err := r.pool.QueryRow(ctx, q, f.ID, f.FilePath, f.FileName, f.MimeType, f.LeadID, f.Status).Scan(
		&inserted.ID, &inserted.FilePath, &inserted.FileName, &inserted.MimeType,
		&inserted.LeadID, &inserted.Status, &inserted.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert file metadata: %w", err)
	}
	return &inserted, nil
}

// DeleteFileMetadata removes the metadata row for a deleted file.
func (r *PostgresRepository) DeleteFileMetadata(ctx context.Context, path string) error {
	const q = `DELETE FROM lead_files WHERE file_path = $1;`
	if _, err := r.pool.Exec(ctx, q, path); err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	return nil
}
