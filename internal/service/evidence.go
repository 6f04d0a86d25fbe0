package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// FileUploader abstracts uploading binary data and returning a stable URL.
// Only the returned reference is stored, never the bytes.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// validateEvidenceType sniffs the file content and rejects anything that is
// not video, image, or PDF evidence.
func validateEvidenceType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	detected := mime.String()
	if len(detected) >= 6 && (detected[:6] == "video/" || detected[:6] == "image/") {
		return nil
	}
	if mime.Is("application/pdf") {
		return nil
	}

	return fmt.Errorf("unsupported evidence type: %s", detected)
}

func uploadEvidence(ctx context.Context, uploader FileUploader, file *multipart.FileHeader) (string, error) {
	if uploader == nil {
		return "", errors.New("evidence storage is not configured")
	}
	if err := validateEvidenceType(file); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	url, err := uploader.Upload(ctx, file.Filename, src)
	if err != nil {
		return "", fmt.Errorf("failed to upload evidence: %w", err)
	}

	return url, nil
}
