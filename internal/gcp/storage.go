package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt64 reads an integer environment variable, returning fallback when unset.
func GetEnvInt64(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectName builds a collision-free object name under prefix from a
// user-supplied filename: "<prefix>/<uuid>-<sanitized name>".
func ObjectName(prefix, suggestedName string) string {
	base := path.Base(strings.ReplaceAll(suggestedName, `\`, "/"))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "._")
	const maxLength = 100
	if len(base) > maxLength {
		base = base[len(base)-maxLength:]
	}
	name := uuid.NewString()
	if base != "" {
		name += "-" + base
	}
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		name = prefix + "/" + name
	}
	return name
}

const maxUploadRetries = 4

// uploadBackoff is the wait before the first retry; it doubles on each attempt.
var uploadBackoff = 1 * time.Second

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already
// exist, retrying transient failures with exponential backoff.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content []byte) error {
	return withRetry(ctx, objectName, func() error {
		writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
		defer cancel()

		writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
		writer.ContentType = contentType

		if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write to GCS: %w", err)
		}

		if err := writer.Close(); err != nil {
			// A previous attempt may have landed before its response was lost.
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
				slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
				return nil
			}
			return fmt.Errorf("failed to finalize GCS write: %w", err)
		}
		return nil
	})
}

func withRetry(ctx context.Context, objectName string, upload func() error) error {
	backoff := uploadBackoff
	var lastErr error

	for i := 0; i < maxUploadRetries; i++ {
		err := upload()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxUploadRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		if i == maxUploadRetries-1 {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", objectName, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", objectName, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

// ReadGCSObject reads at most limit bytes of an object. Callers that need to
// detect oversized objects pass their size limit plus one.
func ReadGCSObject(ctx context.Context, client *storage.Client, bucket, object string, limit int64) ([]byte, error) {
	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}
