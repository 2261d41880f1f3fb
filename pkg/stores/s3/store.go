package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
)

type objectWriter interface {
	Put(ctx context.Context, bucketName, objectKey string, body io.Reader, size int64, contentType string) error
}

/*
Store keeps exported Mermaid diagrams in a bucket, one object per board, frame
and diagram mode. Re-exporting overwrites the previous object.
*/
type Store struct {
	conn   objectWriter
	bucket string
}

func NewStore(conn objectWriter, bucket string) *Store {
	if bucket == "" {
		bucket = "diagrams"
	}

	return &Store{conn: conn, bucket: bucket}
}

/*
Open connects to the configured endpoint and makes sure the bucket exists. It
returns nil without error when export is disabled.
*/
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	conn, err := NewConn(cfg)

	if err != nil {
		return nil, err
	}

	store := NewStore(conn, cfg.Bucket)

	if err := conn.EnsureBucket(ctx, store.bucket, cfg.Region); err != nil {
		return nil, err
	}

	return store, nil
}

// Key is the object key a diagram is stored under.
func Key(boardID, frameID, mode string) string {
	return url.PathEscape(boardID) + "/" + url.PathEscape(frameID) + "-" + mode + ".mmd"
}

/*
Export uploads the diagram text and returns its s3:// location.
*/
func (store *Store) Export(ctx context.Context, boardID, frameID, mode, text string) (string, error) {
	if boardID == "" || frameID == "" || mode == "" {
		return "", fmt.Errorf("board, frame and mode are required to export a diagram")
	}

	key := Key(boardID, frameID, mode)

	if err := store.conn.Put(
		ctx, store.bucket, key, strings.NewReader(text), int64(len(text)), "text/vnd.mermaid",
	); err != nil {
		log.Error("failed to store diagram", "error", err, "key", key)
		return "", fmt.Errorf("failed to store diagram %s: %w", key, err)
	}

	return "s3://" + store.bucket + "/" + key, nil
}
