package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/roomify/roomify_server/internal/dataurl"
)

// ContentReader reads a file into its encoded form without blocking the
// caller. done is called exactly once, from any goroutine, with either the
// encoded content or an error. Implementations may call done before Read
// returns.
type ContentReader interface {
	Read(ctx context.Context, f *File, done func(encoded string, err error))
}

// DataURLReader encodes the whole file as a base64 data url on its own
// goroutine.
type DataURLReader struct{}

func (DataURLReader) Read(ctx context.Context, f *File, done func(encoded string, err error)) {
	go func() {
		encoded, err := readDataURL(ctx, f)
		done(encoded, err)
	}()
}

func readDataURL(ctx context.Context, f *File) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("file %q has no content", f.Name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(&contextReader{ctx: ctx, r: rc})
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return dataurl.Encode(f.MediaType, data), nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
