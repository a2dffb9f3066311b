package delivery

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DownloadDelivery sends the document as a browser download.
type DownloadDelivery struct {
	w http.ResponseWriter
}

// NewDownloadDelivery creates a DownloadDelivery answering on w.
func NewDownloadDelivery(w http.ResponseWriter) *DownloadDelivery {
	return &DownloadDelivery{w: w}
}

// DeliverText writes content with an attachment disposition under suggestedName.
func (d *DownloadDelivery) DeliverText(ctx context.Context, content, suggestedName string) (Outcome, error) {
	d.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	d.w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": suggestedName}))
	d.w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(d.w, content); err != nil {
		return OutcomeCancelled, fmt.Errorf("failed to send download: %w", err)
	}
	return OutcomeDelivered, nil
}

// StreamDelivery writes the document to a plain stream, such as stdout.
type StreamDelivery struct {
	w io.Writer
}

// NewStreamDelivery creates a StreamDelivery writing to w.
func NewStreamDelivery(w io.Writer) *StreamDelivery {
	return &StreamDelivery{w: w}
}

func (d *StreamDelivery) DeliverText(ctx context.Context, content, suggestedName string) (Outcome, error) {
	if _, err := io.WriteString(d.w, content); err != nil {
		return OutcomeCancelled, err
	}
	return OutcomeDelivered, nil
}

// StreamAcquirer reads an import from a stream, such as an upload body or stdin.
type StreamAcquirer struct {
	r     io.Reader
	limit int64
}

// NewStreamAcquirer creates a StreamAcquirer reading at most limit bytes
// from r. A limit of zero or less means no limit.
func NewStreamAcquirer(r io.Reader, limit int64) *StreamAcquirer {
	return &StreamAcquirer{r: r, limit: limit}
}

func (a *StreamAcquirer) AcquireText(ctx context.Context) (string, error) {
	if a.r == nil {
		return "", ErrNoFileSelected
	}
	r := a.r
	if a.limit > 0 {
		r = io.LimitReader(r, a.limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	if a.limit > 0 && int64(len(data)) > a.limit {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrReadFailed, a.limit)
	}
	return string(data), nil
}

var _ Deliverer = (*DownloadDelivery)(nil)
var _ Deliverer = (*StreamDelivery)(nil)
var _ Acquirer = (*StreamAcquirer)(nil)
