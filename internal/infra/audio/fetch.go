package audio

import (
	"context"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
)

// ErrTooLarge is returned when a stream exceeds the configured size limit.
var ErrTooLarge = errors.New("stream too large")

// fetch downloads a whole stream into memory so it can be seeked.
func (b *Backend) fetch(ctx context.Context, streamURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create request")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to fetch stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Newf("stream returned status %d", resp.StatusCode)
	}

	if resp.ContentLength > b.maxBytes {
		return nil, "", errors.Wrapf(ErrTooLarge, "%s exceeds limit of %s",
			humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(b.maxBytes)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxBytes+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read stream")
	}
	if int64(len(data)) > b.maxBytes {
		return nil, "", errors.Wrapf(ErrTooLarge, "exceeds limit of %s", humanize.Bytes(uint64(b.maxBytes)))
	}

	return data, resp.Header.Get("Content-Type"), nil
}
