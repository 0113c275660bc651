package audio

import (
	"bytes"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for streams no decoder understands.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format identifies a container/codec pair.
type Format string

const (
	FormatMP3    Format = "mp3"
	FormatFLAC   Format = "flac"
	FormatWAV    Format = "wav"
	FormatVorbis Format = "vorbis"
)

var mediaTypes = map[string]Format{
	"audio/mpeg":      FormatMP3,
	"audio/mp3":       FormatMP3,
	"audio/flac":      FormatFLAC,
	"audio/x-flac":    FormatFLAC,
	"audio/wav":       FormatWAV,
	"audio/wave":      FormatWAV,
	"audio/x-wav":     FormatWAV,
	"audio/vnd.wave":  FormatWAV,
	"audio/ogg":       FormatVorbis,
	"audio/vorbis":    FormatVorbis,
	"application/ogg": FormatVorbis,
}

var extensions = map[string]Format{
	".mp3":  FormatMP3,
	".flac": FormatFLAC,
	".wav":  FormatWAV,
	".ogg":  FormatVorbis,
	".oga":  FormatVorbis,
}

// DetectFormat picks a decoder from the Content-Type, falling back to the
// URL's file extension when the type is missing or generic.
func DetectFormat(contentType, streamURL string) (Format, error) {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if f, ok := mediaTypes[strings.ToLower(mediaType)]; ok {
				return f, nil
			}
		}
	}

	if u, err := url.Parse(streamURL); err == nil {
		if f, ok := extensions[strings.ToLower(path.Ext(u.Path))]; ok {
			return f, nil
		}
	}

	return "", errors.Wrapf(ErrUnsupportedFormat, "content-type %q, url %s", contentType, streamURL)
}

// readSeekNopCloser keeps Seek visible to decoders that take an io.ReadCloser.
type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// decode decodes an in-memory stream.
func decode(format Format, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := readSeekNopCloser{bytes.NewReader(data)}

	var (
		streamer beep.StreamSeekCloser
		bf       beep.Format
		err      error
	)
	switch format {
	case FormatMP3:
		streamer, bf, err = mp3.Decode(r)
	case FormatFLAC:
		streamer, bf, err = flac.Decode(r)
	case FormatWAV:
		streamer, bf, err = wav.Decode(r)
	case FormatVorbis:
		streamer, bf, err = vorbis.Decode(r)
	default:
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "%s", format)
	}
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", format)
	}
	return streamer, bf, nil
}
