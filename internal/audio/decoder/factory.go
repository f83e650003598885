package decoder

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
)

// Factory detects the container of an input stream and hands it to the
// matching decoder.
type Factory struct {
	decoders map[string]Decoder
}

// NewFactory creates a factory with all available decoders
func NewFactory() *Factory {
	f := &Factory{
		decoders: make(map[string]Decoder),
	}

	f.Register(&WAVDecoder{})
	f.Register(&AIFFDecoder{})
	f.Register(&MP3Decoder{})
	f.Register(&FLACDecoder{})
	f.Register(&OggDecoder{})

	return f
}

// Register registers a decoder under its name
func (f *Factory) Register(d Decoder) {
	f.decoders[strings.ToLower(d.Name())] = d
}

// Decode reads r completely and decodes it. name is only used for the
// extension fallback when the content has no recognisable signature.
func (f *Factory) Decode(name string, r io.Reader) (*Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewDecodeError("read input", err)
	}
	return f.DecodeBytes(name, data)
}

// DecodeFile opens and decodes a file
func (f *Factory) DecodeFile(path string) (*Decoded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewDecodeError("open "+filepath.Base(path), err)
	}
	return f.DecodeBytes(path, data)
}

// DecodeBytes decodes an in-memory stream.
func (f *Factory) DecodeBytes(name string, data []byte) (*Decoded, error) {
	format := f.Detect(name, data)
	d, ok := f.decoders[format]
	if !ok {
		return nil, domain.NewDecodeError(filepath.Base(name),
			fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format))
	}

	logger.Debug("Decoding audio",
		logger.String("name", filepath.Base(name)),
		logger.String("format", format),
		logger.Int("bytes", len(data)))

	rs := bytes.NewReader(data)
	meta := readMetadata(rs)
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, domain.NewDecodeError(format, err)
	}

	decoded, err := d.Decode(rs)
	if err != nil {
		if domain.IsDecodeError(err) {
			return nil, err
		}
		return nil, domain.NewDecodeError(format, err)
	}

	meta.Duration = decoded.Buffer.Duration()
	decoded.Metadata = meta

	return decoded, nil
}

// Detect returns the container name for data, looking at the signature first
// and the file extension second. It returns "" when neither matches.
func (f *Factory) Detect(name string, data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 12 && string(data[0:4]) == "FORM" &&
		(string(data[8:12]) == "AIFF" || string(data[8:12]) == "AIFC"):
		return "aiff"
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return "flac"
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return "ogg"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "wave":
		ext = "wav"
	case "aif", "aifc":
		ext = "aiff"
	case "oga":
		ext = "ogg"
	}
	if _, ok := f.decoders[ext]; ok {
		return ext
	}
	return ""
}

// SupportsFormat checks if a format is supported
func (f *Factory) SupportsFormat(format string) bool {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	_, exists := f.decoders[format]
	return exists
}

// SupportedFormats returns all supported formats, sorted
func (f *Factory) SupportedFormats() []string {
	formats := make([]string, 0, len(f.decoders))
	for format := range f.decoders {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// ExtensionForContentType maps a MIME type to a file extension, defaulting
// to "bin".
func ExtensionForContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/ogg", "application/ogg":
		return "ogg"
	case "audio/wav", "audio/wave", "audio/x-wav":
		return "wav"
	case "audio/aiff", "audio/x-aiff":
		return "aiff"
	case "audio/l16", "audio/pcm":
		return "pcm"
	default:
		return "bin"
	}
}

var defaultFactory = NewFactory()

// DecodeFile is a convenience function using the default factory
func DecodeFile(path string) (*Decoded, error) {
	return defaultFactory.DecodeFile(path)
}

// SupportsFile checks if a file extension is supported
func SupportsFile(path string) bool {
	return defaultFactory.SupportsFormat(filepath.Ext(path))
}
