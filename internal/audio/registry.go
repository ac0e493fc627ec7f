package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many header bytes are handed to mimetype.
const sniffLen = 512

// sniffedFormats maps content types to decoder format names. mimetype
// matches aliases such as audio/x-wav as well.
var sniffedFormats = []struct {
	mime   string
	format string
}{
	{"audio/wav", "WAV"},
	{"audio/mpeg", "MP3"},
	{"audio/aiff", "AIFF"},
}

// DecoderRegistry picks a decoder for a file by content, then by extension.
type DecoderRegistry struct {
	decoders []Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{}
}

// NewDefaultRegistry knows WAV, MP3 and AIFF.
func NewDefaultRegistry() *DecoderRegistry {
	r := NewDecoderRegistry()
	for _, d := range []Decoder{NewWavDecoder(), NewMp3Decoder(), NewAiffDecoder()} {
		r.Register(d)
	}
	return r
}

// Register adds a decoder. Earlier registrations win extension ties.
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		return
	}
	r.decoders = append(r.decoders, decoder)
	slog.Debug("decoder registered", "format", decoder.FormatName())
}

// SupportedFormats returns the registered format names in priority order.
func (r *DecoderRegistry) SupportedFormats() []string {
	names := make([]string, len(r.decoders))
	for i, d := range r.decoders {
		names[i] = d.FormatName()
	}
	return names
}

// DetectFormat finds a decoder by filename extension.
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	for _, d := range r.decoders {
		if d.CanDecode(filename) {
			return d
		}
	}
	return nil
}

func (r *DecoderRegistry) byName(name string) Decoder {
	for _, d := range r.decoders {
		if strings.EqualFold(d.FormatName(), name) {
			return d
		}
	}
	return nil
}

// sniff returns the decoder for header's content type, if one is registered.
func (r *DecoderRegistry) sniff(header []byte) (Decoder, string) {
	mtype := mimetype.Detect(header)
	for _, f := range sniffedFormats {
		if mtype.Is(f.mime) {
			return r.byName(f.format), mtype.String()
		}
	}
	return nil, mtype.String()
}

// DetectFormatWithContent trusts the magic bytes over the extension, so a
// mislabeled file still decodes.
func (r *DecoderRegistry) DetectFormatWithContent(filename string, header []byte) Decoder {
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}
	if len(header) == 0 {
		return r.DetectFormat(filename)
	}

	d, mime := r.sniff(header)
	if d == nil {
		d = r.DetectFormat(filename)
	}
	slog.Debug("format detected", "filename", filename, "mime_type", mime, "found", d != nil)
	return d
}

// DecodeFile decodes everything read from reader.
func (r *DecoderRegistry) DecodeFile(filename string, reader io.Reader) (*PCM, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return r.DecodeBytes(filename, content)
}

// DecodeBytes decodes an in-memory file.
func (r *DecoderRegistry) DecodeBytes(filename string, content []byte) (*PCM, error) {
	decoder := r.DetectFormatWithContent(filename, content)
	if decoder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	pcm, err := decoder.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", filename, decoder.FormatName(), err)
	}
	slog.Debug("file decoded",
		"filename", filename,
		"format", decoder.FormatName(),
		"channels", pcm.Channels,
		"sample_rate", pcm.SampleRate,
		"duration", pcm.Duration())
	return pcm, nil
}
