package processor

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DecodeSubtitle decodes raw subtitle bytes into text, detecting the
// encoding heuristically: byte-order marks first, then UTF-8 validity, then
// Windows-1256 (the common legacy encoding for Persian subtitle files).
// Undecodable bytes are replaced, never fatal.
func DecodeSubtitle(payload []byte) (text string, encodingName string) {
	switch {
	case bytes.HasPrefix(payload, []byte{0xEF, 0xBB, 0xBF}):
		return string(payload[3:]), "utf-8"
	case bytes.HasPrefix(payload, []byte{0xFF, 0xFE}):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), payload), "utf-16le"
	case bytes.HasPrefix(payload, []byte{0xFE, 0xFF}):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder(), payload), "utf-16be"
	case utf8.Valid(payload):
		return string(payload), "utf-8"
	default:
		return decodeWith(charmap.Windows1256.NewDecoder(), payload), "windows-1256"
	}
}

func decodeWith(decoder *encoding.Decoder, payload []byte) string {
	decoded, err := decoder.Bytes(payload)
	if err != nil {
		// Best effort: replace whatever the decoder choked on.
		return string(bytes.ToValidUTF8(payload, []byte("�")))
	}
	return string(decoded)
}
