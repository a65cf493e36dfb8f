package generation

import (
	"bytes"
	"io"
	"os"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
)

// ImageFormat reports jpeg, png or webp for recognised headers, else "".
func ImageFormat(header []byte) string {
	switch {
	case bytes.HasPrefix(header, jpegMagic):
		return "jpeg"
	case bytes.HasPrefix(header, pngMagic):
		return "png"
	case len(header) >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return "webp"
	default:
		return ""
	}
}

// IsMPEGAudio reports whether data starts with an ID3 tag or an MPEG frame sync.
func IsMPEGAudio(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func readHeader(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}
