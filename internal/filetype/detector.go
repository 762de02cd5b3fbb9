package filetype

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Info describes a sniffed upload.
type Info struct {
	MIMEType  string
	Extension string
	IsImage   bool
	IsPDF     bool
}

// Sniff classifies upload contents by magic bytes. Filenames are never
// trusted; a .png full of HTML is HTML.
func Sniff(data []byte) Info {
	mt := mimetype.Detect(data)
	return Info{
		MIMEType:  mt.String(),
		Extension: mt.Extension(),
		IsImage:   strings.HasPrefix(mt.String(), "image/"),
		IsPDF:     mt.Is("application/pdf"),
	}
}
