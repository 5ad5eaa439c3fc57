package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DOCX is a ZIP package whose main body normally lives at word/document.xml.
const docxMainPartPath = "word/document.xml"

// textRunRe matches <w:t>text</w:t> including variants with attributes such as
// <w:t xml:space="preserve">.
var textRunRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX extracts text from .docx bytes by reading the main document part
// and concatenating all <w:t> text-run nodes, so content survives regardless of
// paragraph or run attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docXML, err := readZipPart(zr, docxMainPartPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	runs := textRunRe.FindAllStringSubmatch(string(docXML), -1)
	if len(runs) == 0 {
		return "", nil
	}
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(r[1]))
	}
	return strings.TrimSpace(b.String()), nil
}

// readZipPart returns the contents of the named file inside the archive.
func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
