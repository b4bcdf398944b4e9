package specs

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Specification document types
const (
	FileTypeTXT  = "txt"
	FileTypeText = "text"
	FileTypeDOCX = "docx"
	FileTypePDF  = "pdf"
)

// ErrUnsupportedFileType is returned for documents that are not txt, docx or pdf
var ErrUnsupportedFileType = errors.New("unsupported file_type")

// FileTypeFromName maps an upload's extension to a document type.
// Anything that is not pdf or docx is read as text.
func FileTypeFromName(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case FileTypePDF:
		return FileTypePDF
	case FileTypeDOCX:
		return FileTypeDOCX
	default:
		return FileTypeTXT
	}
}

// ExtractText returns the plain text of a specification document
func ExtractText(data []byte, fileType string) (string, error) {
	switch fileType {
	case FileTypeTXT, FileTypeText:
		return strings.ToValidUTF8(string(data), ""), nil
	case FileTypeDOCX:
		return docxText(data)
	case FileTypePDF:
		return pdfText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileType)
	}
}

// docxText joins the paragraphs of word/document.xml with newlines.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("failed to open docx: word/document.xml missing")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open docx body: %w", err)
	}
	defer rc.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// pdfText joins the plain text of every page with newlines.
func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}
