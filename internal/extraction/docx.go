package extraction

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	docconv "code.sajari.com/docconv/v2"
)

const docxBodyPart = "word/document.xml"

// DOCXExtractor reads the body text of an Office Open XML word document.
type DOCXExtractor struct{}

// Extract returns the text of the document, one paragraph or line break per
// line with runs of spaces collapsed.
func (DOCXExtractor) Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = newError(KindDOCXParsing, "The Word document is damaged and could not be read.",
				fmt.Errorf("docx library panic: %v", r))
		}
	}()

	if err := checkDOCXPackage(data); err != nil {
		return "", err
	}

	raw, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", newError(KindDOCXParsing, "The Word document could not be read.", err)
	}
	return normalizeLines(raw), nil
}

// checkDOCXPackage rejects payloads that are not a zip or have no body part.
func checkDOCXPackage(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return newError(KindDOCXParsing, "The file is not a valid Word document.", err)
	}
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			return nil
		}
	}
	return newError(KindDOCXParsing, "The Word document has no body content.",
		fmt.Errorf("%s not found in archive", docxBodyPart))
}

func normalizeLines(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
