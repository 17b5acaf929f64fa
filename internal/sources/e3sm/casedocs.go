package e3sm

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
)

// parseEnvCase extracts the case group from env_case.xml.
func (p *Parser) parseEnvCase(path string) Metadata {
	return Metadata{
		"group_name": p.extractXMLEntry(path, "CASE_GROUP"),
	}
}

// parseEnvBuild extracts the compiler and MPI library from env_build.xml.
func (p *Parser) parseEnvBuild(path string) Metadata {
	return Metadata{
		"compiler": p.extractXMLEntry(path, "COMPILER"),
		"mpi_lib":  p.extractXMLEntry(path, "MPILIB"),
	}
}

// extractXMLEntry finds <entry id="X" value="..."/> or
// <entry id="X">text</entry>, preferring the value attribute. Malformed
// XML yields nil rather than an error.
func (p *Parser) extractXMLEntry(path, entryID string) *string {
	text, err := openText(path)
	if err != nil {
		p.log.Warn("failed to read case docs XML file", zap.String("path", path), zap.Error(err))
		return nil
	}

	decoder := xml.NewDecoder(strings.NewReader(text))
	for {
		token, err := decoder.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Warn("malformed case docs XML", zap.String("path", path), zap.Error(err))
			}
			return nil
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "entry" {
			continue
		}

		var id, value string
		var hasValue bool
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "id":
				id = attr.Value
			case "value":
				value = attr.Value
				hasValue = true
			}
		}
		if id != entryID {
			continue
		}

		if hasValue {
			return strptr(value)
		}

		var content struct {
			Text string `xml:",chardata"`
		}
		if err := decoder.DecodeElement(&content, &start); err != nil {
			p.log.Warn("malformed case docs XML", zap.String("path", path), zap.Error(err))
			return nil
		}
		if trimmed := strings.TrimSpace(content.Text); trimmed != "" {
			return strptr(trimmed)
		}
		return nil
	}
}
