package chunker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hyperjump/medrag/internal/models"
)

// ParseRawDocument decodes a raw document: a JSON object of categories, each an object of
// subsection name to text. Key order is preserved. A repeated key keeps its first position
// and takes its last value. Any other shape yields a *models.MalformedInputError.
func ParseRawDocument(data []byte) (*models.RawDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{', "document is not an object"); err != nil {
		return nil, err
	}
	doc := &models.RawDocument{}
	positions := make(map[string]int)
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		subsections, err := readCategory(dec, name)
		if err != nil {
			return nil, err
		}
		if i, ok := positions[name]; ok {
			doc.Categories[i].Subsections = subsections
			continue
		}
		positions[name] = len(doc.Categories)
		doc.Categories = append(doc.Categories, models.Category{Name: name, Subsections: subsections})
	}
	if err := expectDelim(dec, '}', "unterminated document"); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &models.MalformedInputError{Reason: "trailing data after document"}
	}
	return doc, nil
}

func readCategory(dec *json.Decoder, category string) ([]models.Subsection, error) {
	if err := expectDelim(dec, '{', fmt.Sprintf("category %q is not an object", category)); err != nil {
		return nil, err
	}
	var subsections []models.Subsection
	positions := make(map[string]int)
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("invalid JSON", err)
		}
		text, ok := tok.(string)
		if !ok {
			return nil, &models.MalformedInputError{Reason: fmt.Sprintf("subsection %q of category %q is not a string", name, category)}
		}
		if i, ok := positions[name]; ok {
			subsections[i].Text = text
			continue
		}
		positions[name] = len(subsections)
		subsections = append(subsections, models.Subsection{Name: name, Text: text})
	}
	if err := expectDelim(dec, '}', fmt.Sprintf("unterminated category %q", category)); err != nil {
		return nil, err
	}
	return subsections, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", malformed("invalid JSON", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", &models.MalformedInputError{Reason: "expected object key"}
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim, reason string) error {
	tok, err := dec.Token()
	if err != nil {
		return malformed(reason, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &models.MalformedInputError{Reason: reason}
	}
	return nil
}

func malformed(reason string, err error) error {
	return &models.MalformedInputError{Reason: reason, Err: err}
}
