// Package transfer reads and writes portable snapshots of the stores.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"pulse/internal/models"

	"gopkg.in/yaml.v3"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Document is one export: the logged-in user, if any, and every post.
type Document struct {
	ExportedAt time.Time     `json:"exportedAt" yaml:"exportedAt"`
	User       *models.User  `json:"user,omitempty" yaml:"user,omitempty"`
	Posts      []models.Post `json:"posts" yaml:"posts"`
}

// Encode writes doc to w.
func Encode(w io.Writer, doc Document, format Format) error {
	if doc.Posts == nil {
		doc.Posts = []models.Post{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", format)
}

// Decode reads a Document from r. A bare list of posts, the layout of the
// persisted posts snapshot, is accepted as well.
func Decode(r io.Reader, format Format) (Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}

	var doc Document
	var posts []models.Post
	switch format {
	case FormatJSON:
		trimmed := strings.TrimSpace(string(raw))
		if strings.HasPrefix(trimmed, "[") {
			err = json.Unmarshal(raw, &posts)
		} else {
			err = json.Unmarshal(raw, &doc)
		}
	case FormatYAML:
		var node yaml.Node
		if err = yaml.Unmarshal(raw, &node); err == nil && len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Decode(&posts)
		} else if err == nil {
			err = yaml.Unmarshal(raw, &doc)
		}
	default:
		return Document{}, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return Document{}, models.NewValidationError("malformed " + string(format) + " document: " + err.Error())
	}
	if posts != nil {
		doc.Posts = posts
	}
	if doc.Posts == nil {
		doc.Posts = []models.Post{}
	}
	return doc, nil
}
