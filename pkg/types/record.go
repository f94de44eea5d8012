package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Required fields in the order they are checked. The first one missing is
// the one reported.
var (
	DocumentFields = []string{"name", "display_name", "base_url", "sections"}
	SectionFields  = []string{"title", "path", "url", "keywords", "use_cases", "tags", "priority", "content"}
)

// DocumentRecord is one documentation source as produced by ingestion.
type DocumentRecord struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Version     *string         `json:"version,omitempty"`
	BaseURL     string          `json:"base_url"`
	Sections    []SectionRecord `json:"sections"`
}

// SectionRecord is one retrievable unit of a document.
type SectionRecord struct {
	Title    string   `json:"title"`
	Path     string   `json:"path"`
	URL      string   `json:"url"`
	Keywords []string `json:"keywords"`
	UseCases []string `json:"use_cases"`
	Tags     []string `json:"tags"`
	Priority *int     `json:"priority"`
	Content  string   `json:"content"`
}

// Validate checks that every required field is present. A Go value cannot
// tell an absent string from an empty one, so strings always count as
// present: "content": "" is a valid heading-only section. Nil lists and a nil
// priority count as missing; an empty but non-nil list is present. Absent
// JSON keys are caught by ParseRecord before decoding.
func (r *DocumentRecord) Validate() error {
	if r == nil {
		return ErrNilRecord
	}
	if r.Sections == nil {
		return missingField("sections")
	}

	for i := range r.Sections {
		if err := r.Sections[i].validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (s *SectionRecord) validate(pos int) error {
	present := map[string]bool{
		"keywords":  s.Keywords != nil,
		"use_cases": s.UseCases != nil,
		"tags":      s.Tags != nil,
		"priority":  s.Priority != nil,
	}
	for _, f := range SectionFields {
		if ok, checked := present[f]; checked && !ok {
			return missingSectionField(f, pos)
		}
	}
	return nil
}

// ParseRecord decodes a JSON ingestion record. Field presence is checked on
// the raw object before decoding so that a missing field is reported by name
// even when its zero value would decode cleanly. A JSON null counts as
// missing.
func ParseRecord(data []byte) (*DocumentRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if raw == nil {
		return nil, ErrMalformedJSON
	}
	for _, f := range DocumentFields {
		if !hasValue(raw, f) {
			return nil, missingField(f)
		}
	}

	var sections []json.RawMessage
	if err := json.Unmarshal(raw["sections"], &sections); err != nil {
		return nil, fmt.Errorf("sections: %w", err)
	}
	for i, sec := range sections {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(sec, &fields); err != nil || fields == nil {
			return nil, fmt.Errorf("%w: section %d", ErrInvalidSection, i)
		}
		for _, f := range SectionFields {
			if !hasValue(fields, f) {
				return nil, missingSectionField(f, i)
			}
		}
	}

	var rec DocumentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func hasValue(obj map[string]json.RawMessage, key string) bool {
	v, ok := obj[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
