// Package store persists the hot-jobs State. Every backend writes the whole
// state at once so categories never end up from different runs.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"job-digest/internal/models"
)

// Encode renders the state as indented JSON. Map keys are sorted by
// encoding/json, so decoding and re-encoding an unchanged state gives the
// same bytes.
func Encode(st *models.State) ([]byte, error) {
	out := *st
	if out.Shortlists == nil {
		out.Shortlists = map[string][]models.Listing{}
	}
	if out.Blocklist == nil {
		out.Blocklist = []models.BlockEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*models.State, error) {
	st := models.NewState()
	if len(bytes.TrimSpace(data)) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	if st.Shortlists == nil {
		st.Shortlists = map[string][]models.Listing{}
	}
	if st.Blocklist == nil {
		st.Blocklist = []models.BlockEntry{}
	}
	return st, nil
}
