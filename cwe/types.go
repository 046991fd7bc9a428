// Package cwe describes the weaknesses pysec reports, after
// http://cwe.mitre.org/data/xsd/cwe_schema_v6.4.xsd
package cwe

import (
	"encoding/json"
	"fmt"
)

const (
	// URL is the base URL for CWE definitions
	URL = "https://cwe.mitre.org/data/definitions/%s.html"
	// Acronym is the acronym of CWE
	Acronym = "CWE"
)

// Weakness defines a CWE weakness
type Weakness struct {
	ID          string
	Name        string
	Description string
}

// SprintURL format the CWE URL
func (w *Weakness) SprintURL() string {
	return fmt.Sprintf(URL, w.ID)
}

// SprintID format the CWE ID
func (w *Weakness) SprintID() string {
	id := "0000"
	if w != nil {
		id = w.ID
	}
	return fmt.Sprintf("%s-%s", Acronym, id)
}

// MarshalJSON print only id and URL
func (w *Weakness) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}{
		ID:  w.ID,
		URL: w.SprintURL(),
	})
}

// MarshalYAML print only id and URL
func (w *Weakness) MarshalYAML() (interface{}, error) {
	return map[string]string{"id": w.ID, "url": w.SprintURL()}, nil
}
