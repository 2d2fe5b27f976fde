package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed models.json
var modelsJSON []byte

// ModelCatalogEntry describes one selectable LLM backend.
type ModelCatalogEntry struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Catalog is the static model catalog loaded at startup.
type Catalog struct {
	DefaultModel string              `json:"default_model"`
	Models       []ModelCatalogEntry `json:"models"`

	byKey map[string]ModelCatalogEntry
}

// LoadCatalog parses the embedded model catalog.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(modelsJSON, &c); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if len(c.Models) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}
	c.byKey = make(map[string]ModelCatalogEntry, len(c.Models))
	for _, m := range c.Models {
		c.byKey[m.Key] = m
	}
	if _, ok := c.byKey[c.DefaultModel]; !ok {
		c.DefaultModel = c.Models[0].Key
	}
	return &c, nil
}

// Lookup returns the catalog entry for a model key.
func (c *Catalog) Lookup(key string) (ModelCatalogEntry, bool) {
	m, ok := c.byKey[key]
	return m, ok
}

// WellKnownPorts labels the ports the mock parser reports traffic on.
var WellKnownPorts = map[int]string{
	53:   "DNS",
	80:   "HTTP",
	123:  "NTP",
	443:  "TLS",
	5060: "SIP",
	5061: "SIP-TLS",
	8080: "HTTP-alt",
}

// RTPPortRange marks the even UDP ports the mock parser labels as RTP media.
var RTPPortRange = [2]int{16384, 32767}
