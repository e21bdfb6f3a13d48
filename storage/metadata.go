package storage

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/twinj/uuid"

	"github.com/janelia-flyem/octview/chunks"
	"github.com/janelia-flyem/octview/octview"
)

// metaSchema validates dataset metadata documents before they are trusted
// to build octrees.
const metaSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["data_id", "base_shape", "tile_shape"],
	"properties": {
		"data_id": {"type": "string", "minLength": 1},
		"base_shape": {
			"type": "array",
			"items": {"type": "integer", "minimum": 1},
			"minItems": 2,
			"maxItems": 2
		},
		"tile_shape": {
			"type": "array",
			"items": {"type": "integer", "minimum": 1},
			"minItems": 2,
			"maxItems": 2
		}
	}
}`

var compiledMetaSchema = jsonschema.MustCompileString("dataset-meta.json", metaSchema)

// DatasetMeta describes one multiscale data source: the full resolution
// image shape and the tile shape used at every level.  Shapes are in
// (rows, cols) order.
type DatasetMeta struct {
	DataID    string `json:"data_id"`
	BaseShape [2]int `json:"base_shape"`
	TileShape [2]int `json:"tile_shape"`
}

// NewDatasetMeta fills in a generated data id.
func NewDatasetMeta(baseShape, tileShape octview.Shape2d) DatasetMeta {
	return DatasetMeta{
		DataID:    uuid.NewV4().String(),
		BaseShape: [2]int(baseShape),
		TileShape: [2]int(tileShape),
	}
}

// ID returns the data id typed for the chunk loading service.
func (m DatasetMeta) ID() chunks.DataID { return chunks.DataID(m.DataID) }

// Shapes returns the base and tile shapes as geometry values.
func (m DatasetMeta) Shapes() (base, tile octview.Shape2d) {
	return octview.Shape2d(m.BaseShape), octview.Shape2d(m.TileShape)
}

// MarshalDatasetMeta serializes metadata to its stored JSON form.
func MarshalDatasetMeta(m DatasetMeta) ([]byte, error) {
	return json.Marshal(m)
}

// LoadDatasetMeta parses and schema-validates a metadata document.
func LoadDatasetMeta(data []byte) (DatasetMeta, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return DatasetMeta{}, fmt.Errorf("metadata is not valid JSON: %v", err)
	}
	if err := compiledMetaSchema.Validate(doc); err != nil {
		return DatasetMeta{}, fmt.Errorf("metadata failed schema validation: %v", err)
	}
	var m DatasetMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return DatasetMeta{}, err
	}
	return m, nil
}
