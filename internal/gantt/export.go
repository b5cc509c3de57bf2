package gantt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/joshharrison/critpath/internal/graph"
)

const exportSchemaURL = "gantt-export.schema.json"

// exportSchema describes the document written by the application's
// "export data" action. Ids, durations and link types show up both as
// strings and as numbers depending on which version wrote the file.
const exportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": ["string", "integer"]},
          "text": {"type": "string"},
          "duration": {
            "oneOf": [
              {"type": "number", "minimum": 0},
              {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$"},
              {"type": "null"}
            ]
          },
          "view": {"type": ["string", "null"]}
        }
      }
    },
    "links": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "id": {"type": ["string", "integer"]},
          "source": {"type": ["string", "integer"]},
          "target": {"type": ["string", "integer"]},
          "type": {"enum": ["0", "1", "2", "3", 0, 1, 2, 3]}
        }
      }
    },
    "config": {"type": "object"}
  }
}`

// SchemaError reports where an export document breaks the expected shape.
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid export: " + e.Message
	}
	return fmt.Sprintf("invalid export at %s: %s", e.Path, e.Message)
}

var (
	exportSchemaOnce sync.Once
	exportSchemaC    *jsonschema.Schema
	exportSchemaErr  error
)

func exportSchemaValidator() (*jsonschema.Schema, error) {
	exportSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(exportSchemaURL, strings.NewReader(exportSchema)); err != nil {
			exportSchemaErr = fmt.Errorf("add export schema: %w", err)
			return
		}
		exportSchemaC, exportSchemaErr = compiler.Compile(exportSchemaURL)
		if exportSchemaErr != nil {
			exportSchemaErr = fmt.Errorf("compile export schema: %w", exportSchemaErr)
		}
	})
	return exportSchemaC, exportSchemaErr
}

// ParseExport reads a Gantt JSON export ({"tasks": [...], "links": [...], "config": {...}}).
// Fields the engine does not need are kept on the records but never required.
func ParseExport(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, &SchemaError{Message: "not valid JSON"}
	}
	if err := validateExport(data); err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(data)
	snap := &Snapshot{}

	for i, t := range doc.Get("tasks").Array() {
		duration, err := parseDuration(t.Get("duration"))
		if err != nil {
			return nil, &SchemaError{Path: fmt.Sprintf("/tasks/%d/duration", i), Message: err.Error()}
		}
		snap.Tasks = append(snap.Tasks, TaskRecord{
			ID:          t.Get("id").String(),
			Text:        t.Get("text").String(),
			Type:        t.Get("type").String(),
			Parent:      t.Get("parent").String(),
			StartDate:   t.Get("start_date").String(),
			EndDate:     t.Get("end_date").String(),
			Duration:    duration,
			Progress:    t.Get("progress").Float(),
			Status:      t.Get("status").String(),
			Owner:       t.Get("owner").String(),
			Phase:       t.Get("phase").String(),
			Priority:    t.Get("priority").String(),
			IsMilestone: t.Get("is_milestone").Bool(),
			View:        t.Get("view").String(),
		})
	}

	for _, l := range doc.Get("links").Array() {
		typ := l.Get("type").String()
		if typ == "" {
			typ = "0"
		}
		snap.Links = append(snap.Links, LinkRecord{
			ID:     l.Get("id").String(),
			Source: l.Get("source").String(),
			Target: l.Get("target").String(),
			Type:   typ,
		})
	}

	return snap, nil
}

// parseDuration reads a day count written as a number or a numeric string.
// Fractional days round up. Missing and null read as 0.
func parseDuration(v gjson.Result) (int, error) {
	switch v.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number, gjson.String:
	default:
		return 0, fmt.Errorf("duration must be a number, got %s", v.Raw)
	}

	days, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil || math.IsNaN(days) {
		return 0, fmt.Errorf("duration %s is not a number", v.Raw)
	}
	days = math.Ceil(days)
	if days < 0 || days > graph.MaxDuration {
		return 0, fmt.Errorf("duration %s out of range [0, %d]", v.Raw, graph.MaxDuration)
	}
	return int(days), nil
}

func validateExport(data []byte) error {
	schema, err := exportSchemaValidator()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return &SchemaError{Message: err.Error()}
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return firstSchemaError(ve)
		}
		return &SchemaError{Message: err.Error()}
	}
	return nil
}

// firstSchemaError descends to the first leaf cause, which names the
// offending field rather than the enclosing object.
func firstSchemaError(ve *jsonschema.ValidationError) error {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &SchemaError{Path: ve.InstanceLocation, Message: ve.Message}
}
