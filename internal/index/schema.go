package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/types"
)

// codeFieldType tokenizes identifiers on case changes and delimiters
const codeFieldType = "text_code"

type schemaField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Indexed     bool   `json:"indexed"`
	Stored      bool   `json:"stored"`
	MultiValued bool   `json:"multiValued,omitempty"`
}

type copyField struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// solrFields mirrors the bleve mapping
func solrFields() []schemaField {
	var fields []schemaField
	for name, kind := range fieldKinds {
		if name == types.FieldID {
			continue // uniqueKey, always present
		}
		f := schemaField{Name: name, Indexed: !storedOnly[name], Stored: true}
		switch kind {
		case kindKeyword:
			f.Type = "string"
		case kindNumeric:
			f.Type = "pdouble"
		case kindBool:
			f.Type = "boolean"
		}
		fields = append(fields, f)
	}
	for _, name := range textFields {
		multi := name == types.FieldContextBefore || name == types.FieldContextAfter || name == types.FieldAITags
		fields = append(fields, schemaField{Name: name, Type: "text_general", Indexed: true, Stored: true, MultiValued: multi})
	}
	return append(fields,
		schemaField{Name: types.FieldDisplayContent, Type: "text_general", Indexed: true, Stored: true},
		schemaField{Name: types.FieldContentAll, Type: "text_general", Indexed: true, MultiValued: true},
		schemaField{Name: types.FieldCodeAll, Type: codeFieldType, Indexed: true, MultiValued: true},
	)
}

func solrCopyFields() []copyField {
	var out []copyField
	for _, src := range contentSources {
		out = append(out, copyField{Source: src, Dest: types.FieldContentAll})
	}
	for _, src := range codeSources {
		out = append(out, copyField{Source: src, Dest: types.FieldCodeAll})
	}
	return out
}

func codeFieldTypeDefinition() map[string]interface{} {
	return map[string]interface{}{
		"name":                 codeFieldType,
		"class":                "solr.TextField",
		"positionIncrementGap": "100",
		"analyzer": map[string]interface{}{
			"tokenizer": map[string]string{"class": "solr.WhitespaceTokenizerFactory"},
			"filters": []map[string]string{
				{
					"class":             "solr.WordDelimiterGraphFilterFactory",
					"generateWordParts": "1",
					"splitOnCaseChange": "1",
					"splitOnNumerics":   "1",
					"preserveOriginal":  "1",
				},
				{"class": "solr.LowerCaseFilterFactory"},
			},
		},
	}
}

// EnsureSchema adds the missing field type, fields and copy-fields through the Schema API
// Existing definitions are left untouched.
func (s *SolrClient) EnsureSchema(ctx context.Context) error {
	var existingTypes struct {
		FieldTypes []struct {
			Name string `json:"name"`
		} `json:"fieldTypes"`
	}
	if err := s.get(ctx, "/schema/fieldtypes", &existingTypes); err != nil {
		return fmt.Errorf("failed to read field types: %w", err)
	}
	var existingFields struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := s.get(ctx, "/schema/fields", &existingFields); err != nil {
		return fmt.Errorf("failed to read fields: %w", err)
	}
	var existingCopies struct {
		CopyFields []copyField `json:"copyFields"`
	}
	if err := s.get(ctx, "/schema/copyfields", &existingCopies); err != nil {
		return fmt.Errorf("failed to read copy fields: %w", err)
	}

	haveType := false
	for _, t := range existingTypes.FieldTypes {
		if t.Name == codeFieldType {
			haveType = true
		}
	}
	haveField := make(map[string]bool, len(existingFields.Fields))
	for _, f := range existingFields.Fields {
		haveField[f.Name] = true
	}
	haveCopy := make(map[copyField]bool, len(existingCopies.CopyFields))
	for _, c := range existingCopies.CopyFields {
		haveCopy[c] = true
	}

	commands := make(map[string]interface{})
	if !haveType {
		commands["add-field-type"] = codeFieldTypeDefinition()
	}
	var addFields []schemaField
	for _, f := range solrFields() {
		if !haveField[f.Name] {
			addFields = append(addFields, f)
		}
	}
	if len(addFields) > 0 {
		commands["add-field"] = addFields
	}
	var addCopies []copyField
	for _, c := range solrCopyFields() {
		if !haveCopy[c] {
			addCopies = append(addCopies, c)
		}
	}
	if len(addCopies) > 0 {
		commands["add-copy-field"] = addCopies
	}

	if len(commands) == 0 {
		logger.Debug("Solr schema of %s is up to date", s.core)
		return nil
	}

	body, err := json.Marshal(commands)
	if err != nil {
		return err
	}
	if err := s.postJSON(ctx, "/schema", body, nil); err != nil {
		return fmt.Errorf("failed to update schema: %w", err)
	}
	logger.Debug("Added %d fields and %d copy fields to %s", len(addFields), len(addCopies), s.core)
	return nil
}
