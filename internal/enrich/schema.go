package enrich

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// reportSchema describes the expected reply. Every section may be null; the
// brief is text and the rest are objects.
const reportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": [
    "company_overview",
    "business_model",
    "products_services",
    "operational_footprint",
    "ai_ml_opportunity_map",
    "leadership",
    "strategic_developments",
    "strategic_outlook",
    "executive_brief"
  ],
  "properties": {
    "company_overview":       {"type": ["object", "null"]},
    "business_model":         {"type": ["object", "null"]},
    "products_services":      {"type": ["object", "null"]},
    "operational_footprint":  {"type": ["object", "null"]},
    "ai_ml_opportunity_map":  {"type": ["object", "null"]},
    "leadership":             {"type": ["object", "null"]},
    "strategic_developments": {"type": ["object", "null"]},
    "strategic_outlook":      {"type": ["object", "null"]},
    "executive_brief":        {"type": ["string", "null"]}
  }
}`

var reportSchemaLoader = gojsonschema.NewStringLoader(reportSchema)

// CheckReport lists the ways raw deviates from the report shape. An error is
// returned only when raw cannot be loaded as JSON.
func CheckReport(raw []byte) ([]string, error) {
	result, err := gojsonschema.Validate(reportSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		violations = append(violations, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return violations, nil
}
