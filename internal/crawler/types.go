// Package crawler defines core types shared across subsystems.
package crawler

import (
	"encoding/json"
	"fmt"
)

// CompanyTarget is one input row: a company and the site to crawl.
type CompanyTarget struct {
	Name string `json:"company_name" validate:"required"`
	URL  string `json:"website" validate:"required,http_url"`
}

// Anchor is a link as rendered on a page.
type Anchor struct {
	Href string
	Text string
}

// CandidateLink is a same-site link ranked for traversal.
type CandidateLink struct {
	URL   string `json:"url"`
	Score int    `json:"score"`
}

// FieldKind tags the variant held by a Field.
type FieldKind int

// Field variants.
const (
	FieldNull FieldKind = iota
	FieldScalar
	FieldStructured
)

// Field is a single enrichment section value: null, a scalar rendered as
// text, or a nested structure serialized as compact JSON.
type Field struct {
	Kind  FieldKind
	Value string
}

// NullField returns the null variant.
func NullField() Field { return Field{Kind: FieldNull} }

// ScalarField wraps a scalar value.
func ScalarField(v string) Field { return Field{Kind: FieldScalar, Value: v} }

// StructuredField wraps a serialized nested structure.
func StructuredField(serialized string) Field {
	return Field{Kind: FieldStructured, Value: serialized}
}

// IsNull reports whether the field holds no value.
func (f Field) IsNull() bool { return f.Kind == FieldNull }

// String renders the cell text; null renders empty.
func (f Field) String() string {
	if f.IsNull() {
		return ""
	}
	return f.Value
}

// MarshalJSON emits null or the textual value.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.IsNull() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON accepts null or a string. Strings that look like JSON
// containers are tagged as structured.
func (f *Field) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = NullField()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode field: %w", err)
	}
	if len(s) > 0 && (s[0] == '{' || s[0] == '[') && json.Valid([]byte(s)) {
		*f = StructuredField(s)
		return nil
	}
	*f = ScalarField(s)
	return nil
}

// SectionKeys lists the enrichment report sections in output order.
var SectionKeys = []string{
	"company_overview",
	"business_model",
	"products_services",
	"operational_footprint",
	"ai_ml_opportunity_map",
	"leadership",
	"strategic_developments",
	"strategic_outlook",
	"executive_brief",
}

// Enrichment holds the nine report sections attached to a result.
type Enrichment struct {
	CompanyOverview       Field `json:"company_overview"`
	BusinessModel         Field `json:"business_model"`
	ProductsServices      Field `json:"products_services"`
	OperationalFootprint  Field `json:"operational_footprint"`
	AIMLOpportunityMap    Field `json:"ai_ml_opportunity_map"`
	Leadership            Field `json:"leadership"`
	StrategicDevelopments Field `json:"strategic_developments"`
	StrategicOutlook      Field `json:"strategic_outlook"`
	ExecutiveBrief        Field `json:"executive_brief"`
}

// Fields returns pointers to the sections in SectionKeys order.
func (e *Enrichment) Fields() []*Field {
	return []*Field{
		&e.CompanyOverview,
		&e.BusinessModel,
		&e.ProductsServices,
		&e.OperationalFootprint,
		&e.AIMLOpportunityMap,
		&e.Leadership,
		&e.StrategicDevelopments,
		&e.StrategicOutlook,
		&e.ExecutiveBrief,
	}
}

// IsEmpty reports whether every section is null.
func (e Enrichment) IsEmpty() bool {
	for _, f := range e.Fields() {
		if !f.IsNull() {
			return false
		}
	}
	return true
}

// CompanyResult is the accumulated output for one target.
type CompanyResult struct {
	Name        string  `json:"Company Name"`
	Website     string  `json:"Website"`
	FoundedInfo *string `json:"Founded Info"`
	AboutUs     *string `json:"About Us"`
	Enrichment
	Email *string `json:"Email"`
}

// NewResult seeds a result with the target identity and every other field null.
func NewResult(target CompanyTarget) CompanyResult {
	return CompanyResult{Name: target.Name, Website: target.URL}
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (r CompanyResult) Clone() CompanyResult {
	cp := r
	cp.FoundedInfo = cloneString(r.FoundedInfo)
	cp.AboutUs = cloneString(r.AboutUs)
	cp.Email = cloneString(r.Email)
	return cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
