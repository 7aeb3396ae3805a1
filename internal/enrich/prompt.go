package enrich

import "strings"

// Prompt is one chat-style request.
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// SystemPrompt frames the model as an analyst.
const SystemPrompt = "You are a senior business analyst, market intelligence expert, and " +
	"AI strategy consultant. You generate concise, structured company " +
	"intelligence reports from limited web data."

const userTemplate = `
Company Name: <<COMPANY_NAME>>
Company Website: <<COMPANY_WEBSITE>>
Source Data (About Us and related content):
<<ABOUT_TEXT>>

You are an enterprise intelligence analyst.

Your task is to generate a structured 360° company intelligence report strictly in JSON format.

CRITICAL RULES:
- Return strictly valid JSON.
- Do NOT include markdown or explanations.
- All fields must be present exactly as defined.
- If information is explicitly stated in the source, use it.
- If not explicitly stated but can be reasonably inferred based on industry norms, business model patterns, or company type, provide a clearly reasoned inference.
- Only return null when no reasonable inference can be made.
- Do NOT fabricate specific executive names, funding amounts, acquisition details, or dated events.
- Strategic analysis and AI opportunity mapping may include expert inference.

Return a single JSON object with the following structure:

{
  "company_overview": {
    "summary":"string",
    "mission_positioning":"string",
    "target_customers_industries":"string",
    "geographic_presence":"string",
    "growth_stage":"string"
  },
  "business_model": {
    "core_model":"string",
    "monetization_strategy":"string",
    "pricing_model":"string",
    "revenue_streams_primary":"string",
    "revenue_streams_secondary":"string",
    "distribution_channels":"string",
    "key_cost_drivers":"string"
  },
  "products_services": {
    "core_offerings":"string",
    "supporting_services":"string",
    "technology_infrastructure":"string",
    "technology_data_layer":"string",
    "technology_ai_ml":"string",
    "technology_security":"string",
    "competitive_advantages":"string",
    "ecosystem_integrations":"string"
  },
  "operational_footprint": {
    "key_operational_areas":"string",
    "supply_chain_characteristics":"string",
    "partnerships_alliances":"string",
    "regulatory_environment":"string"
  },
  "ai_ml_opportunity_map": {
    "customer_experience":"string",
    "sales_marketing":"string",
    "operations":"string",
    "supply_chain":"string",
    "finance":"string",
    "risk_compliance":"string",
    "product_innovation":"string",
    "executive_decision_intelligence":"string"
  },
  "leadership": {
    "executives":"string"
  },
  "strategic_developments": {
    "recent_news":"string",
    "partnerships": null,
    "acquisitions":"string",
    "funding": null,
    "product_launches": null,
    "strategic_initiatives":"string",
    "market_expansion": null,
    "regulatory_developments": null
  },
  "strategic_outlook": {
    "near_term_priorities":"string",
    "key_risks":"string",
    "growth_opportunities":"string",
    "ai_transformation_readiness":"string",
    "overall_assessment":"string"
  },
  "executive_brief":"string"
}
`

// BuildPrompt fills the report template. Values are inserted verbatim in a
// single pass.
func BuildPrompt(name, website, about string, temperature float32) Prompt {
	user := strings.NewReplacer(
		"<<COMPANY_NAME>>", name,
		"<<COMPANY_WEBSITE>>", website,
		"<<ABOUT_TEXT>>", about,
	).Replace(userTemplate)
	return Prompt{System: SystemPrompt, User: user, Temperature: temperature}
}
