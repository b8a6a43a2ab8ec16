// Package extract turns gathered evidence into an extraction instruction
// and reads the field value back out of the extraction service's JSON.
package extract

import "github.com/sells-group/atlas/internal/model"

var schemaHints = map[model.FieldName]string{
	model.FieldKeyPeople:           `Return JSON: { "data": [ {"name": "Name", "title": "Title", "role_category": "Management", "email": "email", "linkedin_url": ""} ] }`,
	model.FieldLocations:           `Return JSON: { "data": ["Location 1", "Location 2"] }`,
	model.FieldProductsServices:    `Return JSON: { "data": ["Product 1", "Product 2"], "type": "Service/Product Type" }`,
	model.FieldTechStack:           `Return JSON: { "data": ["Tech 1", "Tech 2"] }`,
	model.FieldSocialMedia:         `Return JSON: { "data": {"linkedin": "url", "twitter": "url", "facebook": "url", "instagram": "url", "youtube": "url", "blog": "url", "articles": ["article1"]} }`,
	model.FieldRegistrationDetails: `Return JSON: { "data": {"vat_number": "number", "registration_number": "number", "sic_code": "code", "year_founded": "year"} }`,
	model.FieldCertifications:      `Return JSON: { "data": ["ISO 27001", "GDPR"] }`,
	model.FieldContactGranular:     `Return JSON: { "data": {"phone": "main", "sales": "sales_num", "mobile": "mobile_num", "fax": "fax_num", "other": ["num1"], "email": "email", "address": "full address", "hours": "9am-5pm"} }`,
	model.FieldIndustryDetails:     `Return JSON: { "data": {"industry": "Industry", "sub_industry": "Sub", "sector": "Sector", "tags": ["tag1", "tag2"]} }`,
	model.FieldHQIndicator:         `Return JSON: { "data": "Yes/No or Location Name" }`,
}

const defaultSchemaHint = `Return JSON: { "data": "extracted text string" }`

// SchemaHint returns the JSON shape the extraction service must produce for
// field. Fields without a dedicated shape expect free text.
func SchemaHint(field model.FieldName) string {
	if hint, ok := schemaHints[field]; ok {
		return hint
	}
	return defaultSchemaHint
}
