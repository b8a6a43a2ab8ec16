package model

// FieldName identifies one independently researched attribute of a company profile.
type FieldName string

const (
	FieldDescription         FieldName = "description"
	FieldIndustryDetails     FieldName = "industry_details"
	FieldProductsServices    FieldName = "products_services"
	FieldLocations           FieldName = "locations"
	FieldHQIndicator         FieldName = "hq_indicator"
	FieldKeyPeople           FieldName = "key_people"
	FieldTechStack           FieldName = "tech_stack"
	FieldContactGranular     FieldName = "contact_granular"
	FieldSocialMedia         FieldName = "social_media"
	FieldRegistrationDetails FieldName = "registration_details"
	FieldCertifications      FieldName = "certifications"
)

// fieldDescriptions holds the search description used when a field is
// researched as part of a full profile.
var fieldDescriptions = map[FieldName]string{
	FieldDescription:         "company overview mission acronym",
	FieldIndustryDetails:     "industry sub-industry sector tags",
	FieldProductsServices:    "products services list type of offering",
	FieldLocations:           "locations offices headquarters indicator",
	FieldHQIndicator:         "headquarters address indicator",
	FieldKeyPeople:           "leadership executives email",
	FieldTechStack:           "technology stack software tools used",
	FieldContactGranular:     "contact phone mobile sales support fax hours email",
	FieldSocialMedia:         "social media profiles articles blog",
	FieldRegistrationDetails: "company registration number VAT SIC code year founded",
	FieldCertifications:      "certifications compliance ISO accreditations",
}

// KnownFields returns every researchable field in profile research order.
func KnownFields() []FieldName {
	return []FieldName{
		FieldDescription,
		FieldIndustryDetails,
		FieldProductsServices,
		FieldLocations,
		FieldHQIndicator,
		FieldKeyPeople,
		FieldTechStack,
		FieldContactGranular,
		FieldSocialMedia,
		FieldRegistrationDetails,
		FieldCertifications,
	}
}

// IsKnown reports whether f is one of the fields with a dedicated schema.
func (f FieldName) IsKnown() bool {
	_, ok := fieldDescriptions[f]
	return ok
}

// DefaultDescription returns the search description for f, or the field name
// itself with underscores preserved for unknown fields.
func (f FieldName) DefaultDescription() string {
	if d, ok := fieldDescriptions[f]; ok {
		return d
	}
	return string(f)
}

func (f FieldName) String() string { return string(f) }

// FieldRequest is the immutable input of one field-research call.
type FieldRequest struct {
	Company     string    `json:"company"`
	Field       FieldName `json:"field"`
	Description string    `json:"description"`
}
