package profile

import (
	"unicode/utf8"

	"github.com/sells-group/atlas/internal/model"
)

// ShortDescriptionLen is the rune length of the short description.
const ShortDescriptionLen = 200

// Apply copies a researched value into the matching profile fields. Values
// whose shape does not match what the field expects are ignored.
func Apply(p *model.CompanyProfile, field model.FieldName, v model.Value) {
	switch field {
	case model.FieldDescription:
		if v.Kind == model.KindText && v.Text != "" {
			p.DescriptionLong = v.Text
			p.DescriptionShort = shortDescription(v.Text)
		}
	case model.FieldIndustryDetails:
		if v.Kind == model.KindObject {
			p.Industry = v.Get("industry").String()
			p.SubIndustry = v.Get("sub_industry").String()
			p.Sector = v.Get("sector").String()
			p.Tags = v.Get("tags").StringList()
		}
	case model.FieldProductsServices:
		switch v.Kind {
		case model.KindObject:
			p.ServiceType = v.Get("type").String()
			p.ProductsServices = append(p.ProductsServices, v.Get("data").StringList()...)
		case model.KindList:
			p.ProductsServices = v.StringList()
		}
	case model.FieldLocations:
		if v.Kind == model.KindList {
			p.Locations = v.StringList()
		}
	case model.FieldHQIndicator:
		if v.Kind == model.KindText {
			p.HQIndicator = v.Text
		}
	case model.FieldKeyPeople:
		if v.Kind == model.KindList {
			for _, item := range v.List {
				if person, ok := keyPerson(item); ok {
					p.KeyPeople = append(p.KeyPeople, person)
				}
			}
		}
	case model.FieldTechStack:
		if v.Kind == model.KindList {
			p.TechStack = v.StringList()
		}
	case model.FieldContactGranular:
		if v.Kind == model.KindObject {
			p.Contact = model.Contact{
				Phone:   v.Get("phone").String(),
				Email:   v.Get("email").String(),
				Sales:   v.Get("sales").String(),
				Mobile:  v.Get("mobile").String(),
				Fax:     v.Get("fax").String(),
				Other:   v.Get("other").StringList(),
				Address: v.Get("address").String(),
				Hours:   v.Get("hours").String(),
			}
		}
	case model.FieldSocialMedia:
		if v.Kind == model.KindObject {
			p.Social = model.Social{
				LinkedIn:  v.Get("linkedin").String(),
				Twitter:   v.Get("twitter").String(),
				Facebook:  v.Get("facebook").String(),
				Instagram: v.Get("instagram").String(),
				YouTube:   v.Get("youtube").String(),
				Blog:      v.Get("blog").String(),
				Articles:  v.Get("articles").StringList(),
			}
		}
	case model.FieldRegistrationDetails:
		if v.Kind == model.KindObject {
			p.Registration = model.Registration{
				VATNumber:          v.Get("vat_number").String(),
				RegistrationNumber: v.Get("registration_number").String(),
				SICCode:            v.Get("sic_code").String(),
				YearFounded:        v.Get("year_founded").String(),
			}
		}
	case model.FieldCertifications:
		if v.Kind == model.KindList {
			p.Certifications = v.StringList()
		}
	}
}

func shortDescription(s string) string {
	if utf8.RuneCountInString(s) <= ShortDescriptionLen {
		return s + "..."
	}
	return string([]rune(s)[:ShortDescriptionLen]) + "..."
}

func keyPerson(v model.Value) (model.KeyPerson, bool) {
	if v.Kind != model.KindObject {
		return model.KeyPerson{}, false
	}
	person := model.KeyPerson{
		Name:         v.Get("name").String(),
		Title:        v.Get("title").String(),
		RoleCategory: v.Get("role_category").String(),
		Email:        v.Get("email").String(),
		LinkedInURL:  v.Get("linkedin_url").String(),
	}
	return person, person.Name != ""
}
