package model

// KeyPerson is one leadership record.
type KeyPerson struct {
	Name         string `json:"name" yaml:"name"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	RoleCategory string `json:"role_category,omitempty" yaml:"role_category,omitempty"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty"`
	LinkedInURL  string `json:"linkedin_url,omitempty" yaml:"linkedin_url,omitempty"`
}

// Contact holds granular contact channels.
type Contact struct {
	Phone   string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email   string   `json:"email,omitempty" yaml:"email,omitempty"`
	Sales   string   `json:"sales,omitempty" yaml:"sales,omitempty"`
	Mobile  string   `json:"mobile,omitempty" yaml:"mobile,omitempty"`
	Fax     string   `json:"fax,omitempty" yaml:"fax,omitempty"`
	Other   []string `json:"other,omitempty" yaml:"other,omitempty"`
	Address string   `json:"address,omitempty" yaml:"address,omitempty"`
	Hours   string   `json:"hours,omitempty" yaml:"hours,omitempty"`
}

// Social holds social network profiles and press links.
type Social struct {
	LinkedIn  string   `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Twitter   string   `json:"twitter,omitempty" yaml:"twitter,omitempty"`
	Facebook  string   `json:"facebook,omitempty" yaml:"facebook,omitempty"`
	Instagram string   `json:"instagram,omitempty" yaml:"instagram,omitempty"`
	YouTube   string   `json:"youtube,omitempty" yaml:"youtube,omitempty"`
	Blog      string   `json:"blog,omitempty" yaml:"blog,omitempty"`
	Articles  []string `json:"articles,omitempty" yaml:"articles,omitempty"`
}

// Registration holds statutory identifiers.
type Registration struct {
	VATNumber          string `json:"vat_number,omitempty" yaml:"vat_number,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty" yaml:"registration_number,omitempty"`
	SICCode            string `json:"sic_code,omitempty" yaml:"sic_code,omitempty"`
	YearFounded        string `json:"year_founded,omitempty" yaml:"year_founded,omitempty"`
}

// GraphNode is a vertex of the company relationship graph.
type GraphNode struct {
	ID         string            `json:"id" yaml:"id"`
	Label      string            `json:"label" yaml:"label"`
	Type       string            `json:"type" yaml:"type"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// GraphEdge is a directed relationship between two nodes.
type GraphEdge struct {
	Source   string `json:"source" yaml:"source"`
	Target   string `json:"target" yaml:"target"`
	Relation string `json:"relation" yaml:"relation"`
}

// FieldResult records how a field's research ended.
type FieldResult struct {
	Attempts int  `json:"attempts" yaml:"attempts"`
	Accepted bool `json:"accepted" yaml:"accepted"`
}

// CompanyProfile is the assembled research dossier for one company.
type CompanyProfile struct {
	Name             string       `json:"name" yaml:"name"`
	Domain           string       `json:"domain" yaml:"domain"`
	LogoURL          string       `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	DescriptionShort string       `json:"description_short,omitempty" yaml:"description_short,omitempty"`
	DescriptionLong  string       `json:"description_long,omitempty" yaml:"description_long,omitempty"`
	Industry         string       `json:"industry,omitempty" yaml:"industry,omitempty"`
	SubIndustry      string       `json:"sub_industry,omitempty" yaml:"sub_industry,omitempty"`
	Sector           string       `json:"sector,omitempty" yaml:"sector,omitempty"`
	Tags             []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	ProductsServices []string     `json:"products_services,omitempty" yaml:"products_services,omitempty"`
	ServiceType      string       `json:"service_type,omitempty" yaml:"service_type,omitempty"`
	Locations        []string     `json:"locations,omitempty" yaml:"locations,omitempty"`
	HQIndicator      string       `json:"hq_indicator,omitempty" yaml:"hq_indicator,omitempty"`
	KeyPeople        []KeyPerson  `json:"key_people,omitempty" yaml:"key_people,omitempty"`
	TechStack        []string     `json:"tech_stack,omitempty" yaml:"tech_stack,omitempty"`
	Contact          Contact      `json:"contact" yaml:"contact"`
	Social           Social       `json:"social" yaml:"social"`
	Registration     Registration `json:"registration" yaml:"registration"`
	Certifications   []string     `json:"certifications,omitempty" yaml:"certifications,omitempty"`

	GraphNodes []GraphNode `json:"graph_nodes" yaml:"graph_nodes"`
	GraphEdges []GraphEdge `json:"graph_edges" yaml:"graph_edges"`

	Fields map[FieldName]FieldResult `json:"fields,omitempty" yaml:"fields,omitempty"`
}
