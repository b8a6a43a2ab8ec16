package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/atlas/internal/model"
)

// Sheet names of the XLSX dossier.
const (
	SheetOverview = "Overview"
	SheetPeople   = "Key People"
	SheetGraph    = "Graph"
	SheetFields   = "Research"
)

// WriteXLSX writes a spreadsheet dossier: an overview sheet of chapters, one
// row per key person, the relationship graph, and per-field research results.
func WriteXLSX(path string, p *model.CompanyProfile) error {
	f := xlsx.NewFile()

	overview, err := f.AddSheet(SheetOverview)
	if err != nil {
		return eris.Wrap(err, "report: add overview sheet")
	}
	addRow(overview, "Section", "Value")
	for _, ch := range Chapters(p) {
		addRow(overview, ch.Title, ch.Body)
	}

	people, err := f.AddSheet(SheetPeople)
	if err != nil {
		return eris.Wrap(err, "report: add people sheet")
	}
	addRow(people, "Name", "Title", "Role", "Email", "LinkedIn")
	for _, kp := range p.KeyPeople {
		addRow(people, kp.Name, kp.Title, kp.RoleCategory, kp.Email, kp.LinkedInURL)
	}

	graph, err := f.AddSheet(SheetGraph)
	if err != nil {
		return eris.Wrap(err, "report: add graph sheet")
	}
	addRow(graph, "Source", "Relation", "Target")
	labels := make(map[string]string, len(p.GraphNodes))
	for _, n := range p.GraphNodes {
		labels[n.ID] = n.Label
	}
	for _, e := range p.GraphEdges {
		addRow(graph, labelOr(labels, e.Source), e.Relation, labelOr(labels, e.Target))
	}

	fields, err := f.AddSheet(SheetFields)
	if err != nil {
		return eris.Wrap(err, "report: add research sheet")
	}
	addRow(fields, "Field", "Attempts", "Accepted")
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		res := p.Fields[model.FieldName(name)]
		addRow(fields, name, fmt.Sprint(res.Attempts), fmt.Sprint(res.Accepted))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// Chapter is one titled section of a dossier.
type Chapter struct {
	Title string
	Body  string
}

// Chapters returns the non-empty dossier sections of p in reading order.
func Chapters(p *model.CompanyProfile) []Chapter {
	var people []string
	for _, kp := range p.KeyPeople {
		if kp.Title != "" {
			people = append(people, fmt.Sprintf("%s (%s)", kp.Name, kp.Title))
		} else {
			people = append(people, kp.Name)
		}
	}

	identity := strings.TrimSpace(p.DescriptionShort + "\n\n" + p.DescriptionLong)
	all := []Chapter{
		{"Name", p.Name},
		{"Domain", p.Domain},
		{"Logo", p.LogoURL},
		{"Identity", identity},
		{"Industry", joinNonEmpty(" / ", p.Industry, p.SubIndustry, p.Sector)},
		{"Tags", strings.Join(p.Tags, ", ")},
		{"Products & Services", strings.Join(p.ProductsServices, ", ")},
		{"Service Type", p.ServiceType},
		{"Locations", strings.Join(p.Locations, ", ")},
		{"Headquarters", p.HQIndicator},
		{"Key People", strings.Join(people, "\n")},
		{"Tech Stack", strings.Join(p.TechStack, ", ")},
		{"Phone", p.Contact.Phone},
		{"Email", p.Contact.Email},
		{"Address", p.Contact.Address},
		{"LinkedIn", p.Social.LinkedIn},
		{"Registration Number", p.Registration.RegistrationNumber},
		{"VAT Number", p.Registration.VATNumber},
		{"Year Founded", p.Registration.YearFounded},
		{"Certifications", strings.Join(p.Certifications, ", ")},
	}

	out := all[:0]
	for _, ch := range all {
		if strings.TrimSpace(ch.Body) != "" {
			out = append(out, ch)
		}
	}
	return out
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func labelOr(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok && l != "" {
		return l
	}
	return id
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
