package profile

import (
	"fmt"
	"strings"

	"github.com/sells-group/atlas/internal/model"
)

// Graph node types and edge relations.
const (
	NodeCompany  = "Company"
	NodePerson   = "Person"
	NodeLocation = "Location"
	NodeProduct  = "Product"
	NodeTech     = "Technology"

	RelWorksAt   = "works_at"
	RelHQAt      = "hq_at"
	RelLocatedIn = "located_in"
	RelProduces  = "produces"
	RelUsesTech  = "uses_tech"

	CompanyNodeID = "node_company"
)

// BuildGraph replaces the profile's graph with one derived from its people,
// locations, products and technologies.
func BuildGraph(p *model.CompanyProfile) {
	nodes := []model.GraphNode{{
		ID:         CompanyNodeID,
		Label:      p.Name,
		Type:       NodeCompany,
		Properties: map[string]string{"industry": p.Industry},
	}}
	var edges []model.GraphEdge

	for i, person := range p.KeyPeople {
		id := fmt.Sprintf("node_person_%d", i)
		nodes = append(nodes, model.GraphNode{
			ID:         id,
			Label:      person.Name,
			Type:       NodePerson,
			Properties: map[string]string{"title": person.Title},
		})
		edges = append(edges, model.GraphEdge{Source: id, Target: CompanyNodeID, Relation: RelWorksAt})
	}

	hq := hqIndex(p.Locations, p.HQIndicator)
	for i, loc := range p.Locations {
		id := fmt.Sprintf("node_location_%d", i)
		nodes = append(nodes, model.GraphNode{ID: id, Label: loc, Type: NodeLocation})
		rel := RelLocatedIn
		if i == hq {
			rel = RelHQAt
		}
		edges = append(edges, model.GraphEdge{Source: CompanyNodeID, Target: id, Relation: rel})
	}

	for i, product := range p.ProductsServices {
		id := fmt.Sprintf("node_product_%d", i)
		nodes = append(nodes, model.GraphNode{ID: id, Label: product, Type: NodeProduct})
		edges = append(edges, model.GraphEdge{Source: CompanyNodeID, Target: id, Relation: RelProduces})
	}

	for i, tech := range p.TechStack {
		id := fmt.Sprintf("node_tech_%d", i)
		nodes = append(nodes, model.GraphNode{ID: id, Label: tech, Type: NodeTech})
		edges = append(edges, model.GraphEdge{Source: CompanyNodeID, Target: id, Relation: RelUsesTech})
	}

	p.GraphNodes = nodes
	p.GraphEdges = edges
}

// hqIndex picks the headquarters location: the one named by the HQ
// indicator, otherwise the first. Returns -1 when there are no locations.
func hqIndex(locations []string, indicator string) int {
	if len(locations) == 0 {
		return -1
	}
	ind := strings.ToLower(strings.TrimSpace(indicator))
	if ind != "" && ind != "yes" && ind != "no" {
		for i, loc := range locations {
			l := strings.ToLower(loc)
			if strings.Contains(l, ind) || strings.Contains(ind, l) {
				return i
			}
		}
	}
	return 0
}
