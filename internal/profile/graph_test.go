package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas/internal/model"
)

func TestBuildGraph(t *testing.T) {
	t.Parallel()

	p := &model.CompanyProfile{
		Name:             "Acme",
		Industry:         "Aerospace",
		KeyPeople:        []model.KeyPerson{{Name: "Jane", Title: "CEO"}, {Name: "Raj", Title: "CTO"}},
		Locations:        []string{"Austin, TX", "Paris, France"},
		HQIndicator:      "Paris",
		ProductsServices: []string{"Rockets"},
		TechStack:        []string{"Go"},
	}
	BuildGraph(p)

	require.Len(t, p.GraphNodes, 7)
	assert.Equal(t, model.GraphNode{
		ID: "node_company", Label: "Acme", Type: "Company",
		Properties: map[string]string{"industry": "Aerospace"},
	}, p.GraphNodes[0])
	assert.Equal(t, "node_person_1", p.GraphNodes[2].ID)
	assert.Equal(t, "CTO", p.GraphNodes[2].Properties["title"])

	assert.Contains(t, p.GraphEdges, model.GraphEdge{Source: "node_person_0", Target: "node_company", Relation: "works_at"})
	assert.Contains(t, p.GraphEdges, model.GraphEdge{Source: "node_company", Target: "node_location_0", Relation: "located_in"})
	assert.Contains(t, p.GraphEdges, model.GraphEdge{Source: "node_company", Target: "node_location_1", Relation: "hq_at"})
	assert.Contains(t, p.GraphEdges, model.GraphEdge{Source: "node_company", Target: "node_product_0", Relation: "produces"})
	assert.Contains(t, p.GraphEdges, model.GraphEdge{Source: "node_company", Target: "node_tech_0", Relation: "uses_tech"})
	assert.Len(t, p.GraphEdges, 6)
}

func TestBuildGraph_Rebuilds(t *testing.T) {
	t.Parallel()

	p := &model.CompanyProfile{Name: "Acme"}
	BuildGraph(p)
	BuildGraph(p)
	assert.Len(t, p.GraphNodes, 1)
	assert.Empty(t, p.GraphEdges)
}

func TestHQIndex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, hqIndex(nil, "Paris"))
	assert.Equal(t, 0, hqIndex([]string{"Austin", "Paris"}, "Yes"))
	assert.Equal(t, 1, hqIndex([]string{"Austin", "Paris"}, "paris"))
	assert.Equal(t, 0, hqIndex([]string{"Austin", "Paris"}, "Berlin"))
}
