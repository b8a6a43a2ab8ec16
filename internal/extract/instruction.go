package extract

import (
	"fmt"

	"github.com/sells-group/atlas/internal/evidence"
	"github.com/sells-group/atlas/internal/model"
)

const instructionTemplate = `You are an expert data analyst acting as a validation agent.
Target company: '%s'
Field: '%s'

INSTRUCTIONS:
1. Analyze the search results from both search engines.
2. Cross-reference them with the browsed website content.
3. Extract only the requested field.
4. If the data is explicitly missing, return an empty string "".
5. When there are multiple values, return a list.
6. Respond with strict JSON only. Do not wrap it in markdown code fences.

JSON SCHEMA:
%s

DATA:
SEARCH CONTEXT:
%s

BROWSED CONTENT:
%s
`

// BuildInstruction embeds the schema hint and the truncated evidence into
// the fixed extraction preamble. Search text is capped at
// model.MaxSearchTextChars and browsed text at model.MaxBrowsedTextChars.
func BuildInstruction(field model.FieldName, company string, ev model.Evidence) string {
	return fmt.Sprintf(instructionTemplate,
		company,
		field,
		SchemaHint(field),
		evidence.Truncate(ev.SearchText, model.MaxSearchTextChars),
		evidence.Truncate(ev.BrowsedText, model.MaxBrowsedTextChars),
	)
}
