package analyzer

import (
	"fmt"
	"strings"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

const fieldsSystem = `You review citizen complaints filed with a state audit office. Decide whether the complaint carries enough detail to investigate and extract the details it names. Return ONLY a JSON object with these fields:
- "status": "success" when every required detail is present, otherwise "fail"
- "title": a short heading for the finding
- "reason": one or two sentences explaining the decision
- "values": an object keyed by the detail keys listed below; each value is the extracted text, or null when the complaint does not state it

Rules:
- Use only the keys listed, never invent new ones
- Quote names, dates and places as written in the complaint
- Return valid JSON only, no markdown fencing or explanation`

const peopleSystem = `You review citizen complaints filed with a state audit office. List every named person in the complaint with the part they play. Return ONLY a JSON object with these fields:
- "title": a short heading for the finding
- "reason": one or two sentences summarizing who is involved
- "people": an array of objects with "name" and "role", where role is one of "complainant", "respondent", "witness"

Rules:
- Include only people named in the text; skip anonymous references
- Return valid JSON only, no markdown fencing or explanation`

const authoritySystem = `You review citizen complaints filed with a state audit office. Answer the question below about the complaint. Return ONLY a JSON object with these fields:
- "result": "applicable" if the answer to the question is yes, otherwise "not_applicable"
- "reason": one or two sentences explaining the answer
- "organization": the government body or organization the answer refers to, or an empty string
- "evidence": a short quote from the complaint supporting the answer, or an empty string

Rules:
- Base the answer only on the complaint text
- Return valid JSON only, no markdown fencing or explanation`

// buildPrompt constructs the system and user prompts for one criterion.
func buildPrompt(def criteria.Definition, text string) (system string, user string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Criterion %d: %s\n", def.ID, def.Label)

	switch def.Shape {
	case models.ShapeFields:
		system = fieldsSystem
		sb.WriteString("\nDetail keys:\n")
		for _, f := range def.Fields {
			req := "optional"
			if f.Required {
				req = "required"
			}
			fmt.Fprintf(&sb, "- %q: %s (%s)\n", f.Key, f.Label, req)
		}
	case models.ShapePeople:
		system = peopleSystem
	case models.ShapeAuthority:
		system = authoritySystem
		q := def.Question
		if q == "" {
			q = def.Label
		}
		fmt.Fprintf(&sb, "\nQuestion: %s\n", q)
	}

	sb.WriteString("\nComplaint text:\n\n")
	sb.WriteString(text)
	user = sb.String()
	return
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
