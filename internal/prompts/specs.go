package prompts

const segmentSpec = `Respond with a JSON object matching this exact structure:

{
  "units": [
    {"text": "<section text>", "pages": [1]}
  ]
}

Field constraints:
- units: Sections in reading order. At least one unit for any non-empty document.
- text: Full transcription of the section.
- pages: 1-based page numbers the section appears on.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing`

const extractSpec = `Respond with a JSON object matching this exact structure:

{
  "validity_start": "<date or null>",
  "validity_end": "<date or null>",
  "issuance_date": "<date or null>",
  "policy_number": "<string or null>",
  "organization": "<string or null>",
  "insured": {
    "name": "<string>",
    "policy_number": "<string or null>",
    "organization": "<string or null>"
  }
}

Field constraints:
- Dates are copied as printed (e.g., "31/01/2025" or "31 de enero de 2025").
- insured: null when the asserted person is not listed in the section.
- Every key must be present. Use null for absent values, never omit a key.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Report only what appears in this section`

const logoSpec = `Respond with a JSON object matching this exact structure:

{
  "present": true,
  "match": true,
  "reason": "<explanation>"
}

Field constraints:
- present: Whether any logo or letterhead is visible.
- match: Whether the logo belongs to the expected organization. Always false when present is false.
- reason: One or two sentences describing the logo and any discrepancy.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing`

const judgeUnitSpec = `Respond with a JSON object matching this exact structure:

{
  "validity": true,
  "policy": true,
  "person": true,
  "reason": "<explanation>"
}

Field constraints:
- validity, policy, person: Independent pass flags for each criterion.
- reason: Brief explanation naming each failed criterion, or confirming all passed.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing`

const judgeDocumentSpec = `Respond with a JSON object matching this exact structure:

{
  "verdict": true,
  "reason": "<explanation>"
}

Field constraints:
- verdict: True only when every document criterion is satisfied.
- reason: Short explanation referencing the failing criteria, if any.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing`

var specs = map[Stage]string{
	StageSegment:       segmentSpec,
	StageExtract:       extractSpec,
	StageLogo:          logoSpec,
	StageJudgeUnit:     judgeUnitSpec,
	StageJudgeDocument: judgeDocumentSpec,
}

// Spec returns the response specification for a stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
