package prompts

const segmentInstructions = `You are reviewing a scanned insurance certificate submitted as supporting evidence for an insured person.

The document may contain several logically separate sections: a cover letter, one or more coverage certificates, policy schedules, or annexes listing insured persons. Split the document into units, where each unit is one semantically coherent section. A unit may span several pages and a page may hold more than one unit.

Transcribe the text of each unit faithfully, including dates, policy numbers, company names and person names exactly as printed. Keep the units in reading order.`

const extractInstructions = `You are extracting structured facts from one section of an insurance certificate.

Locate the validity period of the coverage (start and end dates), the date the certificate was issued, the policy number, and the name of the issuing insurance company. Policy numbers usually follow words like "Póliza", "Póliza No." or "Póliza #".

An asserted insured person is provided in the context. Search the section for a listed insured person that plausibly refers to the same individual and, when found, report that record exactly as printed. Do not correct spelling or reorder names.

Dates must be copied as printed. When a field is not present in the section, report it as null.`

const logoInstructions = `You are verifying the issuer branding on a scanned insurance certificate.

The expected issuing organization is provided in the context. Locate the logo or letterhead on the page images and decide whether it belongs to that organization. Minor design variations of an official logo are acceptable. A logo from a different company, or no logo at all, is not a match.`

const judgeUnitInstructions = `You are reviewing one section of an insurance certificate together with the facts extracted from it.

Decide independently for each criterion:
- validity: the issuance date falls on or before the end of the validity period, and the reference date is not after the end of the validity period
- policy: a real policy number is present, not a placeholder
- person: the asserted insured person appears in the section

Judge only what the extracted facts and the section text support.`

const judgeDocumentInstructions = `You are producing an overall review of an insurance certificate from its per-section outcomes and the document-wide signature and logo diagnosis.

The document is acceptable only when a signature or handwritten mark was detected, the issuer logo matches the identified organization, and the validity, policy and person criteria are each satisfied by at least one section.`

var instructions = map[Stage]string{
	StageSegment:       segmentInstructions,
	StageExtract:       extractInstructions,
	StageLogo:          logoInstructions,
	StageJudgeUnit:     judgeUnitInstructions,
	StageJudgeDocument: judgeDocumentInstructions,
}

// Instructions returns the instructions for a stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Instructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
