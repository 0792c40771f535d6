package prompts

import (
	"encoding/json"
	"slices"
)

// Stage identifies the pipeline step a prompt is written for.
type Stage string

// Model-backed pipeline stages.
const (
	StageSegment       Stage = "segment"
	StageExtract       Stage = "extract"
	StageLogo          Stage = "logo"
	StageJudgeUnit     Stage = "judge_unit"
	StageJudgeDocument Stage = "judge_document"
)

var stages = []Stage{
	StageSegment,
	StageExtract,
	StageLogo,
	StageJudgeUnit,
	StageJudgeDocument,
}

// Stages returns the list of prompt stages.
func Stages() []Stage {
	return stages
}

// UnmarshalJSON validates that the decoded string is a known stage value.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage validates a string as a known stage.
// Returns ErrInvalidStage if the value is not recognized.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}
