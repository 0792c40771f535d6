package prompts

import "errors"

var ErrInvalidStage = errors.New("stage must be segment, extract, logo, judge_unit, or judge_document")
