package service

import (
	"strings"

	"github.com/courseloop/hwboard-backend/internal/model"
)

// EncodedResponses is the output of EncodeResponses: the two persisted
// string representations of a submission plus grading summary bits.
type EncodedResponses struct {
	// AuditString is the tab-joined flat values in answer-group field
	// order. It goes to the immutable audit trail and is never rewritten.
	AuditString string
	// ReplayBlob re-populates the submission form on next load ("sticky
	// answers"). Round-trippable via model.DecodeReplay.
	ReplayBlob string
	// ScoreString has one '1' or '0' per answer group, in group order.
	ScoreString string
	// IsEssay is set when any group is declared essay-type.
	IsEssay bool
}

// EncodeResponses serializes a set of submitted form values using the answer
// ordering metadata from the rendering engine.
//
// Answer groups are walked in their defined order and drive the field order
// of both persisted strings. Extra persisted fields (essay drafts, widget
// scratch state) join the replay set only, never the audit string, and
// only when no answer group already captured them. Missing values encode as
// the empty string. Absent metadata is treated as empty; there are no error
// conditions beyond a failed blob encode.
func EncodeResponses(fields map[string]model.AnswerValue, groups []model.AnswerGroup, extraFields []string) (EncodedResponses, error) {
	var enc EncodedResponses

	seen := map[string]bool{}
	var auditValues []string
	var entries []model.ReplayEntry

	var scores strings.Builder
	for _, g := range groups {
		if g.Score >= 1 {
			scores.WriteByte('1')
		} else {
			scores.WriteByte('0')
		}
		if g.Type == model.GroupTypeEssay {
			enc.IsEssay = true
		}

		for _, name := range g.Fields {
			if seen[name] {
				continue
			}
			seen[name] = true
			v := fields[name] // zero value flattens to ""
			auditValues = append(auditValues, v.Flat())
			entries = append(entries, model.ReplayEntry{Name: name, Value: v})
		}
	}
	enc.ScoreString = scores.String()
	enc.AuditString = strings.Join(auditValues, "\t")

	for _, name := range extraFields {
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, model.ReplayEntry{Name: name, Value: fields[name]})
	}

	blob, err := model.EncodeReplay(entries)
	if err != nil {
		return EncodedResponses{}, err
	}
	enc.ReplayBlob = blob

	return enc, nil
}
