package model

import "encoding/json"

// Achievement item identifiers. Items are consumable rewards; each use
// decrements the per-user counter.
const (
	ItemDueDateExtension = "DueDateExtension"
)

// AchievementState holds a student's consumable achievement items as a typed
// counter map. The legacy system kept this as an ad hoc serialized blob;
// here the JSON (de)serialization happens at the persistence boundary only.
type AchievementState struct {
	ItemUses map[string]int `json:"item_uses"`
}

// NewAchievementState returns an empty state ready for mutation.
func NewAchievementState() *AchievementState {
	return &AchievementState{ItemUses: map[string]int{}}
}

// RemainingUses returns the use count for an item, zero if never granted.
func (s *AchievementState) RemainingUses(itemID string) int {
	return s.ItemUses[itemID]
}

// ConsumeUse decrements the item counter. Returns false without mutation if
// the item is exhausted or was never granted.
func (s *AchievementState) ConsumeUse(itemID string) bool {
	if s.ItemUses[itemID] <= 0 {
		return false
	}
	s.ItemUses[itemID]--
	return true
}

// MarshalState encodes the state for storage.
func MarshalState(s *AchievementState) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState decodes a stored blob. A nil/empty blob yields a fresh
// empty state rather than an error.
func UnmarshalState(raw []byte) (*AchievementState, error) {
	if len(raw) == 0 {
		return NewAchievementState(), nil
	}
	s := &AchievementState{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	if s.ItemUses == nil {
		s.ItemUses = map[string]int{}
	}
	return s, nil
}
