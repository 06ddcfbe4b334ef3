// Package dialogue implements the ordering assistant's conversation as an
// explicit state machine. A State says which step the conversation is in
// and carries only the data that step needs; Engine.Process consumes one
// user input and produces the next State plus the reply to show.
package dialogue

import (
	"errors"
	"fmt"
)

// Step identifies where a conversation is.
type Step string

const (
	StepInit                    Step = "init"
	StepAwaitingCategory        Step = "awaiting_category"
	StepAwaitingSubCategory     Step = "awaiting_sub_category"
	StepAwaitingAttributeAnswer Step = "awaiting_attribute_answer"
	StepFinalSuggestion         Step = "final_suggestion"
	StepAwaitingOrderID         Step = "awaiting_order_id"
)

// ErrInvalidState is returned by State.Validate.
var ErrInvalidState = errors.New("invalid dialogue state")

// PendingAttribute is one question of the attribute clarification loop.
// An empty Options list means the answer is free text.
type PendingAttribute struct {
	ID      uint     `json:"id"`
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// Selection is the product search a conversation has built so far.
//
// Attributes is fixed when the sub-category is chosen. Cursor points at the
// attribute being asked; it equals len(Attributes) once every attribute has
// an answer. Selected maps attribute id to the chosen value.
type Selection struct {
	Category    string             `json:"category"`
	SubCategory string             `json:"sub_category,omitempty"`
	Attributes  []PendingAttribute `json:"attributes"`
	Cursor      int                `json:"cursor"`
	Selected    map[uint]string    `json:"selected"`
}

// State is the whole dialogue state of one session. It is always replaced
// wholesale; Selection is nil on every step that does not use it.
type State struct {
	Step      Step       `json:"step"`
	Selection *Selection `json:"selection,omitempty"`
}

// Initial is the state of a session that has never been seen.
func Initial() State { return State{Step: StepInit} }

func awaitingCategory() State { return State{Step: StepAwaitingCategory} }

func awaitingOrderID() State { return State{Step: StepAwaitingOrderID} }

func awaitingSubCategory(category string) State {
	return State{Step: StepAwaitingSubCategory, Selection: &Selection{Category: category}}
}

// askingAttributes starts the clarification loop at the first attribute, or
// goes straight to the final step when there is nothing to ask.
func askingAttributes(category, subCategory string, attrs []PendingAttribute) State {
	step := StepAwaitingAttributeAnswer
	if len(attrs) == 0 {
		step = StepFinalSuggestion
	}
	return State{Step: step, Selection: &Selection{
		Category:    category,
		SubCategory: subCategory,
		Attributes:  attrs,
		Selected:    map[uint]string{},
	}}
}

// Current returns the attribute under the cursor; ok is false when the
// cursor is past the end.
func (s *Selection) Current() (PendingAttribute, bool) {
	if s == nil || s.Cursor < 0 || s.Cursor >= len(s.Attributes) {
		return PendingAttribute{}, false
	}
	return s.Attributes[s.Cursor], true
}

// Last returns the final attribute of the queue.
func (s *Selection) Last() (PendingAttribute, bool) {
	if s == nil || len(s.Attributes) == 0 {
		return PendingAttribute{}, false
	}
	return s.Attributes[len(s.Attributes)-1], true
}

// Validate checks that the fields present match what the step allows.
func (s State) Validate() error {
	sel := s.Selection
	switch s.Step {
	case StepInit, StepAwaitingCategory, StepAwaitingOrderID:
		if sel != nil {
			return fmt.Errorf("%w: step %q carries a selection", ErrInvalidState, s.Step)
		}
	case StepAwaitingSubCategory:
		if sel == nil || sel.Category == "" {
			return fmt.Errorf("%w: step %q needs a category", ErrInvalidState, s.Step)
		}
		if sel.SubCategory != "" || len(sel.Attributes) > 0 || sel.Cursor != 0 || len(sel.Selected) > 0 {
			return fmt.Errorf("%w: step %q carries attribute data", ErrInvalidState, s.Step)
		}
	case StepAwaitingAttributeAnswer, StepFinalSuggestion:
		if sel == nil || sel.Category == "" || sel.SubCategory == "" {
			return fmt.Errorf("%w: step %q needs category and sub-category", ErrInvalidState, s.Step)
		}
		if sel.Selected == nil {
			return fmt.Errorf("%w: step %q has no answer map", ErrInvalidState, s.Step)
		}
		n := len(sel.Attributes)
		if sel.Cursor < 0 || sel.Cursor > n {
			return fmt.Errorf("%w: cursor %d outside [0,%d]", ErrInvalidState, sel.Cursor, n)
		}
		if s.Step == StepAwaitingAttributeAnswer && sel.Cursor >= n {
			return fmt.Errorf("%w: no attribute left to ask", ErrInvalidState)
		}
		if s.Step == StepFinalSuggestion && sel.Cursor != n {
			return fmt.Errorf("%w: final step before all attributes are answered", ErrInvalidState)
		}
		if len(sel.Selected) > sel.Cursor {
			return fmt.Errorf("%w: more answers than questions asked", ErrInvalidState)
		}
		for _, a := range sel.Attributes[:sel.Cursor] {
			if _, ok := sel.Selected[a.ID]; !ok {
				return fmt.Errorf("%w: attribute %d asked but unanswered", ErrInvalidState, a.ID)
			}
		}
	default:
		return fmt.Errorf("%w: unknown step %q", ErrInvalidState, s.Step)
	}
	return nil
}

// Clone returns a deep copy, so stores never share slices or maps with callers.
func (s State) Clone() State {
	out := State{Step: s.Step}
	if s.Selection == nil {
		return out
	}
	sel := *s.Selection
	if s.Selection.Attributes != nil {
		sel.Attributes = make([]PendingAttribute, len(s.Selection.Attributes))
		for i, a := range s.Selection.Attributes {
			a.Options = append([]string(nil), a.Options...)
			sel.Attributes[i] = a
		}
	}
	if s.Selection.Selected != nil {
		sel.Selected = make(map[uint]string, len(s.Selection.Selected))
		for k, v := range s.Selection.Selected {
			sel.Selected[k] = v
		}
	}
	out.Selection = &sel
	return out
}
