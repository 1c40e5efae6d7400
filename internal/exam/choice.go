package exam

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

type ChoiceKind int

const (
	ChoiceA1 ChoiceKind = iota + 1
	ChoiceB1Start
	ChoiceB1Topic
)

// DecisionChoice is what the user picked after A2: the A1 path, the B1 path
// (which first offers two topics), or one of those B1 topics.
type DecisionChoice struct {
	Kind      ChoiceKind
	SectionID string // set for ChoiceB1Topic
}

var ErrInvalidChoice = errors.New("choice must be \"A1\", \"B1\" or a B1 section id")

func ChooseA1() DecisionChoice { return DecisionChoice{Kind: ChoiceA1} }
func ChooseB1() DecisionChoice { return DecisionChoice{Kind: ChoiceB1Start} }
func ChooseTopic(id string) DecisionChoice {
	return DecisionChoice{Kind: ChoiceB1Topic, SectionID: id}
}

// ParseChoice decodes the raw JSON "choice" value. Strings "A1"/"B1" select a
// path; any other non-empty string or an integer names a B1 topic.
func ParseChoice(raw json.RawMessage) (DecisionChoice, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return DecisionChoice{}, ErrInvalidChoice
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return DecisionChoice{}, ErrInvalidChoice
		}
		return parseChoiceString(s)
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return DecisionChoice{}, ErrInvalidChoice
		}
		if _, err := n.Int64(); err != nil {
			return DecisionChoice{}, ErrInvalidChoice
		}
		return ChooseTopic(n.String()), nil
	}
}

func parseChoiceString(s string) (DecisionChoice, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return DecisionChoice{}, ErrInvalidChoice
	case strings.EqualFold(s, "A1"):
		return ChooseA1(), nil
	case strings.EqualFold(s, "B1"):
		return ChooseB1(), nil
	default:
		return ChooseTopic(s), nil
	}
}
