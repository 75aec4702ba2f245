// internal/megaverse/types.go
//
// Core type definitions for megaverse objects.
// Defines:
//   - Placement: a (row, column) target cell on the grid.
//   - Kind: the astral object type (Polyanet, Soloon, Cometh).
//   - Object: one thing to place, with its kind-specific attribute.
//   - SubmissionRequest: the JSON body sent for every create/delete call.

package megaverse

import (
	"errors"
	"fmt"
	"strings"
)

// Placement is a target cell in the megaverse grid. Bounds are enforced by the
// remote service, not here.
type Placement struct {
	Row    int `json:"row" mapstructure:"row"`
	Column int `json:"column" mapstructure:"column"`
}

func (p Placement) String() string { return fmt.Sprintf("[%d, %d]", p.Row, p.Column) }

// Kind identifies the astral object type.
type Kind string

const (
	KindPolyanet Kind = "POLYANET"
	KindSoloon   Kind = "SOLOON"
	KindCometh   Kind = "COMETH"
)

// Resource returns the API path segment for the kind.
func (k Kind) Resource() string {
	switch k {
	case KindPolyanet:
		return "polyanets"
	case KindSoloon:
		return "soloons"
	case KindCometh:
		return "comeths"
	}
	return ""
}

// Name is the human-readable form used in log lines ("Polyanet").
func (k Kind) Name() string {
	s := strings.ToLower(string(k))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// KindFromResource maps an API path segment back to its kind.
func KindFromResource(resource string) (Kind, bool) {
	for _, k := range []Kind{KindPolyanet, KindSoloon, KindCometh} {
		if k.Resource() == resource {
			return k, true
		}
	}
	return "", false
}

// Valid Soloon colors and Cometh directions.
var (
	Colors     = []string{"blue", "red", "purple", "white"}
	Directions = []string{"up", "down", "left", "right"}
)

// Object is a single astral object to place at a Placement.
// Color is only meaningful for Soloons, Direction only for Comeths.
type Object struct {
	Kind      Kind
	Placement Placement
	Color     string
	Direction string
}

// Polyanet, Soloon and Cometh are convenience constructors.
func Polyanet(row, column int) Object {
	return Object{Kind: KindPolyanet, Placement: Placement{Row: row, Column: column}}
}

func Soloon(row, column int, color string) Object {
	return Object{Kind: KindSoloon, Placement: Placement{Row: row, Column: column}, Color: strings.ToLower(color)}
}

func Cometh(row, column int, direction string) Object {
	return Object{Kind: KindCometh, Placement: Placement{Row: row, Column: column}, Direction: strings.ToLower(direction)}
}

func (o Object) String() string {
	switch o.Kind {
	case KindSoloon:
		return fmt.Sprintf("%s %s %s", o.Color, o.Kind.Name(), o.Placement)
	case KindCometh:
		return fmt.Sprintf("%s %s %s", o.Direction, o.Kind.Name(), o.Placement)
	}
	return fmt.Sprintf("%s %s", o.Kind.Name(), o.Placement)
}

// Validate checks the object's kind, attribute and coordinate sign.
func (o Object) Validate() error {
	if o.Placement.Row < 0 || o.Placement.Column < 0 {
		return fmt.Errorf("placement %s: row and column must be non-negative", o.Placement)
	}
	switch o.Kind {
	case KindPolyanet:
		return nil
	case KindSoloon:
		if !contains(Colors, o.Color) {
			return fmt.Errorf("soloon color %q: must be one of %s", o.Color, strings.Join(Colors, ", "))
		}
		return nil
	case KindCometh:
		if !contains(Directions, o.Direction) {
			return fmt.Errorf("cometh direction %q: must be one of %s", o.Direction, strings.Join(Directions, ", "))
		}
		return nil
	case "":
		return errors.New("object kind is empty")
	}
	return fmt.Errorf("unknown object kind %q", o.Kind)
}

// SubmissionRequest is the wire body for create and delete calls.
// A fresh value is built for every attempt.
type SubmissionRequest struct {
	Row         int    `json:"row"`
	Column      int    `json:"column"`
	CandidateID string `json:"candidateId"`
	Color       string `json:"color,omitempty"`
	Direction   string `json:"direction,omitempty"`
}

// Request builds the submission body for o on behalf of candidateID.
func (o Object) Request(candidateID string) SubmissionRequest {
	return SubmissionRequest{
		Row:         o.Placement.Row,
		Column:      o.Placement.Column,
		CandidateID: candidateID,
		Color:       o.Color,
		Direction:   o.Direction,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
