package canon

import (
	"strings"

	"quiz-canon/internal/textutil"
)

// Family groups rules by the kind of identifier they normalize.
type Family string

const (
	FamilyStorage Family = "storage"
	FamilyPointer Family = "pointer"
	FamilyLiteral Family = "literal"
)

// Boundary names a boundary policy applied on one side of a match.
type Boundary string

const (
	// BoundaryOperand accepts whitespace, brackets and operators.
	BoundaryOperand Boundary = "operand"
	// BoundaryMember additionally accepts '.', for member access like current.next.
	BoundaryMember Boundary = "member"
)

// Rule maps a set of localized surface forms onto one canonical spelling.
type Rule struct {
	Family    Family   `yaml:"family" json:"family" validate:"required,oneof=storage pointer literal"`
	Canonical string   `yaml:"canonical" json:"canonical" validate:"required"`
	Forms     []string `yaml:"forms" json:"forms" validate:"required,min=1,dive,required"`
	Left      Boundary `yaml:"left,omitempty" json:"left,omitempty" validate:"omitempty,oneof=operand member"`
	Right     Boundary `yaml:"right,omitempty" json:"right,omitempty" validate:"omitempty,oneof=operand member"`
}

// leftOpeners may directly precede a match.
const leftOpeners = "[("

// rightClosers may directly follow a match: operators, separators and closing brackets.
const rightClosers = "←=+-*/<>≠≦≧≤≥,:;)]"

// LeftOK reports whether prev may precede a match. atStart is true at the beginning of
// the text; line starts are covered because '\n' is whitespace.
func (b Boundary) LeftOK(prev rune, atStart bool) bool {
	if atStart || textutil.IsSpace(prev) || strings.ContainsRune(leftOpeners, prev) {
		return true
	}
	return b == BoundaryMember && prev == '.'
}

// RightOK reports whether next may follow a match.
func (b Boundary) RightOK(next rune, atEnd bool) bool {
	if atEnd || textutil.IsSpace(next) || strings.ContainsRune(rightClosers, next) {
		return true
	}
	return b == BoundaryMember && next == '.'
}

// isBoundaryRune reports whether r satisfies any boundary policy. Forms and canonical
// spellings must not contain such runes, otherwise a rewrite could create or destroy a
// boundary and a second pass would see different matches.
func isBoundaryRune(r rune) bool {
	return BoundaryMember.LeftOK(r, false) || BoundaryMember.RightOK(r, false)
}

func (r Rule) left() Boundary {
	if r.Left == "" {
		return BoundaryOperand
	}
	return r.Left
}

func (r Rule) right() Boundary {
	if r.Right == "" {
		return BoundaryOperand
	}
	return r.Right
}
