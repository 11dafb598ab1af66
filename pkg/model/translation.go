package model

// Translation carries one piece of text in each supported language. All
// fields are optional; clients fall back across languages themselves.
type Translation struct {
	NL string `json:"nl,omitempty" bson:"nl,omitempty" validate:"omitempty,max=500"`
	EN string `json:"en,omitempty" bson:"en,omitempty" validate:"omitempty,max=500"`
	FR string `json:"fr,omitempty" bson:"fr,omitempty" validate:"omitempty,max=500"`
	DE string `json:"de,omitempty" bson:"de,omitempty" validate:"omitempty,max=500"`
}

// IsEmpty reports whether no language carries any text.
func (t Translation) IsEmpty() bool {
	return t.NL == "" && t.EN == "" && t.FR == "" && t.DE == ""
}
