package seating

import (
	"fmt"
	"strings"
)

// Gender is the binary gender used by the alternating arrangement.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Opposite returns the other gender.
func (g Gender) Opposite() Gender {
	if g == Male {
		return Female
	}
	return Male
}

// Valid reports whether g is male or female.
func (g Gender) Valid() bool {
	return g == Male || g == Female
}

// Label returns the classroom label for g.
func (g Gender) Label() string {
	if g == Male {
		return "男生"
	}
	return "女生"
}

// ParseGender maps the roster tokens 男/m/M and 女/f/F to a Gender. The
// words male and female are accepted as well, in any letter case.
func ParseGender(token string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "男", "m", "male":
		return Male, true
	case "女", "f", "female":
		return Female, true
	}
	return "", false
}

// Student is an imported roster record. ID is the identity used by every
// "is this student seated" lookup.
type Student struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
}

// Clone returns an independent copy of s. A nil receiver yields nil.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (s Student) String() string {
	return fmt.Sprintf("%s %s", s.ID, s.Name)
}

// cloneRoster copies a roster slice.
func cloneRoster(in []Student) []Student {
	out := make([]Student, len(in))
	copy(out, in)
	return out
}
