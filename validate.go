package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ---------------------------------------------------------------------------
// Form Data
// ---------------------------------------------------------------------------

// FormInput is the raw stage 3 input as typed by the guardian.
type FormInput struct {
	StudentName   string
	ParentName    string
	Relationship  string
	StudentSchool string // current school and grade, e.g. "한빛초등학교 2학년"
	StudentPhone  string
	ParentPhone   string
	BirthDate     time.Time
	MoveDate      time.Time
	SchoolName    string // destination school
	Address       string // destination address
	NextGrade     string
}

// FormData is a validated FormInput. Phone numbers are normalized.
type FormData struct {
	Region        string
	School        string
	StudentName   string
	ParentName    string
	Relationship  string
	StudentSchool string
	StudentPhone  string
	ParentPhone   string
	BirthDate     time.Time
	MoveDate      time.Time
	SchoolName    string
	Address       string
	NextGrade     string
}

// Field names used in validation errors and the example-value table.
const (
	fieldStudentName   = "student_name"
	fieldParentName    = "parent_name"
	fieldRelationship  = "relationship"
	fieldStudentSchool = "student_school"
	fieldStudentPhone  = "student_phone"
	fieldParentPhone   = "parent_phone"
	fieldBirthDate     = "birth_date"
	fieldMoveDate      = "move_date"
	fieldSchoolName    = "school_name"
	fieldAddress       = "address"
	fieldNextGrade     = "next_grade"
)

const defaultNamePattern = `^[가-힣]+$`

var (
	phonePattern     = regexp.MustCompile(`^\d{3}-\d{4}-\d{4}$`)
	nextGradePattern = regexp.MustCompile(`^[1-6]학년$`)
)

// Reasons shown to the user.
const (
	reasonIncomplete   = "모든 필드를 입력하세요."
	reasonName         = "이름은 한글로만 입력하세요."
	reasonPhone        = "전화번호는 010으로 시작하는 숫자 11자리로 입력하세요."
	reasonExampleValue = "예시 값을 지우고 실제 내용으로 입력하세요."
	reasonNextGrade    = "전학 예정 학년은 1학년~6학년 중 하나로 입력하세요. (예: 3학년)"
	reasonBirthDate    = "생년월일이 올바르지 않습니다."
)

// exampleValues lists the pre-filled placeholder text of each input.
var exampleValues = map[string][]string{
	fieldStudentName:   {"000"},
	fieldParentName:    {"000"},
	fieldRelationship:  {"부, 모 등"},
	fieldStudentSchool: {"00초등학교 0학년"},
	fieldStudentPhone:  {"010-0000-0000"},
	fieldParentPhone:   {"010-0000-0000"},
	fieldAddress:       {"00택지 A-0블록 00아파트 00동 00호"},
	fieldNextGrade:     {"0학년"},
}

// ---------------------------------------------------------------------------
// Validator
// ---------------------------------------------------------------------------

// Validator applies the stage 3 rules in order and stops at the first failure.
type Validator struct {
	namePattern *regexp.Regexp
	examples    map[string][]string
	now         func() time.Time
}

func newValidator(namePattern string, now func() time.Time) (*Validator, error) {
	re, err := regexp.Compile(namePattern)
	if err != nil {
		return nil, fmt.Errorf("compile name pattern: %w", err)
	}
	return &Validator{namePattern: re, examples: exampleValues, now: now}, nil
}

// isExampleValue reports whether value is still the pre-filled example for field.
func (v *Validator) isExampleValue(field, value string) bool {
	for _, example := range v.examples[field] {
		if value == example {
			return true
		}
	}
	return false
}

// Validate checks completeness, names, phones, example values and the next
// grade, in that order, and returns the normalized record.
func (v *Validator) Validate(in FormInput) (FormData, error) {
	d := FormData{
		StudentName:   clean(in.StudentName),
		ParentName:    clean(in.ParentName),
		Relationship:  clean(in.Relationship),
		StudentSchool: clean(in.StudentSchool),
		StudentPhone:  clean(in.StudentPhone),
		ParentPhone:   clean(in.ParentPhone),
		BirthDate:     in.BirthDate,
		MoveDate:      in.MoveDate,
		SchoolName:    clean(in.SchoolName),
		Address:       clean(in.Address),
		NextGrade:     width.Narrow.String(clean(in.NextGrade)),
	}

	texts := []struct {
		field string
		value string
	}{
		{fieldStudentName, d.StudentName},
		{fieldParentName, d.ParentName},
		{fieldRelationship, d.Relationship},
		{fieldStudentSchool, d.StudentSchool},
		{fieldStudentPhone, d.StudentPhone},
		{fieldParentPhone, d.ParentPhone},
		{fieldSchoolName, d.SchoolName},
		{fieldAddress, d.Address},
		{fieldNextGrade, d.NextGrade},
	}

	// 1. Completeness
	for _, t := range texts {
		if t.value == "" {
			return FormData{}, &ValidationError{Field: t.field, Reason: reasonIncomplete}
		}
	}
	if d.BirthDate.IsZero() {
		return FormData{}, &ValidationError{Field: fieldBirthDate, Reason: reasonIncomplete}
	}
	if d.MoveDate.IsZero() {
		return FormData{}, &ValidationError{Field: fieldMoveDate, Reason: reasonIncomplete}
	}

	// 2. Names
	for _, t := range texts[:2] {
		if !v.namePattern.MatchString(t.value) {
			return FormData{}, &ValidationError{Field: t.field, Reason: reasonName}
		}
	}

	// 3. Phones
	var err error
	if d.StudentPhone, err = formatPhoneNumber(d.StudentPhone); err != nil {
		return FormData{}, &ValidationError{Field: fieldStudentPhone, Reason: reasonPhone}
	}
	if d.ParentPhone, err = formatPhoneNumber(d.ParentPhone); err != nil {
		return FormData{}, &ValidationError{Field: fieldParentPhone, Reason: reasonPhone}
	}

	// 4. Example values
	normalized := map[string]string{
		fieldStudentName:   d.StudentName,
		fieldParentName:    d.ParentName,
		fieldRelationship:  d.Relationship,
		fieldStudentSchool: d.StudentSchool,
		fieldStudentPhone:  d.StudentPhone,
		fieldParentPhone:   d.ParentPhone,
		fieldAddress:       d.Address,
		fieldNextGrade:     d.NextGrade,
	}
	for _, t := range texts {
		if v.isExampleValue(t.field, normalized[t.field]) {
			return FormData{}, &ValidationError{Field: t.field, Reason: reasonExampleValue}
		}
	}

	// 5. Next grade
	if !nextGradePattern.MatchString(d.NextGrade) {
		return FormData{}, &ValidationError{Field: fieldNextGrade, Reason: reasonNextGrade}
	}

	if d.BirthDate.After(d.MoveDate) || d.BirthDate.After(v.now()) {
		return FormData{}, &ValidationError{Field: fieldBirthDate, Reason: reasonBirthDate}
	}

	return d, nil
}

// clean trims the value and composes decomposed Hangul jamo.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// formatPhoneNumber accepts NNN-NNNN-NNNN as is, otherwise requires exactly 11
// digits starting with 010 and formats them as 010-XXXX-XXXX.
func formatPhoneNumber(raw string) (string, error) {
	s := width.Narrow.String(strings.TrimSpace(raw))
	if phonePattern.MatchString(s) {
		return s, nil
	}

	digits := strings.Join(strings.Fields(s), "")
	if len(digits) != 11 || !strings.HasPrefix(digits, "010") {
		return "", fmt.Errorf("phone %q: must start with 010 and be 11 digits", raw)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("phone %q: must start with 010 and be digits only", raw)
		}
	}
	return digits[:3] + "-" + digits[3:7] + "-" + digits[7:], nil
}
