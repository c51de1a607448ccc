package main

import (
	"fmt"
	"image"
	"time"
)

// ---------------------------------------------------------------------------
// Placeholders
// ---------------------------------------------------------------------------

// Placeholder names a value stamped onto a template page.
type Placeholder string

const (
	phToday         Placeholder = "date.today"
	phStudentName   Placeholder = "student_name"
	phParentName    Placeholder = "parent_name"
	phStudentSchool Placeholder = "student_school"
	phRelationship  Placeholder = "relationship"
	phStudentPhone  Placeholder = "student_phone"
	phParentPhone   Placeholder = "parent_phone"
	phMoveDate      Placeholder = "move_date"
	phAddress       Placeholder = "address"
	phSchoolName    Placeholder = "school_name"
	phNextGrade     Placeholder = "next_grade"
	phStudentSign   Placeholder = "student_sign"
	phParentSign    Placeholder = "parent_sign"
)

// textBindings maps every text placeholder to the FormData field it prints.
var textBindings = map[Placeholder]func(d FormData, today time.Time) string{
	phToday:         func(_ FormData, today time.Time) string { return formatKoreanDate(today) },
	phStudentName:   func(d FormData, _ time.Time) string { return d.StudentName },
	phParentName:    func(d FormData, _ time.Time) string { return d.ParentName },
	phStudentSchool: func(d FormData, _ time.Time) string { return d.StudentSchool },
	phRelationship:  func(d FormData, _ time.Time) string { return d.Relationship },
	phStudentPhone:  func(d FormData, _ time.Time) string { return d.StudentPhone },
	phParentPhone:   func(d FormData, _ time.Time) string { return d.ParentPhone },
	phMoveDate:      func(d FormData, _ time.Time) string { return formatKoreanDate(d.MoveDate) },
	phAddress:       func(d FormData, _ time.Time) string { return d.Address },
	phSchoolName:    func(d FormData, _ time.Time) string { return d.SchoolName },
	phNextGrade:     func(d FormData, _ time.Time) string { return d.NextGrade },
}

// signatureBindings lists the placeholders filled with signature bitmaps.
var signatureBindings = map[Placeholder]bool{
	phStudentSign: true,
	phParentSign:  true,
}

// textValues resolves every text placeholder for d.
func textValues(d FormData, today time.Time) map[Placeholder]string {
	values := make(map[Placeholder]string, len(textBindings))
	for key, field := range textBindings {
		values[key] = field(d, today)
	}
	return values
}

// signatureValues binds the processed signatures to their placeholders.
func signatureValues(student, parent *Signature) map[Placeholder]image.Image {
	return map[Placeholder]image.Image{
		phStudentSign: student.Image,
		phParentSign:  parent.Image,
	}
}

// ---------------------------------------------------------------------------
// Template Layouts
// ---------------------------------------------------------------------------

// Layout is a template page together with its placement table.
type Layout struct {
	Name       string
	Placements PlacementMap
}

// consentPlacements are measured on the 200 DPI consent template. Names and
// signatures sit 15px left of the measured points on this page only.
var consentPlacements = PlacementMap{
	{phToday, []Occurrence{{X: 975, Y: 1540}}},
	{phStudentName, []Occurrence{{X: 815, Y: 1685, DX: -15}}},
	{phStudentSign, []Occurrence{{X: 1050, Y: 1655, DX: -15}}},
	{phParentName, []Occurrence{{X: 815, Y: 1810, DX: -15}}},
	{phParentSign, []Occurrence{{X: 1050, Y: 1800, DX: -15}}},
	{phSchoolName, []Occurrence{{X: 937, Y: 1982}}},
}

// transferPlacements are measured on the 200 DPI transfer template. The
// first address box is narrow and wraps at addressWrap characters.
func transferPlacements(addressWrap int) PlacementMap {
	return PlacementMap{
		{phStudentName, []Occurrence{{X: 480, Y: 457}, {X: 815, Y: 1760}}},
		{phParentName, []Occurrence{{X: 1140, Y: 457}, {X: 815, Y: 1885}}},
		{phStudentSchool, []Occurrence{{X: 440, Y: 555}}},
		{phRelationship, []Occurrence{{X: 1140, Y: 555}}},
		{phStudentPhone, []Occurrence{{X: 462, Y: 650}}},
		{phParentPhone, []Occurrence{{X: 1105, Y: 650}}},
		{phMoveDate, []Occurrence{{X: 462, Y: 847}}},
		{phAddress, []Occurrence{{X: 1140, Y: 829, DX: -7, Wrap: addressWrap}, {X: 520, Y: 1185, DX: -50}}},
		{phSchoolName, []Occurrence{{X: 462, Y: 1048}, {X: 320, Y: 1245}, {X: 937, Y: 2057}}},
		{phNextGrade, []Occurrence{{X: 1115, Y: 1048}, {X: 920, Y: 1245, DX: 50}}},
		{phToday, []Occurrence{{X: 975, Y: 1610}}},
		{phStudentSign, []Occurrence{{X: 1050, Y: 1740}}},
		{phParentSign, []Occurrence{{X: 1050, Y: 1880}}},
	}
}

// fontSize is the font decision table shared by both templates.
func fontSize(key Placeholder, occurrence int) float64 {
	if key == phAddress {
		switch occurrence {
		case 0:
			return 25
		case 1:
			return 34
		}
	}
	return 42
}

// check verifies that every placement is bound to a form field or a
// signature and lies inside a page of the given size.
func (l Layout) check(size image.Point) error {
	bounds := image.Rectangle{Max: size}
	for _, p := range l.Placements {
		_, isText := textBindings[p.Key]
		if !isText && !signatureBindings[p.Key] {
			return fmt.Errorf("layout %s: placeholder %q has no binding", l.Name, p.Key)
		}
		if len(p.At) == 0 {
			return fmt.Errorf("layout %s: placeholder %q has no position", l.Name, p.Key)
		}
		for i, at := range p.At {
			pt := image.Pt(at.X+at.DX, at.Y)
			if !pt.In(bounds) {
				return fmt.Errorf("layout %s: %q[%d] at %v is outside the %v page", l.Name, p.Key, i, pt, size)
			}
		}
	}
	return nil
}
