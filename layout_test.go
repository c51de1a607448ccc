package main

import (
	"image"
	"strings"
	"testing"
	"time"
)

func TestLayoutsFitTemplatePages(t *testing.T) {
	size := image.Pt(testPageWidth, testPageHeight)
	for _, wrap := range []int{10, 20} {
		layouts := []Layout{
			{Name: layoutConsent, Placements: consentPlacements},
			{Name: layoutTransfer, Placements: transferPlacements(wrap)},
		}
		for _, l := range layouts {
			if err := l.check(size); err != nil {
				t.Errorf("check(%s, wrap %d) error = %v", l.Name, wrap, err)
			}
		}
	}
}

func TestLayoutCheckErrors(t *testing.T) {
	size := image.Pt(100, 100)
	tests := []struct {
		name    string
		layout  Layout
		wantErr string
	}{
		{"unbound placeholder", Layout{Name: "x", Placements: PlacementMap{{"nickname", []Occurrence{{X: 1, Y: 1}}}}}, "no binding"},
		{"no positions", Layout{Name: "x", Placements: PlacementMap{{phStudentName, nil}}}, "no position"},
		{"outside page", Layout{Name: "x", Placements: PlacementMap{{phStudentName, []Occurrence{{X: 150, Y: 10}}}}}, "outside"},
		{"offset outside page", Layout{Name: "x", Placements: PlacementMap{{phStudentName, []Occurrence{{X: 5, Y: 10, DX: -15}}}}}, "outside"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.check(size)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("check() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTransferPlacementsAddressWrap(t *testing.T) {
	for _, p := range transferPlacements(20) {
		if p.Key != phAddress {
			continue
		}
		if p.At[0].Wrap != 20 || p.At[1].Wrap != 0 {
			t.Errorf("address wraps = %d, %d, want 20, 0", p.At[0].Wrap, p.At[1].Wrap)
		}
		return
	}
	t.Fatal("transfer layout has no address placement")
}

func TestFontSize(t *testing.T) {
	tests := []struct {
		key        Placeholder
		occurrence int
		want       float64
	}{
		{phAddress, 0, 25},
		{phAddress, 1, 34},
		{phStudentName, 0, 42},
		{phSchoolName, 2, 42},
		{phToday, 0, 42},
	}
	for _, tt := range tests {
		if got := fontSize(tt.key, tt.occurrence); got != tt.want {
			t.Errorf("fontSize(%s, %d) = %v, want %v", tt.key, tt.occurrence, got, tt.want)
		}
	}
}

func TestTextValues(t *testing.T) {
	d := FormData{
		StudentName:   "김하늘",
		ParentName:    "김철수",
		Relationship:  "부",
		StudentSchool: "한빛초등학교 2학년",
		StudentPhone:  "010-1234-5678",
		ParentPhone:   "010-9876-5432",
		MoveDate:      time.Date(2026, time.March, 16, 0, 0, 0, 0, testLocation),
		SchoolName:    "새솔초등학교",
		Address:       "새솔택지",
		NextGrade:     "3학년",
	}
	got := textValues(d, testNow())

	want := map[Placeholder]string{
		phToday:       "2026년 03월 02일",
		phMoveDate:    "2026년 03월 16일",
		phStudentName: "김하늘",
		phParentPhone: "010-9876-5432",
		phNextGrade:   "3학년",
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("textValues()[%s] = %q, want %q", key, got[key], value)
		}
	}
	if len(got) != len(textBindings) {
		t.Errorf("textValues() has %d entries, want %d", len(got), len(textBindings))
	}
}
