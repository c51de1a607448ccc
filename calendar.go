package main

import (
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
)

// ---------------------------------------------------------------------------
// School Calendar
// ---------------------------------------------------------------------------

// Fixed-date public holidays observed by schools. Lunar holidays move every
// year and are not listed.
var (
	holidayNewYear = &cal.Holiday{Name: "신정", Type: cal.ObservancePublic, Month: time.January, Day: 1, Func: cal.CalcDayOfMonth}
	holidayMarch1  = &cal.Holiday{Name: "삼일절", Type: cal.ObservancePublic, Month: time.March, Day: 1, Func: cal.CalcDayOfMonth}
	holidayChild   = &cal.Holiday{Name: "어린이날", Type: cal.ObservancePublic, Month: time.May, Day: 5, Func: cal.CalcDayOfMonth}
	holidayMemory  = &cal.Holiday{Name: "현충일", Type: cal.ObservancePublic, Month: time.June, Day: 6, Func: cal.CalcDayOfMonth}
	holidayLiber   = &cal.Holiday{Name: "광복절", Type: cal.ObservancePublic, Month: time.August, Day: 15, Func: cal.CalcDayOfMonth}
	holidayFound   = &cal.Holiday{Name: "개천절", Type: cal.ObservancePublic, Month: time.October, Day: 3, Func: cal.CalcDayOfMonth}
	holidayHangul  = &cal.Holiday{Name: "한글날", Type: cal.ObservancePublic, Month: time.October, Day: 9, Func: cal.CalcDayOfMonth}
	holidayXmas    = &cal.Holiday{Name: "성탄절", Type: cal.ObservancePublic, Month: time.December, Day: 25, Func: cal.CalcDayOfMonth}

	schoolHolidays = []*cal.Holiday{
		holidayNewYear, holidayMarch1, holidayChild, holidayMemory,
		holidayLiber, holidayFound, holidayHangul, holidayXmas,
	}
)

// newSchoolCalendar creates a calendar with weekends and fixed public holidays.
func newSchoolCalendar() *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.Name = "School calendar"
	c.Description = "Weekdays without fixed-date public holidays"
	c.AddHoliday(schoolHolidays...)
	return c
}

// moveDateNotice returns a remark when the planned move date is not a school
// workday, and an empty string otherwise. The remark never blocks submission.
func moveDateNotice(c *cal.BusinessCalendar, date time.Time) string {
	if c.IsWorkday(date) {
		return ""
	}
	if actual, _, h := c.IsHoliday(date); actual && h != nil {
		return fmt.Sprintf("전입 예정일(%s)은 %s입니다. 학교 행정실 업무일을 확인해 주세요.", formatKoreanDate(date), h.Name)
	}
	return fmt.Sprintf("전입 예정일(%s)은 주말입니다. 학교 행정실 업무일을 확인해 주세요.", formatKoreanDate(date))
}
