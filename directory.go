package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tsawler/tabula/xlsx"
)

// ---------------------------------------------------------------------------
// School Directory
// ---------------------------------------------------------------------------

// SchoolDirectory maps regions to their schools and schools to the mailbox
// that receives submissions.
type SchoolDirectory struct {
	regions []string
	schools map[string][]string
	emails  map[string]string
}

// Regions returns the regions in sorted order.
func (d *SchoolDirectory) Regions() []string {
	return append([]string(nil), d.regions...)
}

// Schools returns the schools of a region in spreadsheet order.
func (d *SchoolDirectory) Schools(region string) []string {
	return append([]string(nil), d.schools[region]...)
}

// HasSchool reports whether school is listed under region.
func (d *SchoolDirectory) HasSchool(region, school string) bool {
	for _, s := range d.schools[region] {
		if s == school {
			return true
		}
	}
	return false
}

// Email returns the mailbox of the first row naming school.
func (d *SchoolDirectory) Email(school string) (string, bool) {
	email, ok := d.emails[school]
	return email, ok
}

// DirectorySource loads a fresh directory on every call.
type DirectorySource interface {
	Load() (*SchoolDirectory, error)
}

// xlsxDirectory reads the directory from a spreadsheet.
type xlsxDirectory struct {
	conf DirectoryConfig
}

// Load opens the spreadsheet and builds the directory. Unreadable files and
// missing columns are configuration errors.
func (x xlsxDirectory) Load() (*SchoolDirectory, error) {
	r, err := xlsx.Open(x.conf.Path)
	if err != nil {
		return nil, &ConfigurationError{Resource: "directory " + x.conf.Path, Err: err}
	}
	defer r.Close()

	var sheet *xlsx.Sheet
	if x.conf.Sheet != "" {
		sheet, err = r.SheetByName(x.conf.Sheet)
	} else {
		sheet, err = r.Sheet(0)
	}
	if err != nil {
		return nil, &ConfigurationError{Resource: "directory " + x.conf.Path, Err: err}
	}

	d, err := buildDirectory(sheetRows(sheet), x.conf)
	if err != nil {
		return nil, &ConfigurationError{Resource: "directory " + x.conf.Path, Err: err}
	}
	return d, nil
}

// sheetRows flattens a worksheet into trimmed cell values.
func sheetRows(sheet *xlsx.Sheet) [][]string {
	rows := make([][]string, 0, sheet.RowCount())
	for r := 0; r < sheet.RowCount(); r++ {
		row := make([]string, sheet.ColCount())
		for c := range row {
			if cell := sheet.Cell(r, c); cell != nil {
				row[c] = strings.TrimSpace(cell.Value)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// buildDirectory groups the data rows below the header row.
func buildDirectory(rows [][]string, conf DirectoryConfig) (*SchoolDirectory, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	header := rows[0]
	index := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}
	regionCol, schoolCol, emailCol := index(conf.RegionColumn), index(conf.SchoolColumn), index(conf.EmailColumn)
	if regionCol < 0 || schoolCol < 0 || emailCol < 0 {
		return nil, fmt.Errorf("spreadsheet must have %q, %q and %q columns",
			conf.RegionColumn, conf.SchoolColumn, conf.EmailColumn)
	}

	d := &SchoolDirectory{
		schools: make(map[string][]string),
		emails:  make(map[string]string),
	}
	cell := func(row []string, col int) string {
		if col < len(row) {
			return row[col]
		}
		return ""
	}

	for _, row := range rows[1:] {
		region, school, email := cell(row, regionCol), cell(row, schoolCol), cell(row, emailCol)
		if region == "" || school == "" {
			continue
		}
		if _, seen := d.schools[region]; !seen {
			d.regions = append(d.regions, region)
		}
		d.schools[region] = append(d.schools[region], school)
		if _, seen := d.emails[school]; !seen {
			d.emails[school] = email
		}
	}
	sort.Strings(d.regions)

	return d, nil
}
