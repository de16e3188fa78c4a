package store

import (
	"strings"

	"leadscout/internal/domain"
)

var RawHeader = []string{
	"Company Name", "Location", "Phone Number", "Website URL", "Company Size",
	"Primary Contact Name", "Contact Position", "Contact Source",
}

var QualifiedHeader = []string{
	"Company Name", "Location", "State", "Phone Number", "Website URL", "Company Size",
	"Primary Contact Name", "Contact Position", "Contact Source", "Proximity Qualification",
}

func BusinessRow(r domain.BusinessRecord) []string {
	return []string{
		r.CompanyName,
		r.Location,
		r.PhoneNumber,
		r.WebsiteURL,
		string(r.CompanySize),
		r.PrimaryContactName,
		r.ContactPosition,
		r.ContactSource,
	}
}

func BusinessRows(recs []domain.BusinessRecord) [][]string {
	out := make([][]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, BusinessRow(r))
	}
	return out
}

func QualifiedRow(r domain.QualifiedRecord) []string {
	return []string{
		r.CompanyName,
		r.Location,
		r.State,
		r.PhoneNumber,
		r.WebsiteURL,
		string(r.CompanySize),
		r.PrimaryContactName,
		r.ContactPosition,
		r.ContactSource,
		r.ProximityQualification,
	}
}

// StoredRecord is a record read back from a sheet. Row is the 1-based sheet
// row it came from.
type StoredRecord struct {
	Row    int
	Record domain.BusinessRecord
	State  string
}

// DecodeBusinessRows maps sheet values back to records by header name. When
// the first row is not a header the RawHeader column order is assumed. Blank
// rows are skipped; short rows leave the missing fields empty.
func DecodeBusinessRows(values [][]string) []StoredRecord {
	if len(values) == 0 {
		return nil
	}

	cols := map[string]int{}
	start := 0
	for i, name := range values[0] {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols["Company Name"]; ok {
		start = 1
	} else {
		cols = map[string]int{}
		for i, name := range RawHeader {
			cols[name] = i
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []StoredRecord
	for i := start; i < len(values); i++ {
		row := values[i]
		if blank(row) {
			continue
		}
		out = append(out, StoredRecord{
			Row: i + 1,
			Record: domain.BusinessRecord{
				CompanyName:        cell(row, "Company Name"),
				Location:           cell(row, "Location"),
				PhoneNumber:        cell(row, "Phone Number"),
				WebsiteURL:         cell(row, "Website URL"),
				CompanySize:        domain.CompanySize(cell(row, "Company Size")),
				PrimaryContactName: cell(row, "Primary Contact Name"),
				ContactPosition:    cell(row, "Contact Position"),
				ContactSource:      cell(row, "Contact Source"),
			},
			State: cell(row, "State"),
		})
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
