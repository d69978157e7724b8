package forms

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ValidIMEI reports whether s is a 15-digit IMEI with a valid Luhn check digit
func ValidIMEI(s string) bool {
	if len(s) != 15 {
		return false
	}
	sum := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		// every second digit from the right, check digit excluded
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// InvalidIMEI is a rejected line of an IMEI file
type InvalidIMEI struct {
	Line  int
	Value string
}

// IMEIScan is the outcome of checking an IMEI file before upload
type IMEIScan struct {
	Valid      []string
	Invalid    []InvalidIMEI
	Duplicates []string
}

// OK reports whether every line held a distinct valid IMEI
func (s IMEIScan) OK() bool {
	return len(s.Invalid) == 0 && len(s.Duplicates) == 0
}

// ScanIMEIs reads an IMEI file: one IMEI per line, or a CSV whose first
// column holds the IMEI. A non-numeric first line is taken as a header.
func ScanIMEIs(r io.Reader) (IMEIScan, error) {
	var scan IMEIScan
	seen := make(map[string]bool)

	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return scan, fmt.Errorf("failed to read IMEI file: %w", err)
		}
		line++
		if len(record) == 0 {
			continue
		}
		value := strings.TrimSpace(record[0])
		if value == "" {
			continue
		}
		if line == 1 && !isDigits(value) {
			continue
		}

		switch {
		case !ValidIMEI(value):
			scan.Invalid = append(scan.Invalid, InvalidIMEI{Line: line, Value: value})
		case seen[value]:
			scan.Duplicates = append(scan.Duplicates, value)
		default:
			seen[value] = true
			scan.Valid = append(scan.Valid, value)
		}
	}
	return scan, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
