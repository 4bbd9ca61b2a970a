// Package roster reads class lists in the "id, name, gender" text format.
package roster

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/iliyamo/classroom-seating/internal/seating"
)

// Result is the outcome of a parse. Skipped counts lines that were dropped
// as malformed; blank lines and all-empty records are not counted.
type Result struct {
	Students []seating.Student `json:"students"`
	Skipped  int               `json:"skipped"`
}

const bom = "\ufeff"

// maxLine bounds a single roster line.
const maxLine = 64 * 1024

// Parse reads one student per line. Lines with fewer than three fields, an
// empty id or an unrecognized gender token are skipped; parsing never stops
// on a bad line. Each line is its own CSV record, so an unbalanced quote
// cannot run into the next line. Only read errors from r are returned.
func Parse(r io.Reader) (Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	res := Result{Students: []seating.Student{}}
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := splitLine(line)
		if err != nil {
			res.Skipped++
			continue
		}
		if blank(rec) {
			continue
		}
		st, ok := record(rec)
		if !ok {
			res.Skipped++
			continue
		}
		res.Students = append(res.Students, st)
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// splitLine parses one line as a CSV record. Quoted fields may contain
// commas and bare quotes are kept as text.
func splitLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1 // records may vary in length
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr.Read()
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) Result {
	res, _ := Parse(strings.NewReader(s)) // strings.Reader never fails
	return res
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func record(rec []string) (seating.Student, bool) {
	if len(rec) < 3 {
		return seating.Student{}, false
	}
	id := strings.TrimSpace(rec[0])
	name := strings.TrimSpace(rec[1])
	g, ok := seating.ParseGender(rec[2])
	if id == "" || !ok {
		return seating.Student{}, false
	}
	return seating.Student{ID: id, Name: name, Gender: g}, true
}
