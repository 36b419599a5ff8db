package imports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/platform/phone"
	"admissions_crm/platform/validator"

	"github.com/google/uuid"
)

var ErrMissingColumns = errors.New("import file is missing required columns")

var requiredColumns = []string{"first_name", "email"}

// RowError describes one skipped row. Row is the 1-based line in the file,
// so the header is row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type parsedRow struct {
	line   int
	params repository.CreateLeadParams
}

// header maps a normalised column name to its index.
type header map[string]int

func parseHeader(record []string) (header, error) {
	h := make(header, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return h, nil
}

func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// readRows parses every data row. Rows that fail validation become
// RowErrors; a malformed file or header is returned as an error.
func readRows(r io.Reader, v *validator.Validator, defaultSource *uuid.UUID) ([]parsedRow, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrMissingColumns)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	h, err := parseHeader(first)
	if err != nil {
		return nil, nil, err
	}

	var (
		rows    []parsedRow
		rowErrs []RowError
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rowErrs = append(rowErrs, RowError{Row: perr.StartLine, Message: perr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read rows: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		params, err := h.toParams(record, v, defaultSource)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: err.Error()})
			continue
		}
		rows = append(rows, parsedRow{line: line, params: params})
	}
	return rows, rowErrs, nil
}

func (h header) toParams(record []string, v *validator.Validator, defaultSource *uuid.UUID) (repository.CreateLeadParams, error) {
	p := repository.CreateLeadParams{
		FirstName:        h.get(record, "first_name"),
		LastName:         h.get(record, "last_name"),
		Email:            strings.ToLower(h.get(record, "email")),
		Phone:            phone.NormalizeE164(h.get(record, "phone")),
		SchoolName:       h.get(record, "school_name"),
		CourseInterested: h.get(record, "course_interested"),
		Industry:         h.get(record, "industry"),
		SourceID:         defaultSource,
		Priority:         domain.PriorityMedium,
	}
	if p.FirstName == "" {
		return p, errors.New("first_name is required")
	}
	if err := v.Var(p.Email, "required,email"); err != nil {
		return p, fmt.Errorf("invalid email %q", p.Email)
	}

	grad, err := domain.ParseGraduationStatus(h.get(record, "graduation_status"))
	if err != nil {
		return p, err
	}
	p.GraduationStatus = grad
	if grad == domain.GraduationNo {
		p.GraduationCourse = domain.NotApplicable
		p.GraduationCollege = domain.NotApplicable
	} else {
		p.GraduationCourse = orPlaceholder(h.get(record, "graduation_course"))
		p.GraduationCollege = orPlaceholder(h.get(record, "graduation_college"))
	}

	if raw := h.get(record, "graduation_year"); raw != "" {
		year, err := wholeNumber(raw)
		if err != nil || year < 1950 || year > 2100 {
			return p, fmt.Errorf("invalid graduation_year %q", raw)
		}
		p.GraduationYear = &year
	}

	if raw := h.get(record, "expected_value"); raw != "" {
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return p, fmt.Errorf("invalid expected_value %q", raw)
		}
		p.ExpectedValue = value
	}

	// A per-row source overrides the upload's default when it is a valid ID.
	if raw := h.get(record, "source"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			p.SourceID = &id
		}
	}
	return p, nil
}

// wholeNumber accepts "2021" and the spreadsheet export form "2021.0".
func wholeNumber(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number: %q", raw)
	}
	return int(f), nil
}

func orPlaceholder(s string) string {
	if s == "" {
		return domain.NotSpecified
	}
	return s
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
