package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"certdash/internal/domain"
)

const (
	ColumnName         = "Name"
	ColumnDate         = "Date"
	ColumnGroup        = "Group"
	ColumnOrganization = "Organization"
	ColumnLink         = "Link"
)

var (
	requiredColumns = []string{ColumnName, ColumnDate, ColumnGroup, ColumnOrganization}
	knownColumns    = []string{ColumnName, ColumnDate, ColumnGroup, ColumnOrganization, ColumnLink}
)

var (
	errMissingColumn = errors.New("missing column in header")
	errEmptyField    = errors.New("required field is empty")
)

// Load reads the certificate CSV at path. The whole file is rejected on the
// first malformed row.
func Load(path string) ([]domain.CertificateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open certificate file: %w", err)
	}
	defer f.Close()

	records, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}

// LoadReader parses certificate records from CSV content with a header row.
func LoadReader(r io.Reader) ([]domain.CertificateRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, csvError(err)
	}
	columns, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var records []domain.CertificateRecord
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := parseRecord(fields, columns, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func indexHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		for _, known := range knownColumns {
			if strings.EqualFold(name, known) {
				if _, dup := columns[known]; !dup {
					columns[known] = i
				}
			}
		}
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, &DataFormatError{Row: 1, Column: name, Err: errMissingColumn}
		}
	}
	return columns, nil
}

func parseRecord(fields []string, columns map[string]int, line int) (domain.CertificateRecord, error) {
	value := func(column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	for _, column := range requiredColumns {
		if value(column) == "" {
			return domain.CertificateRecord{}, &DataFormatError{Row: line, Column: column, Err: errEmptyField}
		}
	}

	rawDate := value(ColumnDate)
	month, err := ParseMonth(rawDate)
	if err != nil {
		return domain.CertificateRecord{}, &DataFormatError{Row: line, Column: ColumnDate, Value: rawDate, Err: err}
	}

	name := value(ColumnName)
	link := value(ColumnLink)
	return domain.CertificateRecord{
		Name:         name,
		Date:         month,
		Group:        value(ColumnGroup),
		Organization: value(ColumnOrganization),
		Link:         link,
		NameLink:     domain.NameWithLink(name, link),
		Row:          line,
	}, nil
}

// ParseMonth parses a "Mon-YY" value such as "Jan-23" or "jan-23".
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 3 {
		s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:3]) + s[3:]
	}
	t, err := time.Parse(domain.InputDateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want format %q", "Mon-YY")
	}
	return domain.MonthOf(t), nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &DataFormatError{Row: pe.StartLine, Column: fmt.Sprintf("#%d", pe.Column), Err: pe.Err}
	}
	return fmt.Errorf("read csv: %w", err)
}
