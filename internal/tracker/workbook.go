// Package tracker reads the application tracker spreadsheet.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"job-digest/internal/logger"
	"job-digest/internal/models"
)

const (
	colCompany = iota
	colRole
	colRoleLink
	colStatus
	colContacts
)

// sectionMarker flags rows that are headings inside the sheet, not companies.
const sectionMarker = "Program/Product"

type Contact struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Entry struct {
	Company  string    `json:"company"`
	Role     string    `json:"role"`
	RoleLink string    `json:"role_link,omitempty"`
	Status   string    `json:"status"`
	Contacts []Contact `json:"contacts,omitempty"`
}

func (e Entry) State() Status { return Classify(e.Status) }

// Tracker is the deduplicated content of one workbook, in sheet order.
type Tracker struct {
	entries []Entry
	index   map[string]int
}

// New builds a tracker from entries in order, merging repeated companies the
// way Load does.
func New(entries ...Entry) *Tracker {
	t := &Tracker{index: map[string]int{}}
	for _, e := range entries {
		t.add(e)
	}
	return t
}

func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Tracker) Lookup(company string) (Entry, bool) {
	i, ok := t.index[models.Normalize(company)]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

func (t *Tracker) Companies() models.CompanySet {
	set := models.NewCompanySet()
	for _, e := range t.entries {
		set.Add(e.Company)
	}
	return set
}

// Summary counts tracked companies per status.
type Summary struct {
	Tracked int
	Counts  map[Status]int
}

func (s Summary) Count(st Status) int { return s.Counts[st] }

func (t *Tracker) Summary() Summary {
	s := Summary{Tracked: len(t.entries), Counts: map[Status]int{}}
	for _, e := range t.entries {
		s.Counts[e.State()]++
	}
	return s
}

func (t *Tracker) add(e Entry) {
	key := models.Normalize(e.Company)
	i, ok := t.index[key]
	if !ok {
		t.index[key] = len(t.entries)
		t.entries = append(t.entries, e)
		return
	}
	cur := t.entries[i]
	if dedupPriority(e.Status) > dedupPriority(cur.Status) {
		if e.RoleLink == "" {
			e.RoleLink = cur.RoleLink
		}
		if len(e.Contacts) == 0 {
			e.Contacts = cur.Contacts
		}
		t.entries[i] = e
		return
	}
	if cur.RoleLink == "" {
		cur.RoleLink = e.RoleLink
	}
	if len(cur.Contacts) == 0 {
		cur.Contacts = e.Contacts
	}
	t.entries[i] = cur
}

// Workbook is an .xlsx tracker on disk. The active sheet is read; its first
// row is a header.
type Workbook struct {
	Path string
}

func NewWorkbook(path string) *Workbook {
	return &Workbook{Path: path}
}

// TrackedCompanies implements the hot-jobs tracker collaborator.
func (w *Workbook) TrackedCompanies(ctx context.Context) (models.CompanySet, error) {
	t, err := w.Load(ctx)
	if err != nil {
		return nil, err
	}
	return t.Companies(), nil
}

func (w *Workbook) Load(ctx context.Context) (*Tracker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, cleanup, err := w.open()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	t := New()
	for i, row := range rows {
		if i == 0 {
			continue
		}
		company := strings.TrimSpace(cell(row, colCompany))
		if company == "" || strings.Contains(company, sectionMarker) {
			continue
		}
		rowNum := i + 1
		e := Entry{
			Company: company,
			Role:    strings.TrimSpace(cell(row, colRole)),
			Status:  strings.TrimSpace(cell(row, colStatus)),
		}
		if e.RoleLink, err = roleLink(f, sheet, rowNum, cell(row, colRoleLink)); err != nil {
			return nil, err
		}
		if e.Contacts, err = contacts(f, sheet, rowNum, cell(row, colContacts)); err != nil {
			return nil, err
		}
		t.add(e)
	}
	log := logger.Get()
	log.Debug().Str("path", w.Path).Int("companies", len(t.entries)).Msg("Tracker read")
	return t, nil
}

// open reads the workbook, falling back to a private copy when the file is
// locked by a spreadsheet application.
func (w *Workbook) open() (*excelize.File, func(), error) {
	f, err := excelize.OpenFile(w.Path)
	if err == nil {
		return f, func() { f.Close() }, nil
	}
	if !errors.Is(err, fs.ErrPermission) {
		return nil, nil, fmt.Errorf("opening tracker: %w", err)
	}

	log := logger.Get()
	log.Warn().Str("path", w.Path).Msg("Tracker locked, reading from a temporary copy")
	tmp, err := copyToTemp(w.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("copying locked tracker: %w", err)
	}
	f, err = excelize.OpenFile(tmp)
	if err != nil {
		os.Remove(tmp)
		return nil, nil, fmt.Errorf("opening tracker copy: %w", err)
	}
	return f, func() {
		f.Close()
		os.Remove(tmp)
	}, nil
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "tracker-*.xlsx")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

// roleLink prefers a URL typed into the cell and falls back to the cell's
// hyperlink. Anything that is not an http(s) URL is dropped.
func roleLink(f *excelize.File, sheet string, row int, value string) (string, error) {
	link := strings.TrimSpace(value)
	if !strings.HasPrefix(link, "http") {
		ok, target, err := f.GetCellHyperLink(sheet, cellName(colRoleLink, row))
		if err != nil {
			return "", fmt.Errorf("reading role link at row %d: %w", row, err)
		}
		link = ""
		if ok {
			link = strings.TrimSpace(target)
		}
	}
	if !strings.HasPrefix(link, "http") {
		return "", nil
	}
	return link, nil
}

var (
	hyperlinkFormula = regexp.MustCompile(`^HYPERLINK\("([^"]+)"\s*,\s*"([^"]+)"\)$`)
	lineBreakJoin    = regexp.MustCompile(`\s*&\s*CHAR\(10\)\s*&\s*`)
)

// contacts reads the HR column, which holds either HYPERLINK formulas joined
// by line breaks, a plain name with a cell hyperlink, or plain text.
func contacts(f *excelize.File, sheet string, row int, value string) ([]Contact, error) {
	ref := cellName(colContacts, row)
	formula, err := f.GetCellFormula(sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("reading contacts at row %d: %w", row, err)
	}
	if formula = strings.TrimPrefix(strings.TrimSpace(formula), "="); formula != "" {
		var out []Contact
		for _, part := range lineBreakJoin.Split(formula, -1) {
			part = strings.TrimSpace(part)
			if m := hyperlinkFormula.FindStringSubmatch(part); m != nil {
				out = append(out, Contact{Name: m[2], URL: m[1]})
				continue
			}
			if name := strings.Trim(part, `"`); name != "" {
				out = append(out, Contact{Name: name})
			}
		}
		return out, nil
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	ok, target, err := f.GetCellHyperLink(sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("reading contacts at row %d: %w", row, err)
	}
	if ok {
		return []Contact{{Name: value, URL: target}}, nil
	}
	return []Contact{{Name: value}}, nil
}
