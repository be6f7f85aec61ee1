// Package targetlist reads the whitespace separated observing list.
//
//	NAME RA[/pmRA] DEC[/pmDEC] [EPOCH] [OBSTIME|*] [PROJECT] [CONSTRAINT] [TYPE] [OBINFO] [SKYPA]
//	Offline UTC[a-b]|LST[a-b]
//
// "-" leaves an optional field empty and "#" starts a comment. A bad line is
// reported as a diagnostic and skipped; the rest of the list is kept.
package targetlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kilianp07/nightplan/core/constraint"
	"github.com/kilianp07/nightplan/core/model"
)

// DefaultObsTime is the observing time in seconds of a line without one.
const DefaultObsTime = 600.0

const offlineName = "offline"

var (
	ErrFieldCount = errors.New("expected at least NAME RA DEC")
	ErrCoordinate = errors.New("invalid coordinate")
	ErrDuplicate  = errors.New("duplicate target name")
)

// Result is the outcome of reading a list.
type Result struct {
	Targets     []*model.Target
	Offline     []model.OfflinePeriod
	Diagnostics []model.Diagnostic
}

// ParseFile reads the list stored at path.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open target list: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a target list. The error is only set when r fails.
func Parse(r io.Reader) (Result, error) {
	var res Result
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], offlineName) {
			o, err := parseOffline(fields)
			if err != nil {
				res.Diagnostics = append(res.Diagnostics, diagnose(line, "", err))
				continue
			}
			o.Line = line
			res.Offline = append(res.Offline, o)
			continue
		}
		t, err := parseTarget(fields)
		if err == nil && seen[t.Name] {
			err = &constraint.ParseError{Field: "name", Text: t.Name, Err: ErrDuplicate}
		}
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, diagnose(line, fields[0], err))
			continue
		}
		seen[t.Name] = true
		t.Line = line
		t.Order = len(res.Targets)
		res.Targets = append(res.Targets, t)
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read target list: %w", err)
	}
	return res, nil
}

func diagnose(line int, name string, err error) model.Diagnostic {
	var pe *constraint.ParseError
	if errors.As(err, &pe) {
		pe.Line = line
	}
	kind := model.DiagLineInvalid
	if (pe != nil && pe.Field == "constraint") || errors.Is(err, constraint.ErrFillWithoutWindow) {
		kind = model.DiagConstraintInvalid
	}
	return model.Diagnostic{Kind: kind, Target: name, Line: line, Message: err.Error()}
}

func parseOffline(fields []string) (model.OfflinePeriod, error) {
	if len(fields) != 2 {
		return model.OfflinePeriod{}, &constraint.ParseError{Field: "offline", Text: strings.Join(fields, " "), Err: constraint.ErrOfflineWindow}
	}
	return constraint.ParseOffline(fields[1])
}

func field(fields []string, i int) string {
	if i >= len(fields) || fields[i] == "-" {
		return ""
	}
	return fields[i]
}

func parseTarget(fields []string) (*model.Target, error) {
	if len(fields) < 3 {
		return nil, &constraint.ParseError{Field: "line", Text: strings.Join(fields, " "), Err: ErrFieldCount}
	}
	t := &model.Target{Name: fields[0], Epoch: 2000, State: model.StateUnscheduled}
	var err error

	raText, pmra, _ := strings.Cut(fields[1], "/")
	if t.RA, err = ParseRA(raText); err != nil {
		return nil, &constraint.ParseError{Field: "ra", Text: fields[1], Err: err}
	}
	if pmra != "" {
		if t.PMRA, err = constraint.ParseNumber(pmra); err != nil {
			return nil, &constraint.ParseError{Field: "pm_ra", Text: pmra, Err: ErrCoordinate}
		}
	}
	decText, pmdec, _ := strings.Cut(fields[2], "/")
	if t.Dec, err = ParseDec(decText); err != nil {
		return nil, &constraint.ParseError{Field: "dec", Text: fields[2], Err: err}
	}
	if pmdec != "" {
		if t.PMDec, err = constraint.ParseNumber(pmdec); err != nil {
			return nil, &constraint.ParseError{Field: "pm_dec", Text: pmdec, Err: ErrCoordinate}
		}
	}
	if s := field(fields, 3); s != "" {
		if t.Epoch, err = constraint.ParseNumber(strings.TrimPrefix(strings.ToUpper(s), "J")); err != nil {
			return nil, &constraint.ParseError{Field: "epoch", Text: s, Err: ErrCoordinate}
		}
	}
	t.Project = field(fields, 5)
	if t.Constraint, err = constraint.Parse(field(fields, 6)); err != nil {
		return nil, err
	}
	if t.Duration, t.FillWindow, err = constraint.ParseDuration(field(fields, 4), t.Constraint, DefaultObsTime); err != nil {
		return nil, err
	}
	t.Type = field(fields, 7)
	t.OBInfo = field(fields, 8)
	if s := field(fields, 9); s != "" {
		if t.SkyPA, err = constraint.ParseNumber(s); err != nil {
			return nil, &constraint.ParseError{Field: "sky_pa", Text: s, Err: ErrCoordinate}
		}
	}
	return t, nil
}
