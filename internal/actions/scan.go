package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
)

// Bag keys read or written by the scan actions.
const (
	KeyScanType    = "scantype"
	KeyScanSubtype = "scansubtype"
	KeyScanID      = "scanid"
	KeyCmdStdout   = "cmd_stdout"
)

// Result kinds counted by scan.compare.
const (
	resultPass          = "pass"
	resultFail          = "fail"
	resultNotApplicable = "notapplicable"
)

const resultFileExt = ".txt"

// --- JSON Schemas ---

const createScanIDConfigSchema = `{
  "type": "object",
  "properties": {
    "output_key_name": {"type": "string", "minLength": 1},
    "next_action": {"type": "string"}
  },
  "required": ["next_action"]
}`

const compareConfigSchema = `{
  "type": "object",
  "properties": {
    "scan_result_1_key_name": {"type": "string", "minLength": 1},
    "scan_result_2_key_name": {"type": "string", "minLength": 1},
    "output_key_name": {"type": "string", "minLength": 1},
    "next_action": {"type": "string"}
  },
  "required": ["scan_result_1_key_name", "scan_result_2_key_name", "output_key_name", "next_action"]
}`

const fetchResultConfigSchema = `{
  "type": "object",
  "properties": {
    "path": {"type": "string", "minLength": 1},
    "scan_id_key_name": {"type": "string", "minLength": 1},
    "output_key_name": {"type": "string", "minLength": 1},
    "next_action": {"type": "string"}
  },
  "required": ["path", "scan_id_key_name", "output_key_name", "next_action"]
}`

const listHistoryConfigSchema = `{
  "type": "object",
  "properties": {
    "path": {"type": "string", "minLength": 1},
    "output_key_name": {"type": "string", "minLength": 1},
    "ignore_missing": {"type": "boolean"},
    "next_action": {"type": "string"}
  },
  "required": ["path", "output_key_name", "next_action"]
}`

const saveResultConfigSchema = `{
  "type": "object",
  "properties": {
    "path": {"type": "string", "minLength": 1},
    "scan_id_key_name": {"type": "string", "minLength": 1},
    "input_key_name": {"type": "string", "minLength": 1},
    "output_key_name": {"type": "string", "minLength": 1},
    "next_action": {"type": "string"}
  },
  "required": ["path", "next_action"]
}`

// --- scan.create_id ---

type createScanIDAction struct {
	step
	outputKey string
	deps      *Deps
}

func newCreateScanID(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("scan.create_id", cfg)
	if err != nil {
		return nil, err
	}
	out, err := cfg.StringOr("output_key_name", KeyScanID)
	if err != nil {
		return nil, err
	}
	return &createScanIDAction{step: st, outputKey: out, deps: deps}, nil
}

func (a *createScanIDAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	logging.LogWith(ctx, a.deps.Logger).Debug("creating scan id")

	scanType, err := bag.String(KeyScanType)
	if err != nil {
		return nil, a.fail(err)
	}
	subtype, err := bag.String(KeyScanSubtype)
	if err != nil {
		return nil, a.fail(err)
	}

	bag.Set(a.outputKey, fmt.Sprintf("%d_%s_%s", a.deps.Now().Unix(), scanType, subtype))
	return a.finish(bag), nil
}

// --- scan.compare ---

// ScanStats counts the result kinds found in a scan report.
type ScanStats struct {
	Pass          int
	Fail          int
	NotApplicable int
}

// CountResults counts non-overlapping occurrences of each result kind in report.
func CountResults(report string) ScanStats {
	return ScanStats{
		Pass:          strings.Count(report, resultPass),
		Fail:          strings.Count(report, resultFail),
		NotApplicable: strings.Count(report, resultNotApplicable),
	}
}

// Diff returns the absolute per-kind difference between s and other.
func (s ScanStats) Diff(other ScanStats) ScanStats {
	return ScanStats{
		Pass:          abs(s.Pass - other.Pass),
		Fail:          abs(s.Fail - other.Fail),
		NotApplicable: abs(s.NotApplicable - other.NotApplicable),
	}
}

func (s ScanStats) format(label string) string {
	return fmt.Sprintf("%s - %s: %d %s: %d %s: %d", label,
		resultPass, s.Pass, resultFail, s.Fail, resultNotApplicable, s.NotApplicable)
}

// FormatComparison renders the three-line comparison report.
func FormatComparison(first, second ScanStats) string {
	return strings.Join([]string{
		first.format("Scan 1"),
		second.format("Scan 2"),
		first.Diff(second).format("Diff"),
	}, "\n")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

type compareAction struct {
	step
	firstKey, secondKey, outputKey string
	deps                           *Deps
}

func newCompare(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("scan.compare", cfg)
	if err != nil {
		return nil, err
	}
	a := &compareAction{step: st, deps: deps}
	if a.firstKey, err = cfg.String("scan_result_1_key_name"); err != nil {
		return nil, err
	}
	if a.secondKey, err = cfg.String("scan_result_2_key_name"); err != nil {
		return nil, err
	}
	if a.outputKey, err = cfg.String("output_key_name"); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *compareAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	logging.LogWith(ctx, a.deps.Logger).Debug("comparing scan results")

	first, err := bag.String(a.firstKey)
	if err != nil {
		return nil, a.fail(err)
	}
	second, err := bag.String(a.secondKey)
	if err != nil {
		return nil, a.fail(err)
	}

	bag.Set(a.outputKey, FormatComparison(CountResults(first), CountResults(second)))
	return a.finish(bag), nil
}

// --- scan.fetch_result ---

type fetchResultAction struct {
	step
	path, scanIDKey, outputKey string
	deps                       *Deps
}

func newFetchResult(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("scan.fetch_result", cfg)
	if err != nil {
		return nil, err
	}
	a := &fetchResultAction{step: st, deps: deps}
	if a.path, err = templateConfig(cfg, "path", deps); err != nil {
		return nil, err
	}
	if a.scanIDKey, err = cfg.String("scan_id_key_name"); err != nil {
		return nil, err
	}
	if a.outputKey, err = cfg.String("output_key_name"); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *fetchResultAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	file, err := resultFile(ctx, a.deps, a.path, a.scanIDKey, bag)
	if err != nil {
		return nil, a.fail(err)
	}
	logging.LogWith(ctx, a.deps.Logger).Debug("fetching scan result", "file", file)

	text, err := a.deps.Files.ReadText(file)
	if err != nil {
		return nil, a.fail(err)
	}
	bag.Set(a.outputKey, text)
	return a.finish(bag), nil
}

// --- scan.list_history ---

type listHistoryAction struct {
	step
	path, outputKey string
	ignoreMissing   bool
	deps            *Deps
}

func newListHistory(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("scan.list_history", cfg)
	if err != nil {
		return nil, err
	}
	a := &listHistoryAction{step: st, deps: deps}
	if a.path, err = templateConfig(cfg, "path", deps); err != nil {
		return nil, err
	}
	if a.outputKey, err = cfg.String("output_key_name"); err != nil {
		return nil, err
	}
	if a.ignoreMissing, err = cfg.Bool("ignore_missing", false); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *listHistoryAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	log := logging.LogWith(ctx, a.deps.Logger)

	dir, err := a.deps.Templates.Render(ctx, a.path, bag.Lookup())
	if err != nil {
		return nil, a.fail(err)
	}
	log.Debug("listing scan history", "dir", dir)

	names, err := a.deps.Files.ListFiles(dir)
	if err != nil {
		if !a.ignoreMissing || !errors.Is(err, fs.ErrNotExist) {
			return nil, a.fail(err)
		}
		log.Warn("scan history directory does not exist", "dir", dir)
		names = []string{}
	}
	bag.Set(a.outputKey, names)
	return a.finish(bag), nil
}

// --- scan.save_result ---

type saveResultAction struct {
	step
	path, scanIDKey, inputKey, outputKey string
	deps                                 *Deps
}

func newSaveResult(cfg Config, deps *Deps) (Action, error) {
	st, err := newStep("scan.save_result", cfg)
	if err != nil {
		return nil, err
	}
	a := &saveResultAction{step: st, deps: deps}
	if a.path, err = templateConfig(cfg, "path", deps); err != nil {
		return nil, err
	}
	if a.scanIDKey, err = cfg.StringOr("scan_id_key_name", KeyScanID); err != nil {
		return nil, err
	}
	if a.inputKey, err = cfg.StringOr("input_key_name", KeyCmdStdout); err != nil {
		return nil, err
	}
	if a.outputKey, err = cfg.StringOr("output_key_name", ""); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *saveResultAction) Execute(ctx context.Context, bag schema.DataBag) (schema.DataBag, error) {
	file, err := resultFile(ctx, a.deps, a.path, a.scanIDKey, bag)
	if err != nil {
		return nil, a.fail(err)
	}
	lines, err := bag.Strings(a.inputKey)
	if err != nil {
		return nil, a.fail(err)
	}
	logging.LogWith(ctx, a.deps.Logger).Debug("saving scan result", "file", file, "lines", len(lines))

	if err := a.deps.Files.WriteLines(file, lines); err != nil {
		return nil, a.fail(err)
	}
	if a.outputKey != "" {
		bag.Set(a.outputKey, file)
	}
	return a.finish(bag), nil
}

// --- helpers ---

// templateConfig reads a required ${{ }} template and checks its syntax.
func templateConfig(cfg Config, key string, deps *Deps) (string, error) {
	tmpl, err := cfg.String(key)
	if err != nil {
		return "", err
	}
	if err := deps.Templates.Validate(tmpl); err != nil {
		return "", invalidConfig("config %q is not a valid template", key).WithCause(err)
	}
	return tmpl, nil
}

// resultFile renders the directory template and joins it with <scan id>.txt.
func resultFile(ctx context.Context, deps *Deps, pathTmpl, scanIDKey string, bag schema.DataBag) (string, error) {
	scanID, err := bag.String(scanIDKey)
	if err != nil {
		return "", err
	}
	if scanID == "" || strings.ContainsAny(scanID, `/\`) || scanID == "." || scanID == ".." {
		return "", schema.NewErrorf(schema.ErrCodeInvalidInput, "invalid scan id %q", scanID)
	}
	dir, err := deps.Templates.Render(ctx, pathTmpl, bag.Lookup())
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, scanID+resultFileExt), nil
}
