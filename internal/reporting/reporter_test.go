package reporting

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/verdict/api/schemas"
	"github.com/xkilldash9x/verdict/internal/reporting/sarif"
)

// closableBuffer records whether Close was called on the report sink.
type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func sampleReport() *schemas.Report {
	return &schemas.Report{
		ScanID:      "3d9c8f4e-0000-0000-0000-000000000001",
		ToolVersion: "0.1.0",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Context:     schemas.EvaluationContext{Language: "go", ProjectTier: "payment"},
		Findings: []schemas.Finding{
			{
				ID:       "f1",
				Category: "security",
				Severity: schemas.SeverityCritical,
				Location: schemas.Location{Path: "a.go", StartLine: 3, EndLine: 4},
				Message:  "Hardcoded credential",
				Remediation: "Externalize the secret.",
				RuleIDs:  []string{"SEC-001", "SEC-002"},
			},
			{
				ID:       "f2",
				Category: "style",
				Severity: schemas.SeverityInfo,
				Location: schemas.Location{Path: "b.go", StartLine: 1, EndLine: 1},
				Message:  "Tab indentation",
				RuleIDs:  []string{"STYLE-001"},
			},
		},
		Summary: schemas.Summary{
			TotalFindings: 2,
			BySeverity: map[schemas.Severity]int{
				schemas.SeverityCritical: 1,
				schemas.SeverityInfo:     1,
			},
			ByCategory: map[string]map[schemas.Severity]int{
				"security": {schemas.SeverityCritical: 1},
				"style":    {schemas.SeverityInfo: 1},
			},
			WorstPerFile: map[string]schemas.Severity{
				"a.go": schemas.SeverityCritical,
				"b.go": schemas.SeverityInfo,
			},
		},
	}
}

func TestSortFindings(t *testing.T) {
	findings := []schemas.Finding{
		{ID: "d", Category: "style", Severity: schemas.SeverityInfo, Location: schemas.Location{Path: "z.go", StartLine: 1}},
		{ID: "b", Category: "security", Severity: schemas.SeverityHigh, Location: schemas.Location{Path: "a.go", StartLine: 9}},
		{ID: "a", Category: "security", Severity: schemas.SeverityHigh, Location: schemas.Location{Path: "a.go", StartLine: 2}},
		{ID: "c", Category: "access-control", Severity: schemas.SeverityHigh, Location: schemas.Location{Path: "a.go", StartLine: 5}},
		{ID: "e", Category: "security", Severity: schemas.SeverityCritical, Location: schemas.Location{Path: "m.go", StartLine: 1}},
	}

	sorted := SortFindings(findings)

	order := make([]string, len(sorted))
	for i, f := range sorted {
		order[i] = f.ID
	}
	// Severity desc, then category, then path, then line, then id.
	assert.Equal(t, []string{"e", "c", "a", "b", "d"}, order)

	t.Run("input is not mutated", func(t *testing.T) {
		assert.Equal(t, "d", findings[0].ID)
	})

	t.Run("stable across repeated sorts", func(t *testing.T) {
		again := SortFindings(findings)
		assert.Empty(t, cmp.Diff(sorted, again))
	})
}

func TestJSONReporter(t *testing.T) {
	buf := &closableBuffer{}
	r := NewJSONReporter(buf, zaptest.NewLogger(t))

	report := sampleReport()
	require.NoError(t, r.Write(report))
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	var decoded schemas.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, cmp.Diff(*report, decoded))
}

func TestJSONReporter_ByteStableOutput(t *testing.T) {
	// Summary's histograms are maps; the codec must serialize them in one
	// canonical key order so identical reports are byte-identical.
	render := func() []byte {
		buf := &closableBuffer{}
		r := NewJSONReporter(buf, zaptest.NewLogger(t))
		require.NoError(t, r.Write(sampleReport()))
		require.NoError(t, r.Close())
		return buf.Bytes()
	}

	first := render()
	for i := 0; i < 64; i++ {
		require.Equal(t, string(first), string(render()),
			"identical reports must serialize identically")
	}
}

func TestSARIFReporter(t *testing.T) {
	buf := &closableBuffer{}
	r := NewSARIFReporter(buf, zaptest.NewLogger(t))

	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	var log sarif.Log
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))

	assert.Equal(t, SARIFVersion, log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]

	require.NotNil(t, run.Tool.Driver)
	assert.Equal(t, ToolName, run.Tool.Driver.Name)
	require.NotNil(t, run.Tool.Driver.Version)
	assert.Equal(t, "0.1.0", *run.Tool.Driver.Version)

	// One descriptor per primary rule, carrying remediation as help text.
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "SEC-001", run.Tool.Driver.Rules[0].ID)
	require.NotNil(t, run.Tool.Driver.Rules[0].Help)
	assert.Equal(t, "Externalize the secret.", *run.Tool.Driver.Rules[0].Help.Text)

	require.Len(t, run.Results, 2)
	first := run.Results[0]
	assert.Equal(t, "SEC-001", first.RuleID)
	assert.Equal(t, sarif.LevelError, first.Level)
	require.Len(t, first.Locations, 1)
	phys := first.Locations[0].PhysicalLocation
	require.NotNil(t, phys)
	assert.Equal(t, "a.go", *phys.ArtifactLocation.URI)
	require.NotNil(t, phys.Region)
	assert.Equal(t, 3, *phys.Region.StartLine)

	assert.Equal(t, sarif.LevelNote, run.Results[1].Level)
}

func TestNew(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")
		r, err := New("json", path, logger)
		require.NoError(t, err)
		require.NoError(t, r.Write(sampleReport()))
		require.NoError(t, r.Close())
	})

	t.Run("sarif to stdout", func(t *testing.T) {
		r, err := New("sarif", "stdout", logger)
		require.NoError(t, err)
		assert.IsType(t, &SARIFReporter{}, r)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := New("xml", "", logger)
		assert.ErrorContains(t, err, "unsupported output format")
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := New("json", "", nil)
		assert.Error(t, err)
	})
}
