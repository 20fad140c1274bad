package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
)

func TestLinearRegression(t *testing.T) {
	// Perfect linear: y = 2x + 1
	points := []dataPoint{
		{0, 1}, {1, 3}, {2, 5}, {3, 7}, {4, 9},
	}

	slope, intercept, rSquared := linearRegression(points)

	if math.Abs(slope-2.0) > 0.001 {
		t.Errorf("expected slope=2.0, got %.3f", slope)
	}
	if math.Abs(intercept-1.0) > 0.001 {
		t.Errorf("expected intercept=1.0, got %.3f", intercept)
	}
	if math.Abs(rSquared-1.0) > 0.001 {
		t.Errorf("expected R²=1.0, got %.3f", rSquared)
	}
}

func TestLinearRegressionNoisy(t *testing.T) {
	// Noisy linear data
	points := []dataPoint{
		{0, 1.1}, {1, 2.9}, {2, 5.2}, {3, 6.8}, {4, 9.1},
	}

	slope, _, rSquared := linearRegression(points)

	// Should be approximately slope=2.0 with high R²
	if slope < 1.5 || slope > 2.5 {
		t.Errorf("expected slope ≈ 2.0, got %.3f", slope)
	}
	if rSquared < 0.95 {
		t.Errorf("expected R² > 0.95, got %.3f", rSquared)
	}
}

func TestLinearRegressionConstant(t *testing.T) {
	// All same y values: flat line
	points := []dataPoint{
		{0, 5}, {1, 5}, {2, 5}, {3, 5},
	}

	slope, intercept, rSquared := linearRegression(points)

	if math.Abs(slope) > 0.001 {
		t.Errorf("expected slope=0, got %.3f", slope)
	}
	if math.Abs(intercept-5.0) > 0.001 {
		t.Errorf("expected intercept=5.0, got %.3f", intercept)
	}
	// R² should be 1.0 for a perfect fit (even if slope=0)
	if rSquared < 0.99 {
		t.Errorf("expected R²=1.0, got %.3f", rSquared)
	}
}

func TestLinearRegressionSinglePoint(t *testing.T) {
	points := []dataPoint{{0, 5}}
	slope, _, _ := linearRegression(points)

	if slope != 0 {
		t.Errorf("expected slope=0 for single point, got %.3f", slope)
	}
}

const reportDoc = `{
  "document_meta": {"title": "Survey"},
  "points": [
    {"uuid": "a", "frames": [1]},
    {"uuid": "b", "frames": 2},
    {"uuid": "c", "frames": ["2"]},
    {"uuid": "d", "frames": [4]},
    {"uuid": "e"},
    {"uuid": "a", "frames": [9]},
    {"position": [0, 0, 0]}
  ],
  "lines": [{"uuid": "l1", "end_a": {"ref": "a"}, "end_b": {"ref": "ghost"}}],
  "aux": [
    {"uuid": "g1", "module": "grid"},
    {"uuid": "g2", "appearance": {"module": "grid"}},
    {"uuid": "h1", "module": "halo"}
  ]
}`

func parseDoc(t *testing.T, src string) *scene.Document {
	t.Helper()
	doc, err := scene.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

// TestAnalyzeDocument verifies counts, the frame histogram, gaps,
// modules and dangling references on a small document.
func TestAnalyzeDocument(t *testing.T) {
	report := NewAnalyzer(nil).AnalyzeDocument(parseDoc(t, reportDoc))

	if report.Title != "Survey" {
		t.Errorf("expected title Survey, got %q", report.Title)
	}
	if report.Entities != 9 {
		t.Errorf("expected 9 indexed entities, got %d", report.Entities)
	}
	points := report.Kinds[0]
	if points.Kind != scene.KindPoints || points.Entities != 7 || points.Indexed != 4 ||
		points.Unrestricted != 1 || points.Skipped != 1 {
		t.Errorf("unexpected points summary: %+v", points)
	}
	if report.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", report.Duplicates)
	}

	want := []FrameBucket{{1, 1, 6}, {2, 2, 7}, {4, 1, 6}}
	if len(report.Frames) != len(want) {
		t.Fatalf("expected %d frames, got %+v", len(want), report.Frames)
	}
	for i, b := range want {
		if report.Frames[i] != b {
			t.Errorf("frame %d: expected %+v, got %+v", i, b, report.Frames[i])
		}
	}
	if len(report.FrameGaps) != 1 || report.FrameGaps[0] != 3 {
		t.Errorf("expected gap at frame 3, got %v", report.FrameGaps)
	}
	if report.Trend == nil || report.Trend.Direction != "flat" {
		t.Errorf("expected a flat trend, got %+v", report.Trend)
	}
	if len(report.Hotspots) != 0 {
		t.Errorf("expected no hotspots, got %+v", report.Hotspots)
	}

	if len(report.Modules) != 2 || report.Modules[0] != (ModuleCount{"grid", 2}) {
		t.Errorf("unexpected modules: %+v", report.Modules)
	}
	if len(report.Dangling) != 1 || report.Dangling[0] != (DanglingRef{"l1", "ghost"}) {
		t.Errorf("unexpected dangling refs: %+v", report.Dangling)
	}
	if len(report.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", report.Warnings)
	}
}

// TestDensityTrendGrowing verifies trend direction on a steadily
// filling document.
func TestDensityTrendGrowing(t *testing.T) {
	var frames []FrameBucket
	for f := 1; f <= 5; f++ {
		frames = append(frames, FrameBucket{Frame: f, Entities: 2 * f})
	}
	trend := densityTrend(frames)
	if trend == nil || trend.Direction != "growing" {
		t.Fatalf("expected growing trend, got %+v", trend)
	}
	if math.Abs(trend.Slope-2.0) > 0.001 {
		t.Errorf("expected slope=2.0, got %.3f", trend.Slope)
	}
	if densityTrend(frames[:1]) != nil {
		t.Error("expected no trend for a single frame")
	}
}

// TestDetectHotspots verifies Z-score severity on one crowded frame.
func TestDetectHotspots(t *testing.T) {
	var frames []FrameBucket
	for f := 0; f < 10; f++ {
		frames = append(frames, FrameBucket{Frame: f, Entities: 1})
	}
	frames = append(frames, FrameBucket{Frame: 10, Entities: 12})

	hotspots := detectHotspots(frames)
	if len(hotspots) != 1 {
		t.Fatalf("expected 1 hotspot, got %+v", hotspots)
	}
	if hotspots[0].Frame != 10 || hotspots[0].Severity != "high" {
		t.Errorf("unexpected hotspot: %+v", hotspots[0])
	}
}

// TestAnalyzeStored verifies loading by reference and both output formats.
func TestAnalyzeStored(t *testing.T) {
	svc, err := database.NewDBService(":memory:")
	if err != nil {
		t.Fatalf("NewDBService failed: %v", err)
	}
	defer svc.Close()

	rec := database.NewDocument("survey", "", []byte(reportDoc))
	if _, err := svc.SaveDocument(rec); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	a := NewAnalyzer(svc)
	report, err := a.Analyze("survey")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Document == nil || report.Document.DocID != rec.DocID {
		t.Fatalf("expected report for %s, got %+v", rec.DocID, report.Document)
	}

	md := a.FormatReport(report)
	for _, want := range []string{"# Vantage Analysis Report", "**Title:** Survey", "| points | 7 | 4 | 1 | 1 |", "`grid`: 2", "`l1` → `ghost`"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown report missing %q", want)
		}
	}

	out, err := a.FormatJSON(report)
	if err != nil {
		t.Fatalf("FormatJSON failed: %v", err)
	}
	if !strings.Contains(out, `"duplicates": 1`) {
		t.Errorf("expected duplicates in JSON, got %s", out)
	}

	if _, err := a.Analyze("missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := NewAnalyzer(nil).Analyze("survey"); err == nil {
		t.Error("expected an error without a store")
	}
}
