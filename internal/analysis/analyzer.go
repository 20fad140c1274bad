// Package analysis provides deterministic structural reports for scene
// documents. All analysis is plain counting and statistics over the
// structural index.
//
// Key capabilities:
//   - Per-kind entity counts, split into frame-indexed and unrestricted
//   - Frame density histogram with a linear-regression trend
//   - Busy-frame detection via Z-score analysis
//   - Aux module breakdown and dangling line references
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/pkg/timeutil"
)

// Analyzer builds reports for stored or in-memory documents.
type Analyzer struct {
	store database.Store
}

// NewAnalyzer creates a new analysis engine backed by the given store.
// The store may be nil when only AnalyzeDocument is used.
func NewAnalyzer(store database.Store) *Analyzer {
	return &Analyzer{store: store}
}

// ============================================================
// Entity Counts
// ============================================================

// KindSummary counts the entities of one collection.
type KindSummary struct {
	Kind         scene.Kind `json:"kind"`
	Entities     int        `json:"entities"`
	Indexed      int        `json:"indexed"`
	Unrestricted int        `json:"unrestricted"`
	Skipped      int        `json:"skipped"`
}

func summarizeKinds(doc *scene.Document, idx *structindex.Index) []KindSummary {
	out := make([]KindSummary, 0, len(scene.Kinds))
	for _, k := range scene.Kinds {
		s := KindSummary{
			Kind:         k,
			Entities:     len(doc.Collection(k)),
			Unrestricted: len(idx.UUIDsWithoutFramesByKind[k]),
			Skipped:      idx.Skipped[k],
		}
		framed := make(structindex.Set)
		for _, set := range idx.FrameIndex[k] {
			for id := range set {
				framed.Add(id)
			}
		}
		s.Indexed = len(framed)
		out = append(out, s)
	}
	return out
}

// ============================================================
// Frame Density
// ============================================================

// FrameBucket is the population of one frame.
type FrameBucket struct {
	Frame int `json:"frame"`
	// Entities counts entities indexed under this frame.
	Entities int `json:"entities"`
	// Visible adds the unrestricted entities shown in every frame.
	Visible int `json:"visible"`
}

// DensityTrend is a least-squares fit of entities per frame.
type DensityTrend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Direction string  `json:"direction"` // "growing", "shrinking", "flat"
}

// FrameHotspot is a frame with abnormally many entities.
type FrameHotspot struct {
	Frame    int     `json:"frame"`
	Entities int     `json:"entities"`
	ZScore   float64 `json:"z_score"`
	Severity string  `json:"severity"` // "low", "medium", "high"
}

// dataPoint represents a single observation for regression analysis.
type dataPoint struct {
	x float64
	y float64
}

func frameHistogram(idx *structindex.Index) []FrameBucket {
	unrestricted := 0
	for _, set := range idx.UUIDsWithoutFramesByKind {
		unrestricted += len(set)
	}
	frames := idx.Frames()
	out := make([]FrameBucket, 0, len(frames))
	for _, f := range frames {
		n := 0
		for _, k := range scene.Kinds {
			n += len(idx.FrameIndex[k][f])
		}
		out = append(out, FrameBucket{Frame: f, Entities: n, Visible: n + unrestricted})
	}
	return out
}

// frameGaps lists the frames between the first and last populated frame
// that hold no indexed entity.
func frameGaps(frames []FrameBucket) []int {
	var gaps []int
	for i := 1; i < len(frames); i++ {
		for f := frames[i-1].Frame + 1; f < frames[i].Frame; f++ {
			gaps = append(gaps, f)
		}
	}
	return gaps
}

func densityTrend(frames []FrameBucket) *DensityTrend {
	if len(frames) < 2 {
		return nil
	}
	points := make([]dataPoint, len(frames))
	for i, b := range frames {
		points[i] = dataPoint{x: float64(b.Frame), y: float64(b.Entities)}
	}
	slope, intercept, rSquared := linearRegression(points)

	direction := "flat"
	if rSquared > 0.5 {
		switch {
		case slope > 0.05:
			direction = "growing"
		case slope < -0.05:
			direction = "shrinking"
		}
	}
	return &DensityTrend{
		Slope:     math.Round(slope*1000) / 1000,
		Intercept: math.Round(intercept*100) / 100,
		RSquared:  math.Round(rSquared*1000) / 1000,
		Direction: direction,
	}
}

// detectHotspots calculates the Z-score of each frame's population.
// A Z-score > 2.0 is "medium", > 3.0 is "high".
func detectHotspots(frames []FrameBucket) []FrameHotspot {
	if len(frames) < 3 {
		// Not enough data for meaningful Z-score analysis
		return nil
	}

	var sum, sumSq float64
	for _, b := range frames {
		v := float64(b.Entities)
		sum += v
		sumSq += v * v
	}
	n := float64(len(frames))
	mean := sum / n
	stddev := math.Sqrt(sumSq/n - mean*mean)
	if stddev == 0 {
		return nil
	}

	var hotspots []FrameHotspot
	for _, b := range frames {
		z := (float64(b.Entities) - mean) / stddev
		if z <= 1.5 {
			continue
		}
		severity := "low"
		if z > 3.0 {
			severity = "high"
		} else if z > 2.0 {
			severity = "medium"
		}
		hotspots = append(hotspots, FrameHotspot{
			Frame:    b.Frame,
			Entities: b.Entities,
			ZScore:   math.Round(z*100) / 100,
			Severity: severity,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		return hotspots[i].ZScore > hotspots[j].ZScore
	})
	return hotspots
}

// linearRegression computes ordinary least squares regression.
// Returns slope (m), intercept (b), and R-squared goodness of fit.
func linearRegression(points []dataPoint) (slope, intercept, rSquared float64) {
	n := float64(len(points))
	if n < 2 {
		return 0, 0, 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		sumX += p.x
		sumY += p.y
		sumXY += p.x * p.y
		sumX2 += p.x * p.x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for _, p := range points {
		predicted := slope*p.x + intercept
		ssRes += (p.y - predicted) * (p.y - predicted)
		ssTot += (p.y - meanY) * (p.y - meanY)
	}

	if ssTot == 0 {
		rSquared = 1.0
	} else {
		rSquared = 1 - ssRes/ssTot
	}

	return slope, intercept, rSquared
}

// ============================================================
// Modules and References
// ============================================================

// ModuleCount is the number of aux entities in one module.
type ModuleCount struct {
	Module   string `json:"module"`
	Entities int    `json:"entities"`
}

// DanglingRef is a line end that names an entity the document lacks.
type DanglingRef struct {
	Line string `json:"line"`
	Ref  string `json:"ref"`
}

func countModules(idx *structindex.Index) []ModuleCount {
	counts := make(map[string]int)
	for _, mod := range idx.AuxModules {
		counts[mod]++
	}
	out := make([]ModuleCount, 0, len(counts))
	for mod, n := range counts {
		out = append(out, ModuleCount{Module: mod, Entities: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entities != out[j].Entities {
			return out[i].Entities > out[j].Entities
		}
		return out[i].Module < out[j].Module
	})
	return out
}

func danglingRefs(idx *structindex.Index) []DanglingRef {
	var out []DanglingRef
	for line, refs := range idx.LineRefs {
		for _, ref := range refs {
			if _, ok := idx.ByUUID[ref]; !ok {
				out = append(out, DanglingRef{Line: line, Ref: ref})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Ref < out[j].Ref
	})
	return out
}

// ============================================================
// Full Analysis Report
// ============================================================

// AnalysisReport is the complete output of `vantage analyze`.
type AnalysisReport struct {
	Title       string             `json:"title,omitempty"`
	Document    *database.Document `json:"document,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Entities    int                `json:"entities"`
	Kinds       []KindSummary      `json:"kinds"`
	Duplicates  int                `json:"duplicates"`
	Frames      []FrameBucket      `json:"frames"`
	FrameGaps   []int              `json:"frame_gaps,omitempty"`
	Trend       *DensityTrend      `json:"trend,omitempty"`
	Hotspots    []FrameHotspot     `json:"hotspots,omitempty"`
	Modules     []ModuleCount      `json:"modules,omitempty"`
	Dangling    []DanglingRef      `json:"dangling,omitempty"`
	Warnings    []string           `json:"warnings"`
}

// AnalyzeDocument runs every analysis pass over doc.
func (a *Analyzer) AnalyzeDocument(doc *scene.Document) *AnalysisReport {
	idx := structindex.Build(doc)
	report := &AnalysisReport{
		Title:       doc.Title(),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Entities:    idx.Len(),
		Kinds:       summarizeKinds(doc, idx),
		Duplicates:  idx.Duplicates,
		Frames:      frameHistogram(idx),
		Modules:     countModules(idx),
		Dangling:    danglingRefs(idx),
		Warnings:    []string{},
	}
	report.FrameGaps = frameGaps(report.Frames)
	report.Trend = densityTrend(report.Frames)
	report.Hotspots = detectHotspots(report.Frames)

	skipped := 0
	for _, k := range report.Kinds {
		skipped += k.Skipped
	}
	if skipped > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d entities have no usable uuid and were skipped.", skipped))
	}
	if report.Duplicates > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d duplicate uuids; only the first occurrence is kept.", report.Duplicates))
	}
	if len(report.Dangling) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d line ends reference missing entities.", len(report.Dangling)))
	}
	for _, h := range report.Hotspots {
		if h.Severity == "high" {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Frame %d holds %d entities (Z-score: %.2f).", h.Frame, h.Entities, h.ZScore))
		}
	}
	return report
}

// Analyze loads a stored document by reference and analyzes it.
func (a *Analyzer) Analyze(ref string) (*AnalysisReport, error) {
	if a.store == nil {
		return nil, fmt.Errorf("analyzing %s: no store", ref)
	}
	rec, err := a.store.GetDocument(ref)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	doc, err := scene.Parse(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("parsing document %s: %w", rec.DocID, err)
	}
	report := a.AnalyzeDocument(doc)
	report.Document = rec
	return report, nil
}

// FormatJSON renders the report as indented JSON.
func (a *Analyzer) FormatJSON(report *AnalysisReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data), nil
}

// FormatReport generates a human-readable markdown report.
func (a *Analyzer) FormatReport(report *AnalysisReport) string {
	var b strings.Builder

	b.WriteString("# Vantage Analysis Report\n\n")
	if report.Title != "" {
		fmt.Fprintf(&b, "**Title:** %s\n", report.Title)
	}
	if d := report.Document; d != nil {
		fmt.Fprintf(&b, "**Document:** `%s` (%s)\n", d.DocID, d.Name)
		fmt.Fprintf(&b, "**Stored:** %s\n", timeutil.FormatTimestampFull(d.UpdatedAt))
	}
	fmt.Fprintf(&b, "**Generated:** %s\n\n", report.GeneratedAt)

	b.WriteString("## Entities\n\n")
	b.WriteString("| Kind | Entities | Indexed | Unrestricted | Skipped |\n")
	b.WriteString("|------|----------|---------|--------------|---------|\n")
	for _, k := range report.Kinds {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
			k.Kind, k.Entities, k.Indexed, k.Unrestricted, k.Skipped)
	}
	fmt.Fprintf(&b, "\n- **Indexed total:** %d\n", report.Entities)
	fmt.Fprintf(&b, "- **Duplicate uuids:** %d\n\n", report.Duplicates)

	if len(report.Frames) > 0 {
		b.WriteString("## Frames\n\n")
		b.WriteString("| Frame | Entities | Visible |\n")
		b.WriteString("|-------|----------|---------|\n")
		for _, f := range report.Frames {
			fmt.Fprintf(&b, "| %d | %d | %d |\n", f.Frame, f.Entities, f.Visible)
		}
		b.WriteString("\n")
		if len(report.FrameGaps) > 0 {
			gaps := make([]string, len(report.FrameGaps))
			for i, g := range report.FrameGaps {
				gaps[i] = fmt.Sprint(g)
			}
			fmt.Fprintf(&b, "- **Empty frames:** %s\n", strings.Join(gaps, ", "))
		}
		if t := report.Trend; t != nil {
			fmt.Fprintf(&b, "- **Density trend:** %s (slope=%.3f entities/frame, R²=%.3f)\n",
				t.Direction, t.Slope, t.RSquared)
		}
		b.WriteString("\n")
	}

	if len(report.Hotspots) > 0 {
		b.WriteString("## Busy Frames\n\n")
		b.WriteString("| Frame | Entities | Z-Score | Severity |\n")
		b.WriteString("|-------|----------|---------|----------|\n")
		for _, h := range report.Hotspots {
			fmt.Fprintf(&b, "| %d | %d | %.2f | %s |\n", h.Frame, h.Entities, h.ZScore, h.Severity)
		}
		b.WriteString("\n")
	}

	if len(report.Modules) > 0 {
		b.WriteString("## Aux Modules\n\n")
		for _, m := range report.Modules {
			fmt.Fprintf(&b, "- `%s`: %d\n", m.Module, m.Entities)
		}
		b.WriteString("\n")
	}

	if len(report.Dangling) > 0 {
		b.WriteString("## Dangling References\n\n")
		for _, d := range report.Dangling {
			fmt.Fprintf(&b, "- line `%s` → `%s`\n", d.Line, d.Ref)
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
