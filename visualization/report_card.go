package visualization

import (
	"fmt"
	"io"
	"sort"

	"github.com/GaryBoone/GoStats/stats"
	svg "github.com/ajstarks/svgo"
)

const border = 5
const clusterBarHeight = 4
const clusterSpacing = 1
const clusterBoxWidth = 400
const clusterBoxHeight = 100*clusterBarHeight + 99*clusterSpacing

const headerHeight = 100

const graphWidth = 300
const graphTextX = 50
const graphBinX = 55
const binHeight = 14
const binSpacing = 2
const maxBinLength = graphWidth - graphBinX

const ReportCardWidth = border*3 + clusterBoxWidth + graphWidth
const ReportCardHeight = border*3 + clusterBoxHeight

// SVGReport lays report cards out on a width by height grid.
type SVGReport struct {
	SVG        *svg.SVG
	objectives []float64
	unserved   []float64
	solveTimes []float64
	width      int
	height     int
}

func StartSVGReport(w io.Writer, width, height int) *SVGReport {
	s := svg.New(w)
	s.Start(width*ReportCardWidth, headerHeight+height*ReportCardHeight)
	return &SVGReport{
		SVG:    s,
		width:  width,
		height: height,
	}
}

func (r *SVGReport) Done() {
	r.drawResults()
	r.SVG.End()
}

func (r *SVGReport) DrawHeader(method string, exposure string, bidCount int) {
	header := fmt.Sprintf("%s - Exposure:%s - BidCount:%d", method, exposure, bidCount)
	r.SVG.Text(border, 40, header, `text-anchor:start;font-size:32px;font-family:Helvetica Neue`)
}

func (r *SVGReport) drawResults() {
	r.SVG.Text(border, 90, fmt.Sprintf("Objective: %.2f | Unserved: %.0f | Solve Time: %.2fs", stats.StatsSum(r.objectives), stats.StatsSum(r.unserved), stats.StatsSum(r.solveTimes)), `text-anchor:start;font-size:32px;font-family:Helvetica Neue`)
}

func (r *SVGReport) DrawReportCard(x, y int, report *Report) {
	r.SVG.Translate(x*ReportCardWidth, headerHeight+y*ReportCardHeight)

	r.drawClusters(report)
	y = r.drawScoreHistogram(report)
	y = r.drawBidsHistogram(report, y+binSpacing*4)
	r.drawText(report, y+binSpacing*4)

	r.objectives = append(r.objectives, report.Round.Result.Objective)
	r.unserved = append(r.unserved, float64(report.NMissingRequests()))
	r.solveTimes = append(r.solveTimes, report.Round.Result.SolveDuration.Seconds())

	r.SVG.Gend()
}

func (r *SVGReport) drawClusters(report *Report) {
	y := border
	for i, load := range report.Loads {
		if i == 100 {
			break
		}
		r.SVG.Rect(border, y, clusterBoxWidth, clusterBarHeight, "fill:#f7f7f7")
		used := load.Utilization()
		if used > 1 {
			used = 1
		}
		if used > 0 {
			r.SVG.Rect(border, y, int(used*clusterBoxWidth), clusterBarHeight, clusterStyle(load.CDN))
		}
		y += clusterBarHeight + clusterSpacing
	}
}

func (r *SVGReport) drawScoreHistogram(report *Report) int {
	scores := []float64{}
	for _, assignment := range report.Round.Result.Assignments {
		scores = append(scores, assignment.Bid.Score)
	}
	sort.Float64s(scores)

	bins := binUp([]float64{-1e9, 0.5, 1, 2, 5, 10, 20, 50, 100, 1e9}, scores)
	labels := []string{"<0.5", "0.5-1", "1-2", "2-5", "5-10", "10-20", "20-50", "50-100", ">100"}

	r.SVG.Translate(border*2+clusterBoxWidth, border)

	yBottom := r.drawHistogram(bins, labels)

	r.SVG.Gend()

	return yBottom + border
}

func (r *SVGReport) drawBidsHistogram(report *Report, y int) int {
	counts := []float64{}
	for _, bids := range report.Round.Bids {
		counts = append(counts, float64(len(bids)))
	}
	sort.Float64s(counts)

	bins := binUp([]float64{0, 1, 2, 3, 4, 5, 10, 20, 40, 1e9}, counts)
	labels := []string{"1 bid", "2 bids", "3 bids", "4 bids", "5 bids", "5-10", "10-20", "20-40", ">40"}

	r.SVG.Translate(border*2+clusterBoxWidth, y)

	yBottom := r.drawHistogram(bins, labels)

	r.SVG.Gend()

	return yBottom + y
}

func (r *SVGReport) drawText(report *Report, y int) {
	scoreStats := report.ScoreStats()
	priceStats := report.PriceStats()
	round := report.Round

	missing := ""
	if n := report.NMissingRequests(); n > 0 {
		missing = fmt.Sprintf("UNSERVED %d (%.2f%%)", n, float64(n)/float64(report.NumRequests())*100)
	}

	lines := []string{
		fmt.Sprintf("%d over %d CDNs %s", report.NumRequests(), report.NumCDNs(), missing),
		fmt.Sprintf("%.2fs (%.2f r/s)", round.Duration.Seconds(), report.RequestsPerSecond()),
		fmt.Sprintf("%s | Dist: %.3f", round.Result.Outcome, report.DistributionScore()),
		fmt.Sprintf("Objective %.2f | Solve %s", round.Result.Objective, round.Result.SolveDuration),
	}
	statLines := []string{
		"Scores",
		fmt.Sprintf("...%.2f ± %.2f", scoreStats.Mean, scoreStats.StdDev),
		fmt.Sprintf("...%.3f - %.3f", scoreStats.Min, scoreStats.Max),
		"Prices",
		fmt.Sprintf("...%.2f | %.2f ± %.2f", priceStats.Total, priceStats.Mean, priceStats.StdDev),
		fmt.Sprintf("...%.3f - %.3f", priceStats.Min, priceStats.Max),
	}

	r.SVG.Translate(border*2+clusterBoxWidth, y)
	r.SVG.Gstyle("font-family:Helvetica Neue")
	r.SVG.Textlines(8, 8, lines, 16, 18, "#333", "start")
	r.SVG.Textlines(8, 80, statLines, 13, 16, "#333", "start")
	r.SVG.Gend()
	r.SVG.Gend()
}

func (r *SVGReport) drawHistogram(bins []float64, labels []string) int {
	y := 0
	for i, percentage := range bins {
		r.SVG.Rect(graphBinX, y, maxBinLength, binHeight, `fill:#eee`)
		r.SVG.Text(graphTextX, y+binHeight-4, labels[i], `text-anchor:end;font-size:10px;font-family:Helvetica Neue`)
		if percentage > 0 {
			r.SVG.Rect(graphBinX, y, int(percentage*float64(maxBinLength)), binHeight, `fill:#333`)
			r.SVG.Text(graphBinX+binSpacing, y+binHeight-4, fmt.Sprintf("%.1f%%", percentage*100.0), `text-anchor:start;font-size:10px;font-family:Helvetica Neue;fill:#fff`)
		}
		y += binHeight + binSpacing
	}

	return y
}

// binUp returns the fraction of sortedData falling in each
// (boundary[i], boundary[i+1]] interval.
func binUp(binBoundaries []float64, sortedData []float64) []float64 {
	bins := make([]float64, len(binBoundaries)-1)
	if len(sortedData) == 0 {
		return bins
	}

	currentBin := 0
	for _, d := range sortedData {
		for currentBin < len(bins)-1 && binBoundaries[currentBin+1] < d {
			currentBin += 1
		}
		bins[currentBin] += 1
	}

	for i := range bins {
		bins[i] = bins[i] / float64(len(sortedData))
	}

	return bins
}

var cdnColors = []string{"#d7191c", "#2b83ba", "#fdae61", "#abdda4", "#5e3c99", "#e66101"}

func clusterStyle(cdn string) string {
	sum := 0
	for _, c := range cdn {
		sum += int(c)
	}
	return "fill:" + cdnColors[sum%len(cdnColors)] + ";stroke:none"
}
