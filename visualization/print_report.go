package visualization

import (
	"fmt"
	"io"
	"strings"
	"time"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
)

const defaultStyle = "\x1b[0m"
const boldStyle = "\x1b[1m"
const redColor = "\x1b[91m"
const greenColor = "\x1b[32m"
const yellowColor = "\x1b[33m"
const grayColor = "\x1b[90m"

const barWidth = 50

func PrintReport(w io.Writer, report *Report) {
	round := report.Round
	if report.NumRequests() == 0 {
		fmt.Fprintln(w, "Got no requests!")
		return
	}

	fmt.Fprintf(w, "%sRound %s%s (%s): %d requests, %d assigned, %d unserved over %d CDNs in %s\n",
		boldStyle, round.ID, defaultStyle, round.Method,
		report.NumRequests(), report.NumAssigned(), report.NMissingRequests(), report.NumCDNs(), round.Duration)
	fmt.Fprintf(w, "Outcome: %s | Objective: %.3f | Solve: %s\n", outcomeString(round.Result.Outcome), round.Result.Objective, round.Result.SolveDuration)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Distribution")
	nameWidth := 0
	for _, load := range report.Loads {
		if n := len(clusterName(load)); n > nameWidth {
			nameWidth = n
		}
	}
	nameFormat := fmt.Sprintf("%%%ds", nameWidth)

	for _, load := range report.Loads {
		used := int(load.Utilization() * barWidth)
		if used > barWidth {
			used = barWidth
		}
		color := greenColor
		if load.Utilization() > 0.9 {
			color = yellowColor
		}
		bar := strings.Repeat(color+"+"+defaultStyle, used) + strings.Repeat(grayColor+"."+defaultStyle, barWidth-used)
		fmt.Fprintf(w, "  %s: %s %d\n", fmt.Sprintf(nameFormat, clusterName(load)), bar, load.Requests)
	}

	if missing := report.NMissingRequests(); missing > 0 {
		fmt.Fprintf(w, "%s!!!!UNSERVED REQUESTS!!!!  Expected %d, got %d (%.3f %% failure rate)%s\n",
			redColor, report.NumRequests(), report.NumAssigned(), float64(missing)/float64(report.NumRequests())*100, defaultStyle)
	}
	for _, violation := range round.Result.Violations {
		fmt.Fprintf(w, "%s%s at %s: expected %d, got %d%s\n", redColor, violation.Kind, violation.Location, violation.Expected, violation.Actual, defaultStyle)
	}

	printStat(w, "Scores:", report.ScoreStats())
	printStat(w, "Prices:", report.PriceStats())
	printStat(w, "Bids/Location:", report.BidsPerLocationStats())
	fmt.Fprintf(w, "%14s  %.2f\n", "Distribution:", report.DistributionScore())
}

// PrintSummary reports timing across several rounds.
func PrintSummary(w io.Writer, reports []*Report) {
	solveTimes := []time.Duration{}
	roundTimes := []time.Duration{}
	for _, report := range reports {
		solveTimes = append(solveTimes, report.Round.Result.SolveDuration)
		roundTimes = append(roundTimes, report.Round.Duration)
	}

	minTime, maxTime, meanTime := StatsForDurations(solveTimes)
	fmt.Fprintf(w, "%14s  Min: %16s | Max: %16s | Mean: %16s\n", "Solve Times:", minTime, maxTime, meanTime)
	minTime, maxTime, meanTime = StatsForDurations(roundTimes)
	fmt.Fprintf(w, "%14s  Min: %16s | Max: %16s | Mean: %16s\n", "Round Times:", minTime, maxTime, meanTime)
}

func StatsForDurations(durations []time.Duration) (time.Duration, time.Duration, time.Duration) {
	if len(durations) == 0 {
		return 0, 0, 0
	}

	minTime, maxTime, meanTime := durations[0], time.Duration(0), time.Duration(0)
	for _, duration := range durations {
		if duration < minTime {
			minTime = duration
		}
		if duration > maxTime {
			maxTime = duration
		}
		meanTime += duration
	}
	meanTime = meanTime / time.Duration(len(durations))

	return minTime, maxTime, meanTime
}

func printStat(w io.Writer, label string, stat Stat) {
	fmt.Fprintf(w, "%14s  Min: %16.3f | Max: %16.3f | Mean: %16.3f | Total: %16.3f\n", label, stat.Min, stat.Max, stat.Mean, stat.Total)
}

func outcomeString(outcome brokertypes.Outcome) string {
	if outcome == brokertypes.OutcomeCleared {
		return greenColor + string(outcome) + defaultStyle
	}
	return redColor + string(outcome) + defaultStyle
}

func clusterName(load ClusterLoad) string {
	return load.CDN + "/" + load.Cluster
}
