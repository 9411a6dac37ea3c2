package visualization

import (
	"errors"
	"io"
	"sync"

	"code.cloudfoundry.org/cdnbroker/brokertypes"
)

const reportCardColumns = 4

var ErrNoReports = errors.New("no rounds have been reported")

// Reporter prints each completed round and keeps the most recent reports
// for a closing set of report cards.
type Reporter struct {
	out        io.Writer
	maxReports int

	lock    *sync.Mutex
	reports []*Report
}

func NewReporter(out io.Writer, maxReports int) *Reporter {
	return &Reporter{
		out:        out,
		maxReports: maxReports,
		lock:       &sync.Mutex{},
	}
}

func (r *Reporter) RoundCompleted(round brokertypes.Round) {
	report := NewReport(round)

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.out != nil {
		PrintReport(r.out, report)
	}
	r.reports = append(r.reports, report)
	if r.maxReports > 0 && len(r.reports) > r.maxReports {
		r.reports = r.reports[len(r.reports)-r.maxReports:]
	}
}

func (r *Reporter) Reports() []*Report {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]*Report{}, r.reports...)
}

func (r *Reporter) WriteReportCards(w io.Writer, method, exposure string, bidCount int) error {
	reports := r.Reports()
	if len(reports) == 0 {
		return ErrNoReports
	}

	width := reportCardColumns
	if len(reports) < width {
		width = len(reports)
	}
	height := (len(reports) + width - 1) / width

	card := StartSVGReport(w, width, height)
	card.DrawHeader(method, exposure, bidCount)
	for i, report := range reports {
		card.DrawReportCard(i%width, i/width, report)
	}
	card.Done()

	return nil
}
