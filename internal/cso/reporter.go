package cso

import "log/slog"

// Progress is emitted after every completed iteration.
type Progress struct {
	Iteration   int     `json:"iteration"`
	BestFitness float64 `json:"bestFitness"`
	MeanFitness float64 `json:"meanFitness"`
}

// Reporter consumes progress records. Report is called on the control
// goroutine, so a slow reporter slows the run.
type Reporter interface {
	Report(p Progress)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(p Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

// MultiReporter fans a record out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(p Progress) {
	for _, r := range m {
		if r != nil {
			r.Report(p)
		}
	}
}

// LogReporter logs every Every-th record at debug level.
type LogReporter struct {
	Logger *slog.Logger
	Every  int
}

func (l LogReporter) Report(p Progress) {
	every := l.Every
	if every < 1 {
		every = 1
	}
	if p.Iteration%every != 0 {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Iteration complete",
		"iteration", p.Iteration,
		"best_fitness", p.BestFitness,
		"mean_fitness", p.MeanFitness,
	)
}
