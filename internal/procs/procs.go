// Package procs provides the concrete process types shipped with the
// runtime: data sources, transforms, and sinks.
package procs

import (
	"os"

	"github.com/soochol/flume/internal/flow"
)

// Port names shared by the shipped processes.
const (
	portIn  = "in"
	portOut = "out"
)

// RegisterDefaults registers every shipped process type.
func RegisterDefaults(reg *flow.Registry) error {
	factories := map[string]flow.Factory{
		"numbers": func(conf *flow.Config) (flow.Process, error) {
			return NewNumberSource(conf)
		},
		"transform": func(conf *flow.Config) (flow.Process, error) {
			return NewExprTransform(conf)
		},
		"collect": func(conf *flow.Config) (flow.Process, error) {
			return NewCollectSink(conf)
		},
		"print": func(conf *flow.Config) (flow.Process, error) {
			return NewPrintSink(conf, os.Stdout)
		},
		"rss": func(conf *flow.Config) (flow.Process, error) {
			return NewRSSSource(conf)
		},
		"scrape": func(conf *flow.Config) (flow.Process, error) {
			return NewScrapeSource(conf)
		},
		"xlsx": func(conf *flow.Config) (flow.Process, error) {
			return NewXLSXSource(conf)
		},
		"pdftext": func(conf *flow.Config) (flow.Process, error) {
			return NewPDFTextSource(conf)
		},
	}
	for typ, f := range factories {
		if err := reg.Register(typ, f); err != nil {
			return err
		}
	}
	return nil
}
