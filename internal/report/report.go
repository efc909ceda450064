// Package report turns a finished focus block into a renderable report and
// reads reports back from disk.
package report

import (
	"time"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/evaluator"
	"github.com/fakeyudi/focustrail/internal/session"
)

// FocusReport is the complete, renderable representation of a focus block.
type FocusReport struct {
	Block    BlockMeta            `json:"block"`
	Apps     []aggregate.AppTotal `json:"apps"`
	Topics   []aggregate.Topic    `json:"topics"`
	Sessions []session.Session    `json:"sessions"`
	Alerts   []evaluator.Alert    `json:"alerts"`
	Summary  string               `json:"summary"`
}

// BlockMeta holds summary metadata about the focus block.
type BlockMeta struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Target    string    `json:"target"`   // e.g. "25m0s"
	Duration  string    `json:"duration"` // actual elapsed time
	Goal      string    `json:"goal,omitempty"`
	Author    string    `json:"author,omitempty"`
}

// Build assembles a report from a block record. asOf stands in for the end
// of a block that has not been finished.
func Build(r *aggregate.FocusRecord, alerts []evaluator.Alert, asOf time.Time, author string) *FocusReport {
	breakdown := aggregate.Analyze(r, asOf, aggregate.DefaultTopicLimit)

	sessions := make([]session.Session, len(r.Sessions))
	for i := range r.Sessions {
		sessions[i] = *r.Sessions[i].Clone()
	}
	if alerts == nil {
		alerts = []evaluator.Alert{}
	}
	apps := breakdown.Apps
	if apps == nil {
		apps = []aggregate.AppTotal{}
	}
	topics := breakdown.Topics
	if topics == nil {
		topics = []aggregate.Topic{}
	}

	return &FocusReport{
		Block: BlockMeta{
			StartTime: r.StartDate,
			EndTime:   r.End(asOf),
			Target:    r.Target.String(),
			Duration:  breakdown.Interval.Round(time.Second).String(),
			Goal:      r.Goal,
			Author:    author,
		},
		Apps:     apps,
		Topics:   topics,
		Sessions: sessions,
		Alerts:   append([]evaluator.Alert(nil), alerts...),
		Summary:  r.Summary,
	}
}

// Filename returns the default file name for a report ending at end.
func Filename(end time.Time, ext string) string {
	return "focus-" + end.Format("20060102-150405") + ext
}
