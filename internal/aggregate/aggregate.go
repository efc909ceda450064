package aggregate

import (
	"sort"
	"time"

	"github.com/fakeyudi/focustrail/internal/session"
)

// DefaultTopicLimit is the number of topics kept for prompt construction.
const DefaultTopicLimit = 8

// AppTotal is the time spent in one application.
type AppTotal struct {
	session.Identity
	Total time.Duration `json:"total"`
	Share float64       `json:"share"` // fraction of the interval, 0..1
}

// Segment is the portion of a session spent on one context.
type Segment struct {
	AppName  string          `json:"appName"`
	Context  session.Context `json:"context"`
	Duration time.Duration   `json:"duration"`
}

// Topic is the time spent on one (title, url, path) across sessions.
type Topic struct {
	Key          string        `json:"key"`
	AppName      string        `json:"appName"`
	WindowTitle  string        `json:"windowTitle"`
	URL          string        `json:"url,omitempty"`
	DocumentPath string        `json:"documentPath,omitempty"`
	Total        time.Duration `json:"total"`
	Share        float64       `json:"share"`
}

// Breakdown bundles the aggregations used for summaries.
type Breakdown struct {
	Interval time.Duration `json:"interval"`
	Apps     []AppTotal    `json:"apps"`
	Topics   []Topic       `json:"topics"`
}

// AppTotals groups sessions by application identity and sums their
// durations. Shares are relative to interval, which is floored to one second.
// Results are sorted by total, largest first.
func AppTotals(sessions []session.Session, interval time.Duration, asOf time.Time) []AppTotal {
	interval = floorInterval(interval)

	index := make(map[session.Identity]int)
	var totals []AppTotal
	for i := range sessions {
		s := &sessions[i]
		id := s.Identity()
		j, ok := index[id]
		if !ok {
			j = len(totals)
			index[id] = j
			totals = append(totals, AppTotal{Identity: id})
		}
		totals[j].Total += s.Duration(asOf)
	}
	for i := range totals {
		totals[i].Share = float64(totals[i].Total) / float64(interval)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].AppName < totals[j].AppName
	})
	return totals
}

// Segments splits a session into per-context durations. Contexts are
// ordered by capture time; each lasts until the next capture, the last one
// until the session end (or asOf while open). A session without contexts
// yields one placeholder segment named after the application.
func Segments(s *session.Session, asOf time.Time) []Segment {
	contexts := append([]session.Context(nil), s.Contexts...)
	if len(contexts) == 0 {
		contexts = []session.Context{{WindowTitle: s.AppName, CapturedAt: s.StartDate}}
	}
	sort.SliceStable(contexts, func(i, j int) bool {
		return contexts[i].CapturedAt.Before(contexts[j].CapturedAt)
	})

	end := asOf
	if s.EndDate != nil {
		end = *s.EndDate
	}

	segments := make([]Segment, len(contexts))
	for i, c := range contexts {
		until := end
		if i+1 < len(contexts) {
			until = contexts[i+1].CapturedAt
		}
		d := until.Sub(c.CapturedAt)
		if d < 0 {
			d = 0
		}
		segments[i] = Segment{AppName: s.AppName, Context: c, Duration: d}
	}
	return segments
}

// TopicKey identifies a topic across sessions.
func TopicKey(c session.Context) string {
	return c.WindowTitle + "|" + c.URL + "|" + c.DocumentPath
}

// Topics buckets every segment of sessions by TopicKey and returns the
// largest buckets first. limit <= 0 keeps every topic.
func Topics(sessions []session.Session, interval time.Duration, asOf time.Time, limit int) []Topic {
	interval = floorInterval(interval)

	index := make(map[string]int)
	var topics []Topic
	for i := range sessions {
		for _, seg := range Segments(&sessions[i], asOf) {
			key := TopicKey(seg.Context)
			j, ok := index[key]
			if !ok {
				j = len(topics)
				index[key] = j
				topics = append(topics, Topic{
					Key:          key,
					AppName:      seg.AppName,
					WindowTitle:  seg.Context.WindowTitle,
					URL:          seg.Context.URL,
					DocumentPath: seg.Context.DocumentPath,
				})
			}
			topics[j].Total += seg.Duration
		}
	}
	for i := range topics {
		topics[i].Share = float64(topics[i].Total) / float64(interval)
	}

	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Total != topics[j].Total {
			return topics[i].Total > topics[j].Total
		}
		return topics[i].Key < topics[j].Key
	})
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// Analyze computes the app and topic breakdown of a focus record.
func Analyze(r *FocusRecord, asOf time.Time, topicLimit int) Breakdown {
	interval := r.Interval(asOf)
	end := r.End(asOf)
	return Breakdown{
		Interval: interval,
		Apps:     AppTotals(r.Sessions, interval, end),
		Topics:   Topics(r.Sessions, interval, end, topicLimit),
	}
}
