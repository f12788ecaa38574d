package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"accel-ng/internal/accel"
	"accel-ng/internal/replay"
)

type logSummary struct {
	Segments    int
	Records     int
	Invalid     int
	MaxDuration time.Duration
	TopicCounts map[string]int

	Windows       int
	MeanDeltaV    float64 // mean |delta velocity| per window, m/s
	LastVibration float64
	ClipTotals    [3]uint32

	haveVibration bool
	sumDeltaVNorm float64
}

func summarizeAccelLog(records []replay.Record) logSummary {
	s := logSummary{TopicCounts: map[string]int{}}
	if len(records) == 0 {
		return s
	}

	origin := time.Duration(0)
	hasRecords := false
	segments := 0

	for _, r := range records {
		if r.IsStart() {
			segments++
			origin = r.At
			continue
		}
		hasRecords = true

		s.Records++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}
		s.TopicCounts[r.Topic]++

		switch r.Topic {
		case accel.TopicSensorAccelIntegrated:
			var m accel.SensorAccelIntegrated
			if err := json.Unmarshal(r.Payload, &m); err != nil {
				s.Invalid++
				continue
			}
			s.Windows++
			dv := m.DeltaVelocity
			s.sumDeltaVNorm += math.Sqrt(dv[0]*dv[0] + dv[1]*dv[1] + dv[2]*dv[2])
			for i := range s.ClipTotals {
				s.ClipTotals[i] += m.ClipCounter[i]
			}
		case accel.TopicSensorAccelStatus:
			var m accel.SensorAccelStatus
			if err := json.Unmarshal(r.Payload, &m); err != nil {
				s.Invalid++
				continue
			}
			s.LastVibration = m.VibrationMetric
			s.haveVibration = true
		}
	}
	if segments == 0 && hasRecords {
		segments = 1
	}
	s.Segments = segments
	if s.Windows > 0 {
		s.MeanDeltaV = s.sumDeltaVNorm / float64(s.Windows)
	}
	return s
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}

	s := summarizeAccelLog(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "records: %d\n", s.Records)
	fmt.Fprintf(w, "invalid_records: %d\n", s.Invalid)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "integrated_windows: %d\n", s.Windows)
	fmt.Fprintf(w, "mean_delta_velocity: %.6f\n", s.MeanDeltaV)
	if s.haveVibration {
		fmt.Fprintf(w, "last_vibration_metric: %.6f\n", s.LastVibration)
	} else {
		fmt.Fprintf(w, "last_vibration_metric: n/a\n")
	}
	fmt.Fprintf(w, "clip_totals: %d %d %d\n", s.ClipTotals[0], s.ClipTotals[1], s.ClipTotals[2])

	topics := make([]string, 0, len(s.TopicCounts))
	for k := range s.TopicCounts {
		topics = append(topics, k)
	}
	sort.Strings(topics)
	fmt.Fprintf(w, "topic_counts:\n")
	for _, k := range topics {
		fmt.Fprintf(w, "  %s: %d\n", k, s.TopicCounts[k])
	}
	return nil
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "summary <log>",
		Short:   "print statistics for a recorded log",
		Example: `  accel-ng summary flight.log`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLogSummary(cmd.OutOrStdout(), args[0])
		},
	}
}
