//go:build integration

package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clipwatch/domain/matching"
	"clipwatch/domain/notification"
	"clipwatch/domain/snippet"

	"github.com/cucumber/godog"
)

type matchingContext struct {
	cfg      matching.Config
	snippets []snippet.Snippet
	engine   *matching.Engine
	events   []matching.DetectionEvent
	cooldown *notification.Cooldown
	emitted  []matching.DetectionEvent
}

var SharedMatchingContext = &matchingContext{}

func InitializeMatchingScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedMatchingContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		*testCtx = matchingContext{}
		return c, nil
	})

	ctx.Step(`^a match threshold of (\d+) and a time window of ([\d.]+) seconds$`, testCtx.aMatchThresholdAndTimeWindow)
	ctx.Step(`^a sequence snippet "([^"]*)" with keyframes "([^"]*)"$`, testCtx.aSequenceSnippet)
	ctx.Step(`^a single image snippet "([^"]*)" with hash "([^"]*)" and minimum duration ([\d.]+)$`, testCtx.aSingleImageSnippet)
	ctx.Step(`^the frames are processed:$`, testCtx.theFramesAreProcessed)
	ctx.Step(`^the stream ends$`, testCtx.theStreamEnds)
	ctx.Step(`^exactly (\d+) detections? (?:is|are) reported$`, testCtx.exactlyNDetections)
	ctx.Step(`^detection (\d+) is "([^"]*)" from ([\d.]+) to ([\d.]+)$`, testCtx.detectionIs)
	ctx.Step(`^a detection cooldown of ([\d.]+) seconds$`, testCtx.aDetectionCooldown)
	ctx.Step(`^the following detections are submitted:$`, testCtx.theFollowingDetectionsAreSubmitted)
	ctx.Step(`^the emitted detections are "([^"]*)"$`, testCtx.theEmittedDetectionsAre)
}

func (m *matchingContext) aMatchThresholdAndTimeWindow(threshold int, window float64) error {
	m.cfg = matching.Config{MatchThreshold: threshold, TimeWindow: window}
	return nil
}

func (m *matchingContext) aSequenceSnippet(name, keyframes string) error {
	var hashes []snippet.Hash
	for _, s := range strings.Split(keyframes, ",") {
		h, err := snippet.ParseHash(s)
		if err != nil {
			return err
		}
		hashes = append(hashes, h)
	}
	sn, err := snippet.NewSequence(name, snippet.MethodPHash, hashes)
	if err != nil {
		return err
	}
	m.snippets = append(m.snippets, sn)
	return nil
}

func (m *matchingContext) aSingleImageSnippet(name, hash string, minDuration float64) error {
	h, err := snippet.ParseHash(hash)
	if err != nil {
		return err
	}
	sn, err := snippet.NewSingleImage(name, snippet.MethodPHash, h, minDuration)
	if err != nil {
		return err
	}
	m.snippets = append(m.snippets, sn)
	return nil
}

func (m *matchingContext) ensureEngine() error {
	if m.engine != nil {
		return nil
	}
	engine, err := matching.NewEngine(m.cfg, matching.Hamming, m.snippets)
	if err != nil {
		return err
	}
	m.engine = engine
	return nil
}

func (m *matchingContext) theFramesAreProcessed(table *godog.Table) error {
	if err := m.ensureEngine(); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		ts, err := strconv.ParseFloat(row.Cells[0].Value, 64)
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", row.Cells[0].Value, err)
		}
		h, err := snippet.ParseHash(row.Cells[1].Value)
		if err != nil {
			return err
		}
		m.events = append(m.events, m.engine.Step(matching.Sample{Timestamp: ts, Hash: h})...)
	}
	return nil
}

func (m *matchingContext) theStreamEnds() error {
	if err := m.ensureEngine(); err != nil {
		return err
	}
	m.events = append(m.events, m.engine.Flush()...)
	return nil
}

func (m *matchingContext) exactlyNDetections(n int) error {
	if len(m.events) != n {
		return fmt.Errorf("expected %d detections, got %d: %v", n, len(m.events), m.events)
	}
	return nil
}

func (m *matchingContext) detectionIs(index int, name string, start, end float64) error {
	if index < 1 || index > len(m.events) {
		return fmt.Errorf("detection %d does not exist, got %d detections", index, len(m.events))
	}
	ev := m.events[index-1]
	if ev.ClipName != name || ev.StartTime != start || ev.EndTime != end {
		return fmt.Errorf("expected %s %.2f-%.2f, got %s %.2f-%.2f", name, start, end, ev.ClipName, ev.StartTime, ev.EndTime)
	}
	return nil
}

func (m *matchingContext) aDetectionCooldown(interval float64) error {
	m.cooldown = notification.NewCooldown(interval)
	return nil
}

func (m *matchingContext) theFollowingDetectionsAreSubmitted(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		start, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return err
		}
		end, err := strconv.ParseFloat(row.Cells[2].Value, 64)
		if err != nil {
			return err
		}
		ev := matching.DetectionEvent{ClipName: row.Cells[0].Value, StartTime: start, EndTime: end}
		if m.cooldown.Allow(ev) {
			m.emitted = append(m.emitted, ev)
		}
	}
	return nil
}

func (m *matchingContext) theEmittedDetectionsAre(expected string) error {
	var got []string
	for _, ev := range m.emitted {
		got = append(got, fmt.Sprintf("%s@%.1f", ev.ClipName, ev.EndTime))
	}
	if strings.Join(got, ",") != expected {
		return fmt.Errorf("expected %s, got %s", expected, strings.Join(got, ","))
	}
	return nil
}
