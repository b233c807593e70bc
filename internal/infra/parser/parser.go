// Package parser reads the flat-file task menu format, a line-oriented
// state machine ported from the original C++ extractor (extract.hpp's
// parseFile/extractNumber/extractRange).
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic-sched/modesched/internal/domain"
)

// rawMode accumulates one mode block's fields before it is turned into
// parallel Duration arrays. Total Work is parsed but unused downstream —
// the source kept it for the human-readable dump, not for any derived
// scalar.
type rawMode struct {
	period      float64 // ms, shared by cpu_period and gpu_period
	totalWork   float64 // ms, informational only
	workTypeA   float64 // ms, cpu_work
	workTypeB   float64 // ms, gpu_work
	totalCPUs   int
	cpusTypeA   int
	cpusTypeB   int
}

// rawTask accumulates one "Task" section.
type rawTask struct {
	spanA float64 // ms, cpu_span, shared across every mode in the task
	spanB float64 // ms, gpu_span
	modes []rawMode
}

type parseState int

const (
	stateNone parseState = iota
	stateTaskInfo
	stateModes
)

// ParsedTask is a task section, fully extracted but not yet turned into
// a domain.TaskDescriptor (that step needs an elasticity value the
// flat-file grammar does not carry — see ToTaskDescriptor).
type ParsedTask struct {
	SpanA float64
	SpanB float64
	Modes []ParsedMode
}

// ParsedMode is one mode block, with every field the grammar exposes.
type ParsedMode struct {
	PeriodMs    float64
	TotalWorkMs float64
	WorkAMs     float64
	WorkBMs     float64
	TotalCPUs   int
	CPUsTypeA   int
	CPUsTypeB   int
}

// Parse reads the flat-file format from r and returns one ParsedTask per
// "Task" section. It never opens a file itself (that's the CLI's job);
// this keeps the parser testable against in-memory strings.
func Parse(r io.Reader) ([]ParsedTask, error) {
	scanner := bufio.NewScanner(r)

	var tasks []rawTask
	var current rawTask
	var mode rawMode
	state := stateNone
	var spanA, spanB float64

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Task"):
			if state != stateNone {
				tasks = append(tasks, current)
				current = rawTask{}
			}
			state = stateTaskInfo

		case strings.HasPrefix(line, "Modes:"):
			state = stateModes

		case strings.HasPrefix(line, "Span A"):
			spanA = extractNumber(line)
			current.spanA = spanA

		case strings.HasPrefix(line, "Span B"):
			spanB = extractNumber(line)
			current.spanB = spanB

		case state == stateModes:
			trimmed := strings.TrimLeft(line, " \t")
			switch {
			case strings.HasPrefix(trimmed, "Period:"):
				mode.period = extractNumber(trimmed)
			case strings.HasPrefix(trimmed, "Total Work:"):
				mode.totalWork = extractNumber(trimmed)
			case strings.HasPrefix(trimmed, "Work Type A:"):
				mode.workTypeA = extractNumber(trimmed)
			case strings.HasPrefix(trimmed, "Work Type B:"):
				mode.workTypeB = extractNumber(trimmed)
			case strings.HasPrefix(trimmed, "Total CPUs:"):
				mode.totalCPUs = int(extractNumber(trimmed))
			case strings.HasPrefix(trimmed, "CPUs Type A:"):
				mode.cpusTypeA = int(extractNumber(trimmed))
			case strings.HasPrefix(trimmed, "CPUs Type B:"):
				mode.cpusTypeB = int(extractNumber(trimmed))
				current.modes = append(current.modes, mode)
				mode = rawMode{}
			}

		default:
			state = stateNone
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parser: reading input: %w", err)
	}

	if state != stateNone {
		tasks = append(tasks, current)
	}

	out := make([]ParsedTask, len(tasks))
	for i, rt := range tasks {
		out[i] = ParsedTask{SpanA: rt.spanA, SpanB: rt.spanB}
		out[i].Modes = make([]ParsedMode, len(rt.modes))
		for j, rm := range rt.modes {
			out[i].Modes[j] = ParsedMode{
				PeriodMs: rm.period, TotalWorkMs: rm.totalWork,
				WorkAMs: rm.workTypeA, WorkBMs: rm.workTypeB,
				TotalCPUs: rm.totalCPUs, CPUsTypeA: rm.cpusTypeA, CPUsTypeB: rm.cpusTypeB,
			}
		}
	}
	return out, nil
}

// extractNumber keeps digits, '.', and leading '-', discarding
// everything else (unit suffixes like "ms"), mirroring extractNumber in
// extract.hpp. Returns 0 if nothing numeric parses.
func extractNumber(s string) float64 {
	var b strings.Builder
	for _, c := range s {
		if (c >= '0' && c <= '9') || c == '.' || (c == '-' && b.Len() == 0) {
			b.WriteRune(c)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// extractRange splits a "[min, max]" token on '[', ',', ']', mirroring
// extractRange in extract.hpp. Returns an error wrapping domain.ErrParse
// if any of the three delimiters is missing.
func extractRange(s string) (min, max float64, err error) {
	start := strings.IndexByte(s, '[')
	comma := strings.IndexByte(s, ',')
	end := strings.IndexByte(s, ']')
	if start < 0 || comma < 0 || end < 0 || comma < start || end < comma {
		return 0, 0, fmt.Errorf("parser: malformed range %q: %w", s, domain.ErrParse)
	}
	min = extractNumber(s[start+1 : comma])
	max = extractNumber(s[comma+1 : end])
	return min, max, nil
}

// ToTaskDescriptor converts a ParsedTask into constructor arguments for
// domain.NewTaskDescriptor. elasticity is supplied by the caller (the
// flat-file grammar has no elasticity field of its own); maxModes is
// forwarded unchanged to the constructor's MAXMODES bound.
func ToTaskDescriptor(pt ParsedTask, elasticity float64, maxModes int) (*domain.TaskDescriptor, error) {
	n := len(pt.Modes)
	if n == 0 {
		return nil, fmt.Errorf("parser: task has no modes: %w", domain.ErrParse)
	}

	cpuWork := make([]domain.Duration, n)
	cpuSpan := make([]domain.Duration, n)
	cpuPeriod := make([]domain.Duration, n)
	gpuWork := make([]domain.Duration, n)
	gpuSpan := make([]domain.Duration, n)
	gpuPeriod := make([]domain.Duration, n)

	for j, m := range pt.Modes {
		cpuWork[j] = domain.DurationFromMillis(m.WorkAMs)
		cpuSpan[j] = domain.DurationFromMillis(pt.SpanA)
		cpuPeriod[j] = domain.DurationFromMillis(m.PeriodMs)
		gpuWork[j] = domain.DurationFromMillis(m.WorkBMs)
		gpuSpan[j] = domain.DurationFromMillis(pt.SpanB)
		gpuPeriod[j] = domain.DurationFromMillis(m.PeriodMs)
	}

	return domain.NewTaskDescriptor(elasticity, maxModes, cpuWork, cpuSpan, cpuPeriod, gpuWork, gpuSpan, gpuPeriod)
}
