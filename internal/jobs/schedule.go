// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package jobs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/curator/internal/models"
)

// presets maps preset names to 5-field cron expressions.
var presets = map[string]string{
	"every_hour": "0 * * * *",
	"every_6h":   "0 */6 * * *",
	"every_12h":  "0 */12 * * *",
	"daily":      "0 3 * * *",
	"weekly":     "0 3 * * 0",
}

// cronParser accepts standard 5-field expressions only: no seconds field and
// no @descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expression resolves a schedule to its 5-field cron expression.
func Expression(scheduleType models.ScheduleType, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch scheduleType {
	case models.SchedulePreset:
		expr, ok := presets[value]
		if !ok {
			return "", models.NewValidationError(fmt.Sprintf("schedule_value: unknown preset %q (want one of %s)",
				value, strings.Join(Presets(), ", ")))
		}
		return expr, nil
	case models.ScheduleCron:
		if len(strings.Fields(value)) != 5 {
			return "", models.NewValidationError(fmt.Sprintf("schedule_value: cron expression %q must have 5 fields", value))
		}
		return value, nil
	default:
		return "", models.NewValidationError(fmt.Sprintf("schedule_type: unknown schedule type %q", scheduleType))
	}
}

// ParseSchedule resolves and parses a job's schedule. The whole expression is
// parsed in one call, so an invalid field rejects the schedule as a unit.
func ParseSchedule(scheduleType models.ScheduleType, value string) (cron.Schedule, error) {
	expr, err := Expression(scheduleType, value)
	if err != nil {
		return nil, err
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("schedule_value: %v", err))
	}
	return sched, nil
}
