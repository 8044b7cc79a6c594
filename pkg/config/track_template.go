package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opd-ai/go-racer/pkg/track"
)

// TrackTemplate is a built-in grid track
type TrackTemplate struct {
	Name        string
	Description string
	Layout      string
	CellSize    float64
}

var trackTemplates = map[string]TrackTemplate{
	"oval": {
		Name:        "Oval",
		Description: "Short four-checkpoint oval",
		CellSize:    10,
		Layout: `
##########
#S..1....#
#.######.#
#.######2#
#4######.#
#....3...#
##########`,
	},
	"sprint": {
		Name:        "Sprint",
		Description: "Wide open loop with nine checkpoints",
		CellSize:    20,
		Layout: `
####################
#S....1.....2......#
#..................#
#..############....#
#..############..3.#
#9.############....#
#..############..4.#
#..############....#
#8.............5...#
#.....7......6.....#
####################`,
	},
	"duel": {
		Name:        "Duel",
		Description: "Tight two-lane loop for car contact",
		CellSize:    10,
		Layout: `
############
#S...1.....#
#..........#
#.########2#
#3.........#
############`,
	},
}

// GetTrackTemplate returns the named template, or nil if unknown
func GetTrackTemplate(name string) *TrackTemplate {
	t, ok := trackTemplates[name]
	if !ok {
		return nil
	}
	return &t
}

// ListTrackTemplates returns every template name with its description
func ListTrackTemplates() map[string]string {
	out := make(map[string]string, len(trackTemplates))
	for key, t := range trackTemplates {
		out[key] = t.Description
	}
	return out
}

// TrackTemplateNames returns the template names in sorted order
func TrackTemplateNames() []string {
	names := make([]string, 0, len(trackTemplates))
	for key := range trackTemplates {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// ApplyTrackTemplate points cfg at the named template and adopts its cell
// size
func ApplyTrackTemplate(cfg *RaceConfig, name string) error {
	t, ok := trackTemplates[name]
	if !ok {
		return fmt.Errorf("%w: unknown track template %q", ErrInvalidConfig, name)
	}
	cfg.Track.Path = ""
	cfg.Track.Template = name
	cfg.Track.CellSize = t.CellSize
	return nil
}

// LoadTrack builds the track the configuration selects
func (c *RaceConfig) LoadTrack() (*track.Grid, error) {
	if c.Track.Path != "" {
		return track.LoadGrid(c.Track.Path, c.Track.CellSize)
	}
	t, ok := trackTemplates[c.Track.Template]
	if !ok {
		return nil, fmt.Errorf("%w: unknown track template %q", ErrInvalidConfig, c.Track.Template)
	}
	return track.ParseGrid(strings.NewReader(strings.TrimPrefix(t.Layout, "\n")), c.Track.CellSize)
}
