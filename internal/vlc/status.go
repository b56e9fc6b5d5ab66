package vlc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultFrameRate is reported when the player does not expose a usable
// stream frame rate.
const DefaultFrameRate = 30.0

const streamCategory = "Stream 0"

// Playback states reported by VLC.
const (
	StatePlaying = "playing"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

// Status is the subset of the VLC status document used by bpmsync.
type Status struct {
	State     string  `json:"state"`
	Rate      float64 `json:"rate"`
	FrameRate float64 `json:"frame_rate"`
	Volume    int     `json:"volume"`
	// Time and Length are playback position and media length in seconds.
	Time   int `json:"time"`
	Length int `json:"length"`
}

// Playing reports whether the player is actively playing media.
func (s Status) Playing() bool {
	return s.State == StatePlaying
}

type statusDocument struct {
	State       string   `json:"state"`
	Rate        *float64 `json:"rate"`
	Volume      float64  `json:"volume"`
	Time        float64  `json:"time"`
	Length      float64  `json:"length"`
	Information *struct {
		Category json.RawMessage `json:"category"`
	} `json:"information"`
}

func (d statusDocument) status() Status {
	status := Status{
		State:     strings.TrimSpace(d.State),
		Rate:      1.0,
		FrameRate: DefaultFrameRate,
		Volume:    int(d.Volume),
		Time:      int(d.Time),
		Length:    int(d.Length),
	}
	if d.Rate != nil {
		status.Rate = *d.Rate
	}
	if d.Information != nil {
		status.FrameRate = parseFrameRate(d.Information.Category)
	}
	return status
}

// parseFrameRate extracts the leading number of the "Frame rate" entry of the
// first stream. VLC reports an empty array instead of an object when no
// stream information is available.
func parseFrameRate(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return DefaultFrameRate
	}
	var categories map[string]map[string]any
	if err := json.Unmarshal(raw, &categories); err != nil {
		return DefaultFrameRate
	}
	stream, ok := categories[streamCategory]
	if !ok {
		return DefaultFrameRate
	}
	var text string
	switch value := stream["Frame rate"].(type) {
	case string:
		text = value
	case float64:
		if value > 0 {
			return value
		}
		return DefaultFrameRate
	default:
		return DefaultFrameRate
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return DefaultFrameRate
	}
	rate, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil || rate <= 0 {
		return DefaultFrameRate
	}
	return rate
}
