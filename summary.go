package ptcop

import (
	"time"

	"github.com/vsariola/ptcop/voice"
)

type (
	// Summary is a plain description of a project for display and
	// serialization.
	Summary struct {
		Name          string         `yaml:",omitempty" json:"name,omitempty"`
		Comment       string         `yaml:",omitempty" json:"comment,omitempty"`
		Version       string         `json:"version"`
		Tempo         float32        `json:"tempo"`
		BeatsPerBar   int            `yaml:"beatsperbar" json:"beatsPerBar"`
		Measures      int            `json:"measures"`
		RepeatMeasure int            `yaml:"repeatmeasure" json:"repeatMeasure"`
		LastMeasure   int            `yaml:"lastmeasure,omitempty" json:"lastMeasure,omitempty"`
		Samples       int64          `json:"samples"`
		Duration      time.Duration  `json:"duration"`
		Events        int            `json:"events"`
		Tracks        []string       `yaml:",flow" json:"tracks"`
		Voices        []VoiceSummary `json:"voices"`
		Delays        int            `yaml:",omitempty" json:"delays,omitempty"`
		Overdrives    int            `yaml:",omitempty" json:"overdrives,omitempty"`
	}

	VoiceSummary struct {
		Name      string `yaml:",omitempty" json:"name,omitempty"`
		Type      string `json:"type"`
		Instances int    `json:"instances"`
		Frames    int    `json:"frames"`
	}
)

// Summary describes the project.
func (p *Project) Summary() Summary {
	ret := Summary{
		Name:          p.Name,
		Comment:       p.Comment,
		Version:       p.Version,
		Tempo:         p.Master.BeatTempo,
		BeatsPerBar:   int(p.Master.BeatNum),
		Measures:      int(p.Master.NumMeasures),
		RepeatMeasure: int(p.Master.RepeatMeasure),
		LastMeasure:   int(p.Master.LastMeasure),
		Samples:       p.Master.TotalSamples(),
		Events:        p.Events.Len(),
		Tracks:        make([]string, p.NumTracks),
		Voices:        make([]VoiceSummary, len(p.Voices)),
		Delays:        len(p.Delays),
		Overdrives:    len(p.Overdrives),
	}
	ret.Duration = time.Duration(ret.Samples) * time.Second / SampleRate
	copy(ret.Tracks, p.TrackNames)
	for i, v := range p.Voices {
		ret.Voices[i] = summarizeVoice(v)
		if i < len(p.VoiceNames) {
			ret.Voices[i].Name = p.VoiceNames[i]
		}
	}
	return ret
}

func summarizeVoice(v voice.Voice) VoiceSummary {
	ret := VoiceSummary{Type: v.Type.String(), Instances: len(v.Instances)}
	for _, inst := range v.Instances {
		ret.Frames = max(ret.Frames, len(inst.Samples))
	}
	return ret
}
