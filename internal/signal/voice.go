package signal

import (
	"regexp"
	"strings"

	"learnpulse/internal/models"
)

const (
	speechSampleCap  = 50
	volumeWindowSize = 200
	paceWindowSize   = 20
	// Audio analyser bins arrive in the 0-255 range.
	audioBinMax = 255.0
)

// fillerPattern matches the fixed filler lexicon, case-insensitive,
// whole-word. Multi-word fillers are matched as phrases.
var fillerPattern = regexp.MustCompile(`(?i)\b(um|uh|like|you know|basically|actually)\b`)

// VoiceAggregator owns the rolling statistical state for the speech
// modality: pace, pauses, fillers and volume.
type VoiceAggregator struct {
	m models.VoiceMetrics

	started   bool
	startT    float64
	wordCount int

	speechEndCount int
	lastEndT       float64
	awaitingResume bool
	pauseDurations []float64

	lastSampleT float64
	paces       []float64
	volumes     []float64
}

// NewVoiceAggregator returns a zero-valued aggregator ready for a session.
func NewVoiceAggregator() *VoiceAggregator {
	return &VoiceAggregator{}
}

// RecordSpeech folds one recognition result. Interim results only mark
// speech activity; final results contribute words, fillers and a bounded
// sample.
func (a *VoiceAggregator) RecordSpeech(ev models.SpeechEvent) {
	if !a.started {
		a.started = true
		a.startT = ev.Timestamp
		a.lastSampleT = ev.Timestamp
	}

	if a.awaitingResume {
		a.pauseDurations = append(a.pauseDurations, ev.Timestamp-a.lastEndT)
		a.m.AveragePauseDuration = mean(a.pauseDurations)
		a.awaitingResume = false
	}

	if !ev.IsFinal {
		return
	}

	words := countWords(ev.Transcript)
	a.wordCount += words
	a.m.FillerWordCount += len(fillerPattern.FindAllString(ev.Transcript, -1))

	if minutes := (ev.Timestamp - a.startT) / 60000; minutes > 0 {
		a.m.AveragePace = float64(a.wordCount) / minutes
	}

	duration := ev.Timestamp - a.lastSampleT
	if duration > 0 && words > 0 {
		instant := float64(words) / (duration / 60000)
		a.paces = appendBounded(a.paces, instant, paceWindowSize)
		a.m.PaceVariability = variability(a.paces)
	}

	a.m.RecentSamples = append(a.m.RecentSamples, models.SpeechSample{
		Timestamp:  ev.Timestamp,
		Duration:   duration,
		Transcript: ev.Transcript,
		Confidence: ev.Confidence,
	})
	if len(a.m.RecentSamples) > speechSampleCap {
		a.m.RecentSamples = a.m.RecentSamples[len(a.m.RecentSamples)-speechSampleCap:]
	}
	a.lastSampleT = ev.Timestamp
}

// RecordSpeechEnd folds one "speech ended" recognizer event.
func (a *VoiceAggregator) RecordSpeechEnd(ev models.SpeechEndEvent) {
	if !a.started {
		return
	}
	a.speechEndCount++
	a.lastEndT = ev.Timestamp
	a.awaitingResume = true
	if minutes := (ev.Timestamp - a.startT) / 60000; minutes > 0 {
		a.m.PauseFrequency = float64(a.speechEndCount) / minutes
	}
}

// RecordAudioLevel folds one frequency-domain analysis tick into the
// volume statistics, scaled to 0-100.
func (a *VoiceAggregator) RecordAudioLevel(ev models.AudioLevelEvent) {
	if len(ev.Bins) == 0 {
		return
	}
	volume := mean(ev.Bins) / audioBinMax * 100
	volume = models.ClampScore(volume)

	a.volumes = appendBounded(a.volumes, volume, volumeWindowSize)
	a.m.VolumeLevel = mean(a.volumes)
	a.m.VolumeVariability = models.ClampScore(stdev(a.volumes))
}

// Snapshot returns an independent copy of the current metrics.
func (a *VoiceAggregator) Snapshot() models.VoiceMetrics {
	out := a.m
	out.RecentSamples = append([]models.SpeechSample(nil), a.m.RecentSamples...)
	return out
}

// Reset replaces all state with a zero-valued record for a new session.
func (a *VoiceAggregator) Reset() {
	*a = VoiceAggregator{}
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
