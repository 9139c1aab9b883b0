package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func audioCandidates() []*Adaptation {
	return []*Adaptation{
		{Type: MediaTypeAudio, Language: "eng",
			Representations: []Representation{{ID: "a-eng", Bitrate: 128_000}}},
		{Type: MediaTypeAudio, Language: "fra",
			Representations: []Representation{{ID: "a-fra", Bitrate: 128_000}}},
		{Type: MediaTypeAudio, Language: "spa",
			Representations: []Representation{{ID: "a-spa", Bitrate: 128_000}}},
		{Type: MediaTypeAudio, Language: "fra", IsAudioDescription: true,
			Representations: []Representation{{ID: "a-fra-ad", Bitrate: 128_000}}},
	}
}

func TestChooseAudioAdaptationMatchesMacroLanguage(t *testing.T) {
	got := ChooseAudioAdaptation(audioCandidates(), AudioTrackPreference{Language: "fr"})
	require.NotNil(t, got)
	require.Equal(t, "fra", got.Language)
	require.False(t, got.IsAudioDescription)
}

func TestChooseAudioAdaptationHonorsAudioDescription(t *testing.T) {
	got := ChooseAudioAdaptation(audioCandidates(),
		AudioTrackPreference{Language: "fr", AudioDescription: true})
	require.NotNil(t, got)
	require.Equal(t, "a-fra-ad", got.Representations[0].ID)
}

func TestChooseAudioAdaptationFallsBackToFirst(t *testing.T) {
	got := ChooseAudioAdaptation(audioCandidates(), AudioTrackPreference{Language: "de"})
	require.NotNil(t, got)
	require.Equal(t, "eng", got.Language)
}

func TestChooseAudioAdaptationEmptyCandidates(t *testing.T) {
	require.Nil(t, ChooseAudioAdaptation(nil, AudioTrackPreference{Language: "en"}))
}

func TestChooseTextAdaptation(t *testing.T) {
	candidates := []*Adaptation{
		{Type: MediaTypeText, Language: "eng",
			Representations: []Representation{{ID: "t-eng"}}},
		{Type: MediaTypeText, Language: "fra", IsClosedCaption: true,
			Representations: []Representation{{ID: "t-fra-cc"}}},
	}

	// nil preference means no text wanted
	require.Nil(t, ChooseTextAdaptation(candidates, nil))

	got := ChooseTextAdaptation(candidates, &TextTrackPreference{Language: "en"})
	require.NotNil(t, got)
	require.Equal(t, "eng", got.Language)

	got = ChooseTextAdaptation(candidates, &TextTrackPreference{Language: "fr", ClosedCaption: true})
	require.NotNil(t, got)
	require.Equal(t, "t-fra-cc", got.Representations[0].ID)

	// no implicit fallback for text
	require.Nil(t, ChooseTextAdaptation(candidates, &TextTrackPreference{Language: "de"}))
}

func TestAdaptationBitratesAscendingDistinct(t *testing.T) {
	a := &Adaptation{Type: MediaTypeVideo, Representations: []Representation{
		{ID: "c", Bitrate: 1_500_000},
		{ID: "a", Bitrate: 300_000},
		{ID: "b", Bitrate: 750_000},
		{ID: "b2", Bitrate: 750_000},
	}}
	require.Equal(t, []int{300_000, 750_000, 1_500_000}, a.Bitrates())
}
