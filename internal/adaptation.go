package internal

// ChooseAudioAdaptation picks the audio track matching the preference.
// Candidates are first narrowed to those whose audio-description flag
// matches the preference, then matched by language. A non-empty candidate
// list always yields a track: when nothing matches, the first candidate of
// the full list is the fallback.
func ChooseAudioAdaptation(candidates []*Adaptation, pref AudioTrackPreference) *Adaptation {
	if len(candidates) == 0 {
		return nil
	}
	filtered := make([]*Adaptation, 0, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.IsAudioDescription == pref.AudioDescription {
			filtered = append(filtered, c)
			tags = append(tags, c.Language)
		}
	}
	if idx := MatchLanguage(tags, pref.Language); idx >= 0 {
		return filtered[idx]
	}
	return candidates[0]
}

// ChooseTextAdaptation picks the text track matching the preference. A nil
// preference means no text track is wanted and yields nil. Unlike audio
// there is no fallback to the first candidate: the absence of a subtitle
// track is always a valid outcome.
func ChooseTextAdaptation(candidates []*Adaptation, pref *TextTrackPreference) *Adaptation {
	if pref == nil {
		return nil
	}
	filtered := make([]*Adaptation, 0, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.IsClosedCaption == pref.ClosedCaption {
			filtered = append(filtered, c)
			tags = append(tags, c.Language)
		}
	}
	if idx := MatchLanguage(tags, pref.Language); idx >= 0 {
		return filtered[idx]
	}
	return nil
}
