package internal

// ClosestBitrate returns the highest entry of the ascending ladder whose
// ratio to target stays at or below 1-threshold. Threshold 0 means "closest
// at or below target"; a positive threshold demands that fraction of safety
// margin below the target. When no entry qualifies, or target is not
// positive, the lowest entry is returned, so a non-empty ladder always
// yields a valid member.
func ClosestBitrate(ladder []int, target float64, threshold float64) int {
	if len(ladder) == 0 {
		return 0
	}
	if target > 0 {
		for i := len(ladder) - 1; i >= 0; i-- {
			if float64(ladder[i])/target <= 1-threshold {
				return ladder[i]
			}
		}
	}
	return ladder[0]
}

// MaxUsefulBitrateForWidth returns the highest bitrate worth requesting for
// the given display width. Representations wider than the just-large-enough
// tier cannot improve what the display shows, so the cap is the maximum
// bitrate among representations no wider than that tier. When no
// representation is at least width pixels wide (including when all widths
// are unknown) there is no useful cap and UnboundedBitrate is returned.
func MaxUsefulBitrateForWidth(reps []Representation, width int) int {
	tier := 0
	for _, r := range reps {
		if r.Width > 0 && r.Width >= width && (tier == 0 || r.Width < tier) {
			tier = r.Width
		}
	}
	if tier == 0 {
		return UnboundedBitrate
	}
	maxBitrate := 0
	for _, r := range reps {
		if r.Width <= tier && r.Bitrate > maxBitrate {
			maxBitrate = r.Bitrate
		}
	}
	return maxBitrate
}
