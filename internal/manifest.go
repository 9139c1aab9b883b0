package internal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
)

// DecodeMasterPlaylist reads an HLS master playlist from r.
func DecodeMasterPlaylist(r io.Reader) (*m3u8.MasterPlaylist, error) {
	playlist, listType, err := m3u8.DecodeFrom(r, true)
	if err != nil {
		return nil, fmt.Errorf("could not decode playlist: %w", err)
	}
	if listType != m3u8.MASTER {
		return nil, ErrNotMasterPlaylist
	}
	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, ErrNotMasterPlaylist
	}
	return master, nil
}

// AdaptationsFromMasterPlaylist converts the variant streams and rendition
// groups of an HLS master playlist into the selection model: all variants
// together form the ladder of one video adaptation, and each EXT-X-MEDIA
// audio or subtitle rendition becomes an adaptation of its own.
func AdaptationsFromMasterPlaylist(master *m3u8.MasterPlaylist) (map[MediaType][]*Adaptation, error) {
	if len(master.Variants) == 0 {
		return nil, ErrNoVariants
	}
	out := make(map[MediaType][]*Adaptation)
	video := &Adaptation{Type: MediaTypeVideo}
	seenAlts := make(map[string]bool)
	for i, v := range master.Variants {
		if v == nil || v.Iframe {
			continue
		}
		rep := Representation{
			ID:      v.URI,
			Bitrate: int(v.Bandwidth),
			Width:   widthFromResolution(v.Resolution),
		}
		if rep.ID == "" {
			rep.ID = "variant_" + strconv.Itoa(i)
		}
		video.Representations = append(video.Representations, rep)
		for _, alt := range v.Alternatives {
			if alt == nil {
				continue
			}
			key := alt.Type + "/" + alt.GroupId + "/" + alt.Name
			if seenAlts[key] {
				continue
			}
			seenAlts[key] = true
			switch alt.Type {
			case "AUDIO":
				out[MediaTypeAudio] = append(out[MediaTypeAudio], &Adaptation{
					Type:     MediaTypeAudio,
					Language: alt.Language,
					IsAudioDescription: strings.Contains(alt.Characteristics,
						"public.accessibility.describes-video"),
					Representations: []Representation{{ID: alternativeID(alt)}},
				})
			case "SUBTITLES", "CLOSED-CAPTIONS":
				out[MediaTypeText] = append(out[MediaTypeText], &Adaptation{
					Type:     MediaTypeText,
					Language: alt.Language,
					IsClosedCaption: alt.Type == "CLOSED-CAPTIONS" ||
						strings.Contains(alt.Characteristics,
							"public.accessibility.transcribes-spoken-dialog"),
					Representations: []Representation{{ID: alternativeID(alt)}},
				})
			}
		}
	}
	if len(video.Representations) > 0 {
		out[MediaTypeVideo] = []*Adaptation{video}
	}
	return out, nil
}

func alternativeID(alt *m3u8.Alternative) string {
	if alt.URI != "" {
		return alt.URI
	}
	return alt.GroupId + "/" + alt.Name
}

// widthFromResolution parses the RESOLUTION attribute ("1280x720") into the
// horizontal pixel count, 0 when absent or malformed.
func widthFromResolution(res string) int {
	w, _, ok := strings.Cut(res, "x")
	if !ok {
		return 0
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width < 0 {
		return 0
	}
	return width
}
