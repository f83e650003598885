package decoder

import (
	"io"

	"github.com/dhowden/tag"
)

// readMetadata extracts tags if the container carries any. Missing or
// unreadable tags yield empty metadata, never an error.
func readMetadata(r io.ReadSeeker) *Metadata {
	metadata := &Metadata{}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return metadata
	}
	m, err := tag.ReadFrom(r)
	if err != nil {
		return metadata
	}

	metadata.Title = m.Title()
	metadata.Artist = m.Artist()
	metadata.Album = m.Album()
	metadata.AlbumArtist = m.AlbumArtist()
	metadata.Genre = m.Genre()
	metadata.Year = m.Year()
	metadata.Comment = m.Comment()
	if track, _ := m.Track(); track > 0 {
		metadata.TrackNumber = track
	}

	return metadata
}
