package render

import (
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// fontSource hands out faces at a given size. opentype faces are not safe for
// concurrent use, so every render call gets its own face.
type fontSource struct {
	parsed *opentype.Font
}

// loadFont parses a TrueType/OpenType file. Any problem falls back to the
// built-in bitmap face.
func loadFont(path string, log zerolog.Logger) fontSource {
	if path == "" {
		return fontSource{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("font", path).Msg("font not available, using built-in face")
		return fontSource{}
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		log.Warn().Err(err).Str("font", path).Msg("font unreadable, using built-in face")
		return fontSource{}
	}
	return fontSource{parsed: parsed}
}

func (s fontSource) face(size float64) font.Face {
	if s.parsed == nil || size <= 0 {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(s.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
