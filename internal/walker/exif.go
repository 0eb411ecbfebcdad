package walker

import (
	exif "github.com/dsoprea/go-exif/v3"
)

// captureTagOrder lists the EXIF tags consulted for a capture time,
// most specific first.
var captureTagOrder = []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"}

// captureTime returns the EXIF capture time formatted by go-exif, or ""
// when data carries no EXIF block or no date tag.
func captureTime(data []byte) string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return ""
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return ""
	}

	found := make(map[string]string, len(captureTagOrder))
	for _, entry := range entries {
		for _, tag := range captureTagOrder {
			if entry.TagName == tag && entry.Formatted != "" {
				if _, ok := found[tag]; !ok {
					found[tag] = entry.Formatted
				}
			}
		}
	}

	for _, tag := range captureTagOrder {
		if v := found[tag]; v != "" {
			return v
		}
	}
	return ""
}
