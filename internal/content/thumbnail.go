package content

import "strings"

// defaultThumbnailsBySubject maps a normalized subject name to the stock
// thumbnail served when a row has no thumbnail of its own. The table is the
// whole policy; subjects outside it fall back to the default entry.
var defaultThumbnailsBySubject = map[string]string{
	"math":    "https://images.unsplash.com/photo-1509228468518-180dd4864904?w=400&h=300&fit=crop",
	"korean":  "https://images.unsplash.com/photo-1456513080510-7bf3a84b82f8?w=400&h=300&fit=crop",
	"english": "https://images.unsplash.com/photo-1546410531-bb4caa6b424d?w=400&h=300&fit=crop",
	"science": "https://images.unsplash.com/photo-1532094349884-543bc11b234d?w=400&h=300&fit=crop",
	"social":  "https://images.unsplash.com/photo-1526778548025-fa2f459cd5c1?w=400&h=300&fit=crop",
}

const fallbackThumbnail = "https://images.unsplash.com/photo-1503676260728-1c00da094a0b?w=400&h=300&fit=crop"

// DefaultThumbnail returns the stock thumbnail URL for a subject.
func DefaultThumbnail(subject string) string {
	key := strings.ToLower(strings.TrimSpace(subject))
	if url, ok := defaultThumbnailsBySubject[key]; ok {
		return url
	}
	return fallbackThumbnail
}
