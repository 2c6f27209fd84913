package srs

import (
	"sort"
	"time"

	"github.com/example/lingbot/pkg/models"
)

// SortDue orders due cards by review priority:
// 1. Cards that have never been shown (times_seen = 0)
// 2. Cards with the lowest ease factor (hardest cards)
// 3. Cards that are most overdue
func SortDue(items []models.VocabularyItem) []models.VocabularyItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].TimesSeen == 0 && items[j].TimesSeen > 0 {
			return true
		}
		if items[j].TimesSeen == 0 && items[i].TimesSeen > 0 {
			return false
		}

		if items[i].EaseFactor != items[j].EaseFactor {
			return items[i].EaseFactor < items[j].EaseFactor
		}

		// nil NextReview means "due now", treat as the oldest possible date
		return reviewTime(items[i].NextReview).Before(reviewTime(items[j].NextReview))
	})
	return items
}

func reviewTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
