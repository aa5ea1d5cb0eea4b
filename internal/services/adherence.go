package services

import (
	"math"

	"github.com/terraincognita07/medremind/internal/models"
)

// Adherence is the rounded percentage of taken records, 0 for no records.
func Adherence(records []models.DoseRecord) int {
	if len(records) == 0 {
		return 0
	}

	taken := 0
	for _, record := range records {
		if record.HasStatus(models.DoseTaken) {
			taken++
		}
	}
	return int(math.Round(float64(taken) * 100 / float64(len(records))))
}
