package services

import (
	"errors"
	"strings"

	"github.com/terraincognita07/medremind/internal/models"
)

var (
	ErrNoMedicines          = errors.New("at least one medicine is required")
	ErrMedicineNameRequired = errors.New("medicine name is required")
	ErrDosageRequired       = errors.New("dosage is required")
	ErrInvalidFrequency     = errors.New("invalid frequency")
	ErrInvalidTiming        = errors.New("invalid timing")
	ErrInvalidTimeOfDay     = errors.New("invalid time of day")
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var frequencyOptions = []Option{
	{Value: models.FrequencyOnceDaily, Label: "Once daily"},
	{Value: models.FrequencyTwiceDaily, Label: "Twice daily"},
	{Value: models.FrequencyThriceDaily, Label: "Thrice daily"},
	{Value: models.FrequencyFourTimesDaily, Label: "Four times daily"},
	{Value: models.FrequencyAsNeeded, Label: "As needed"},
	{Value: models.FrequencyWeekly, Label: "Weekly"},
}

var timingOptions = []Option{
	{Value: models.TimingBeforeFood, Label: "Before food"},
	{Value: models.TimingAfterFood, Label: "After food"},
	{Value: models.TimingWithFood, Label: "With food"},
	{Value: models.TimingAnyTime, Label: "Any time"},
}

var timeOfDayOptions = []Option{
	{Value: models.TimeOfDayMorning, Label: "Morning"},
	{Value: models.TimeOfDayAfternoon, Label: "Afternoon"},
	{Value: models.TimeOfDayEvening, Label: "Evening"},
	{Value: models.TimeOfDayNight, Label: "Night"},
}

type MedicineInput struct {
	MedicineName string   `json:"medicine_name"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Duration     string   `json:"duration"`
	Timing       string   `json:"timing"`
	TimeOfDay    []string `json:"time_of_day"`
}

// PrescriptionForm describes the prescription form: the allowed values and a
// blank medicine row with defaults applied.
type PrescriptionForm struct {
	Frequencies     []Option      `json:"frequencies"`
	Timings         []Option      `json:"timings"`
	TimesOfDay      []Option      `json:"times_of_day"`
	DefaultMedicine MedicineInput `json:"default_medicine"`
}

func NewPrescriptionForm() PrescriptionForm {
	return PrescriptionForm{
		Frequencies:     append([]Option(nil), frequencyOptions...),
		Timings:         append([]Option(nil), timingOptions...),
		TimesOfDay:      append([]Option(nil), timeOfDayOptions...),
		DefaultMedicine: defaultMedicine(),
	}
}

func defaultMedicine() MedicineInput {
	return MedicineInput{
		Frequency: models.FrequencyOnceDaily,
		Timing:    models.TimingAfterFood,
		TimeOfDay: []string{models.TimeOfDayMorning},
	}
}

func optionAllowed(options []Option, value string) bool {
	for _, option := range options {
		if option.Value == value {
			return true
		}
	}
	return false
}

// NormalizeMedicines applies form defaults and rejects unknown vocabulary.
// time_of_day is deduplicated into morning..night order.
func NormalizeMedicines(inputs []MedicineInput) ([]MedicineInput, error) {
	if len(inputs) == 0 {
		return nil, ErrNoMedicines
	}

	defaults := defaultMedicine()
	normalized := make([]MedicineInput, 0, len(inputs))
	for _, input := range inputs {
		medicine := MedicineInput{
			MedicineName: strings.TrimSpace(input.MedicineName),
			Dosage:       strings.TrimSpace(input.Dosage),
			Frequency:    strings.TrimSpace(input.Frequency),
			Duration:     strings.TrimSpace(input.Duration),
			Timing:       strings.TrimSpace(input.Timing),
		}
		if medicine.MedicineName == "" {
			return nil, ErrMedicineNameRequired
		}
		if medicine.Dosage == "" {
			return nil, ErrDosageRequired
		}

		if medicine.Frequency == "" {
			medicine.Frequency = defaults.Frequency
		}
		if !optionAllowed(frequencyOptions, medicine.Frequency) {
			return nil, ErrInvalidFrequency
		}
		if medicine.Timing == "" {
			medicine.Timing = defaults.Timing
		}
		if !optionAllowed(timingOptions, medicine.Timing) {
			return nil, ErrInvalidTiming
		}

		selected := make(map[string]bool, len(input.TimeOfDay))
		for _, raw := range input.TimeOfDay {
			value := strings.TrimSpace(raw)
			if !optionAllowed(timeOfDayOptions, value) {
				return nil, ErrInvalidTimeOfDay
			}
			selected[value] = true
		}
		for _, option := range timeOfDayOptions {
			if selected[option.Value] {
				medicine.TimeOfDay = append(medicine.TimeOfDay, option.Value)
			}
		}
		if len(medicine.TimeOfDay) == 0 {
			medicine.TimeOfDay = append([]string(nil), defaults.TimeOfDay...)
		}

		normalized = append(normalized, medicine)
	}
	return normalized, nil
}

func IsPrescriptionValidationError(err error) bool {
	return errors.Is(err, ErrNoMedicines) ||
		errors.Is(err, ErrMedicineNameRequired) ||
		errors.Is(err, ErrDosageRequired) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidTiming) ||
		errors.Is(err, ErrInvalidTimeOfDay)
}
