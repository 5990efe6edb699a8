// Package onboarding holds the one-time setup flow a new account walks
// through before reaching the dashboard.
package onboarding

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Step is one page of the onboarding flow
type Step string

const (
	StepSector  Step = "sector"
	StepTone    Step = "tone"
	StepHours   Step = "hours"
	StepSupport Step = "support"
)

// Steps is the flow order
var Steps = []Step{StepSector, StepTone, StepHours, StepSupport}

// Prefix is the path every onboarding step lives under
const Prefix = "/onboarding"

// Option is a selectable choice
type Option struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Sectors = []Option{
	{ID: "healthcare", Name: "Healthcare", Description: "Clinics, hospitals, pharmacies"},
	{ID: "retail", Name: "Retail", Description: "Physical stores and e-commerce"},
	{ID: "food", Name: "Food", Description: "Restaurants, bars, delivery"},
	{ID: "services", Name: "Services", Description: "Consulting, finance, legal"},
	{ID: "education", Name: "Education", Description: "Schools, courses, training"},
	{ID: "technology", Name: "Technology", Description: "Software, hardware, IT"},
	{ID: "real-estate", Name: "Real estate", Description: "Property, construction"},
	{ID: "other", Name: "Other", Description: "Another kind of business"},
}

var Tones = []Option{
	{ID: "formal", Name: "Formal", Description: "Professional, distinguished language"},
	{ID: "casual", Name: "Casual", Description: "Friendly but still professional"},
	{ID: "friendly", Name: "Friendly", Description: "Conversational and close"},
	{ID: "enthusiastic", Name: "Enthusiastic", Description: "Energetic and motivating"},
}

var SupportTypes = []Option{
	{ID: "chat", Name: "Chat", Description: "Text messages only"},
	{ID: "voice", Name: "Voice", Description: "Voice calls only"},
	{ID: "both", Name: "Both", Description: "Chat and voice calls"},
}

// Default business hours
const (
	DefaultHoursStart = "09:00"
	DefaultHoursEnd   = "18:00"
)

// Profile is everything the flow collects
type Profile struct {
	Sector      string `json:"sector" validate:"required,sector"`
	Tone        string `json:"tone" validate:"required,tone"`
	HoursStart  string `json:"hours_start" validate:"required,clock"`
	HoursEnd    string `json:"hours_end" validate:"required,clock"`
	SupportType string `json:"support_type" validate:"required,support"`
}

// DefaultProfile is the starting point of a new flow
func DefaultProfile() Profile {
	return Profile{HoursStart: DefaultHoursStart, HoursEnd: DefaultHoursEnd}
}

var ErrHoursOrder = errors.New("business hours must end after they start")

// ClockLayout is the business hours format, always two-digit HH:MM
const ClockLayout = "15:04"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	rules := map[string]validator.Func{
		"sector":  optionValidator(Sectors),
		"tone":    optionValidator(Tones),
		"support": optionValidator(SupportTypes),
		"clock": func(fl validator.FieldLevel) bool {
			_, err := ParseClock(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		mustRegister(v, tag, fn)
	}
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("onboarding: register %q validation: %v", tag, err))
	}
}

// ParseClock parses a strict HH:MM time of day; "9:00" is rejected
func ParseClock(s string) (time.Time, error) {
	if len(s) != len(ClockLayout) {
		return time.Time{}, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	return time.Parse(ClockLayout, s)
}

// hoursOrdered reports whether end is strictly after start. Both must
// already have passed the clock rule.
func hoursOrdered(start, end string) bool {
	s, err1 := ParseClock(start)
	e, err2 := ParseClock(end)
	return err1 == nil && err2 == nil && e.After(s)
}

func optionValidator(options []Option) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return IsOption(options, fl.Field().String())
	}
}

// IsOption reports whether id is one of options
func IsOption(options []Option, id string) bool {
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Validate checks a completed profile
func Validate(p Profile) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = strings.ToLower(fe.Field())
			}
			return fmt.Errorf("invalid onboarding profile: %s", strings.Join(fields, ", "))
		}
		return err
	}
	if !hoursOrdered(p.HoursStart, p.HoursEnd) {
		return ErrHoursOrder
	}
	return nil
}

// stepFields lists the Profile fields each step collects
var stepFields = map[Step][]string{
	StepSector:  {"Sector"},
	StepTone:    {"Tone"},
	StepHours:   {"HoursStart", "HoursEnd"},
	StepSupport: {"SupportType"},
}

// ValidateStep checks only the fields collected by step
func ValidateStep(p Profile, step Step) error {
	fields, ok := stepFields[step]
	if !ok {
		return fmt.Errorf("unknown onboarding step %q", step)
	}
	if err := validate.StructPartial(p, fields...); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid %s: %s", step, strings.ToLower(verrs[0].Field()))
		}
		return err
	}
	if step == StepHours && !hoursOrdered(p.HoursStart, p.HoursEnd) {
		return ErrHoursOrder
	}
	return nil
}

// ParseStep returns the step named s
func ParseStep(s string) (Step, bool) {
	for _, st := range Steps {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Next returns the step after s; ok is false after the last step
func Next(s Step) (Step, bool) {
	for i, st := range Steps {
		if st == s && i+1 < len(Steps) {
			return Steps[i+1], true
		}
	}
	return "", false
}

// Prev returns the step before s; ok is false on the first step
func Prev(s Step) (Step, bool) {
	for i, st := range Steps {
		if st == s && i > 0 {
			return Steps[i-1], true
		}
	}
	return "", false
}

// Path returns the route serving step s
func Path(s Step) string {
	return Prefix + "/" + string(s)
}
