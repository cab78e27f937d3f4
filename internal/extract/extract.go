// Package extract turns free-form chat text into structured appointment
// fields using a language model. Callers treat it as an opaque provider:
// either Details come back, or an error explains why they could not.
package extract

import (
	"encoding/json"
	"fmt"
	"time"
)

// Details is a successful extraction. Optional fields are zero-valued when
// the model did not find them; that is not an error.
type Details struct {
	Title           string
	Description     string
	StartsAt        time.Time
	Location        string
	DurationMinutes int
}

// Error is an extraction failure with a human-readable reason, as opposed
// to a transport or decoding fault.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "extraction failed: " + e.Reason
}

// payload mirrors the JSON document the model is prompted to emit.
type payload struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Location        string `json:"location"`
	DurationMinutes int    `json:"duration_minutes"`
	Success         bool   `json:"success"`
	Error           string `json:"error"`
}

func decodeDetails(raw []byte, loc *time.Location) (*Details, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	if !p.Success {
		reason := p.Error
		if reason == "" {
			reason = "could not identify appointment details"
		}
		return nil, &Error{Reason: reason}
	}
	if p.Title == "" {
		return nil, &Error{Reason: "no title identified"}
	}
	if p.Date == "" {
		return nil, &Error{Reason: "no date identified"}
	}

	hhmm := p.Time
	if hhmm == "" {
		hhmm = "12:00"
	}
	startsAt, err := time.ParseInLocation("2006-01-02 15:04", p.Date+" "+hhmm, loc)
	if err != nil {
		return nil, &Error{Reason: "unusable date or time: " + p.Date + " " + hhmm}
	}

	return &Details{
		Title:           p.Title,
		Description:     p.Description,
		StartsAt:        startsAt,
		Location:        p.Location,
		DurationMinutes: p.DurationMinutes,
	}, nil
}

const promptTemplate = `Extract appointment details from the following text. Current date/time: %s

Text: %q

Return JSON with these fields:
{
    "title": "brief title for the appointment",
    "description": "detailed description (optional)",
    "date": "YYYY-MM-DD",
    "time": "HH:MM (24-hour format)",
    "location": "location if mentioned, else empty",
    "duration_minutes": estimated duration in minutes,
    "success": true/false,
    "error": "error message if parsing failed"
}

Rules:
- Resolve relative expressions ("tomorrow", "next Friday") against the current date/time above
- If no specific date is mentioned, assume today
- If no time is specified, suggest a reasonable time
- Title should be concise (2-5 words)
- Set success to false when no date or title can be identified`

func buildPrompt(text string, ref time.Time) string {
	return fmt.Sprintf(promptTemplate, ref.Format("2006-01-02 15:04"), text)
}
