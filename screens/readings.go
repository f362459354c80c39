package screens

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/jrsteele09/secure-health/apiclient"
	"github.com/jrsteele09/secure-health/navigation"
	"github.com/jrsteele09/secure-health/readings"
)

const ReadingsPrompt = "Enter a Steps Value to submit:"

// Readings submits a data reading and shows the API response.
type Readings struct {
	requester *apiclient.Requester[readings.PostDataReadingResponse]
	form      readings.Form
	errs      readings.Errors
}

func NewReadings(requester *apiclient.Requester[readings.PostDataReadingResponse]) *Readings {
	r := &Readings{requester: requester}
	r.errs = readings.Validate(r.form)
	return r
}

func (r *Readings) Name() navigation.Screen { return navigation.Readings }
func (r *Readings) Title() string           { return "Readings" }

// SetSteps updates the form from the entered text and revalidates it.
func (r *Readings) SetSteps(text string) readings.Errors {
	r.form = readings.ParseSteps(text)
	r.errs = readings.Validate(r.form)
	return r.errs
}

func (r *Readings) Errors() readings.Errors {
	return r.errs
}

func (r *Readings) Submit(ctx context.Context) (readings.PostDataReadingResponse, error) {
	return readings.Submit(ctx, r.requester, r.form)
}

// Response returns the last API response, indented for display.
func (r *Readings) Response() (string, bool) {
	raw := r.requester.Result().Response
	if len(raw) == 0 {
		return "", false
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "   "); err != nil {
		return string(raw), true
	}
	return out.String(), true
}

func (r *Readings) Render() []string {
	var lines []string
	if r.requester.States().IsLoading {
		lines = append(lines, LoadingText)
	} else {
		lines = append(lines, ReadingsPrompt, "[steps N] set steps", "[submit] Submit")
		if !r.errs.Valid() {
			lines = append(lines, r.errs.Steps)
		}
	}
	if resp, ok := r.Response(); ok {
		lines = append(lines, "Response:", resp)
	}
	return lines
}
