package readings

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/jrsteele09/secure-health/apiclient"
	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/internal/errors"
)

// DataReadingPath is the API endpoint data readings are posted to.
const DataReadingPath = "/Data/dataReading"

const (
	MinSteps = 0
	MaxSteps = 500
)

// Validation messages
const (
	MessageStepsRequired = "Steps is required"
	MessageStepsNumber   = "Steps must be a number"
	MessageStepsRange    = "Steps must be between 0 and 500"
)

// Form is a data reading as entered by the user.
type Form struct {
	Steps *int `json:"steps"`

	// notANumber is set when the entered text did not start with a number
	notANumber bool
}

// Errors holds a validation message per field; empty means valid.
type Errors struct {
	Steps string
}

func (e Errors) Valid() bool {
	return e.Steps == ""
}

// PostDataReadingResponse is the API reply to a submitted reading.
type PostDataReadingResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ParseSteps builds a form from the text typed into the steps field. Like a numeric
// text input it reads a leading integer and ignores anything after it. Text without a
// leading integer, including cleared text, is not a number. A value too large for an
// int is kept at the int limit so it fails the range check.
func ParseSteps(text string) Form {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if text == "" {
		return Form{notANumber: true}
	}
	end := 0
	if text[0] == '+' || text[0] == '-' {
		end = 1
	}
	digits := end
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == digits {
		return Form{notANumber: true}
	}
	n, err := strconv.Atoi(text[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Form{notANumber: true}
	}
	return Form{Steps: &n}
}

func Validate(f Form) Errors {
	var errs Errors
	switch {
	case f.notANumber:
		errs.Steps = MessageStepsNumber
	case f.Steps == nil:
		errs.Steps = MessageStepsRequired
	case *f.Steps < MinSteps || *f.Steps > MaxSteps:
		errs.Steps = MessageStepsRange
	}
	return errs
}

// NewPostDataReading returns the requester for submitting readings.
func NewPostDataReading(httpClient *http.Client, baseURL string, tokens authsession.TokenSource, opts ...apiclient.Option) *apiclient.Requester[PostDataReadingResponse] {
	return apiclient.New[PostDataReadingResponse](httpClient, baseURL, http.MethodPost, DataReadingPath, tokens, opts...)
}

// Submit validates f and posts it. Invalid forms are not sent.
func Submit(ctx context.Context, r *apiclient.Requester[PostDataReadingResponse], f Form) (PostDataReadingResponse, error) {
	if errs := Validate(f); !errs.Valid() {
		return PostDataReadingResponse{}, errors.Wrapf(errors.ErrValidation, "%s", errs.Steps)
	}
	var resp PostDataReadingResponse
	err := r.Send(ctx, apiclient.Params[PostDataReadingResponse]{
		Body:      f,
		OnSuccess: func(p PostDataReadingResponse) { resp = p },
	})
	return resp, err
}
