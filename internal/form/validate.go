package form

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dueDateLayout = "2006-01-02"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrValidation marks failures detected before any network call.
var ErrValidation = errors.New("validation failed")

func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("simple_email", validateSimpleEmail)
	_ = v.RegisterValidation("calendar_day", validateCalendarDay)
	_ = v.RegisterValidation("future_day", futureDay(now))
	return v
}

func validateSimpleEmail(fl validator.FieldLevel) bool {
	return emailPattern.MatchString(fl.Field().String())
}

func validateCalendarDay(fl validator.FieldLevel) bool {
	_, err := time.Parse(dueDateLayout, fl.Field().String())
	return err == nil
}

// futureDay accepts a YYYY-MM-DD date strictly after today's local date.
func futureDay(now func() time.Time) validator.Func {
	return func(fl validator.FieldLevel) bool {
		t := now()
		due, err := time.ParseInLocation(dueDateLayout, fl.Field().String(), t.Location())
		if err != nil {
			return false
		}
		today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return due.After(today)
	}
}

// tagMessage maps a failed validation tag to the message shown to the
// librarian. Lists are ordered by priority.
type tagMessage struct {
	tag     string
	message string
}

func check(v *validator.Validate, s any, messages []tagMessage) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Failure{Message: messages[0].message, Err: err}
	}

	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.Tag()] = true
	}
	for _, tm := range messages {
		if failed[tm.tag] {
			return &Failure{Message: tm.message, Err: ErrValidation}
		}
	}
	return &Failure{Message: messages[0].message, Err: ErrValidation}
}

const (
	msgBookInvalid    = "Please fill all fields with valid data"
	msgFillAll        = "Please fill all fields"
	msgInvalidEmail   = "Please enter a valid email address"
	msgDueNotInFuture = "Due date must be in the future"
	msgSelectLoan     = "Please select a loan"
)

type bookFields struct {
	ISBN   string `validate:"required"`
	Title  string `validate:"required"`
	Author string `validate:"required"`
	Copies int    `validate:"gte=1"`
}

var bookMessages = []tagMessage{{"required", msgBookInvalid}, {"gte", msgBookInvalid}}

type memberFields struct {
	Name  string `validate:"required"`
	Email string `validate:"required,simple_email"`
}

var memberMessages = []tagMessage{{"required", msgFillAll}, {"simple_email", msgInvalidEmail}}

type loanFields struct {
	MemberID string `validate:"required"`
	BookID   string `validate:"required"`
	DueAt    string `validate:"required,calendar_day,future_day"`
}

// An unparseable date is treated like a missing one: a date input submits
// an empty value when its content is invalid.
var loanMessages = []tagMessage{
	{"required", msgFillAll},
	{"calendar_day", msgFillAll},
	{"future_day", msgDueNotInFuture},
}

// parseCopies reads the copies field; anything that is not an integer
// counts as zero so it fails the gte=1 rule.
func parseCopies(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
