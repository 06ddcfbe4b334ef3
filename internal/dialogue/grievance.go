package dialogue

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
)

// grievanceType is the "type" value that marks a structured complaint.
const grievanceType = "grievance"

// Grievance is a complaint submitted through the chat as a JSON object:
//
//	{"type":"grievance","name":"A","email":"a@b.com","mobile":"123","subject":"S","message":"M"}
type Grievance struct {
	Name    string `json:"name"    validate:"required,max=255"`
	Email   string `json:"email"   validate:"omitempty,email,max=255"`
	Mobile  string `json:"mobile"  validate:"omitempty,phone"`
	Subject string `json:"subject" validate:"required,max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{0,31}$`)

var grievanceValidator = newGrievanceValidator()

func newGrievanceValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// parseGrievance reports whether input is a JSON object typed as a
// grievance. Anything that does not parse, or parses to another shape, is
// not a grievance and ok is false; this is never an error.
func parseGrievance(input string) (g Grievance, ok bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "{") {
		return g, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return g, false
	}
	if t, _ := raw["type"].(string); t != grievanceType {
		return g, false
	}
	g = Grievance{
		Name:    scalar(raw["name"]),
		Email:   scalar(raw["email"]),
		Mobile:  scalar(raw["mobile"]),
		Subject: scalar(raw["subject"]),
		Message: scalar(raw["message"]),
	}
	return g, true
}

// scalar renders JSON strings and numbers as text; other values are dropped.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// Validate returns the json names of the invalid fields, sorted.
func (g Grievance) Validate() []string {
	err := grievanceValidator.Struct(g)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"request"}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	sort.Strings(fields)
	return fields
}

// Ticket converts the grievance into a new support ticket.
func (g Grievance) Ticket(id string) *domain.SupportTicket {
	return &domain.SupportTicket{
		ID:          id,
		Name:        g.Name,
		Email:       g.Email,
		Mobile:      g.Mobile,
		Subject:     g.Subject,
		Description: g.Message,
		Status:      domain.TicketOpen,
	}
}
