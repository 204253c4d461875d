// Package members holds the gym membership register: records, their
// validation, and the segmented dashboard view over them.
package members

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput  = errors.New("members: invalid input")
	ErrInvalidMobile = errors.New("members: invalid mobile number format")
	ErrDuplicate     = errors.New("members: duplicate member")
	ErrNotFound      = errors.New("members: member not found")
)

// DateLayout is the calendar-date format used for dob, join and billing dates.
const DateLayout = "2006-01-02"

// Status is the membership state; the dashboard shows one segment per status.
type Status string

const (
	StatusActive      Status = "Active"
	StatusHold        Status = "Hold"
	StatusCancelled   Status = "Cancelled"
	StatusDeactivated Status = "Deactivated"
)

// Statuses lists the dashboard segments in display order.
var Statuses = []Status{StatusActive, StatusHold, StatusCancelled, StatusDeactivated}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, known := range Statuses {
		if strings.EqualFold(raw, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
}

// Member is one registered gym member. Amount is in minor units. Photo is
// stored as given, usually a base64 data URL.
type Member struct {
	ID            string    `json:"id"`
	FormNumber    string    `json:"formNumber"`
	Name          string    `json:"name"`
	DOB           string    `json:"dob"`
	Gender        string    `json:"gender"`
	Mobile        string    `json:"mobile"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	Staff         string    `json:"staff"`
	Amount        int64     `json:"amount"`
	Plan          string    `json:"plan"`
	JoinDate      string    `json:"joinDate"`
	BillingDate   string    `json:"billingDate"`
	Status        Status    `json:"status"`
	HoldDuration  string    `json:"holdDuration"`
	PaymentMethod string    `json:"paymentMethod"`
	PayMonth      string    `json:"payMonth"`
	Remark        string    `json:"remark"`
	Photo         string    `json:"photo,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Input is the member form as entered. An empty ID creates a new member.
type Input struct {
	ID            string
	FormNumber    string
	Name          string
	DOB           string
	Gender        string
	Mobile        string
	Email         string
	Address       string
	Staff         string
	Amount        string
	Plan          string
	JoinDate      string
	BillingDate   string
	Status        Status
	HoldDuration  string
	PaymentMethod string
	PayMonth      string
	Remark        string
	Photo         string
}

// FromMember turns a stored record back into an editable form.
func FromMember(m Member) Input {
	return Input{
		ID:            m.ID,
		FormNumber:    m.FormNumber,
		Name:          m.Name,
		DOB:           m.DOB,
		Gender:        m.Gender,
		Mobile:        m.Mobile,
		Email:         m.Email,
		Address:       m.Address,
		Staff:         m.Staff,
		Amount:        FormatAmount(m.Amount),
		Plan:          m.Plan,
		JoinDate:      m.JoinDate,
		BillingDate:   m.BillingDate,
		Status:        m.Status,
		HoldDuration:  m.HoldDuration,
		PaymentMethod: m.PaymentMethod,
		PayMonth:      m.PayMonth,
		Remark:        m.Remark,
		Photo:         m.Photo,
	}
}

// build validates in and produces the record to store; ID is left to the caller.
func build(in Input) (Member, error) {
	m := Member{
		ID:            strings.TrimSpace(in.ID),
		FormNumber:    strings.TrimSpace(in.FormNumber),
		Name:          strings.TrimSpace(in.Name),
		DOB:           strings.TrimSpace(in.DOB),
		Gender:        strings.TrimSpace(in.Gender),
		Email:         strings.TrimSpace(in.Email),
		Address:       strings.TrimSpace(in.Address),
		Staff:         strings.TrimSpace(in.Staff),
		Plan:          strings.TrimSpace(in.Plan),
		JoinDate:      strings.TrimSpace(in.JoinDate),
		BillingDate:   strings.TrimSpace(in.BillingDate),
		Status:        in.Status,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		PayMonth:      strings.TrimSpace(in.PayMonth),
		Remark:        strings.TrimSpace(in.Remark),
		Photo:         in.Photo,
	}
	required := []struct{ name, value string }{
		{"name", m.Name},
		{"dob", m.DOB},
		{"gender", m.Gender},
		{"mobile", strings.TrimSpace(in.Mobile)},
		{"amount", strings.TrimSpace(in.Amount)},
		{"plan", m.Plan},
		{"joinDate", m.JoinDate},
		{"billingDate", m.BillingDate},
		{"status", string(m.Status)},
		{"remark", m.Remark},
		{"paymentMethod", m.PaymentMethod},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Member{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if !m.Status.Valid() {
		return Member{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, m.Status)
	}
	for _, d := range []struct{ name, value string }{{"dob", m.DOB}, {"joinDate", m.JoinDate}, {"billingDate", m.BillingDate}} {
		if _, err := time.Parse(DateLayout, d.value); err != nil {
			return Member{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, d.name)
		}
	}

	mobile, err := NormalizeMobile(in.Mobile)
	if err != nil {
		return Member{}, err
	}
	m.Mobile = mobile
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Member{}, err
	}
	m.Amount = amount
	if m.Status == StatusHold {
		m.HoldDuration = strings.TrimSpace(in.HoldDuration)
	}
	return m, nil
}
