// Package renderer talks to the certificate document renderer. The renderer
// is an external service: a JSON payload goes in, PDF bytes come out.
package renderer

import "time"

// Payload is everything printed on a certificate. It is built once per
// render and never mutated afterwards.
type Payload struct {
	CertificateNo string    `json:"certificate_no"`
	Preview       bool      `json:"preview"`
	Orientation   string    `json:"orientation"`
	IssuedAt      time.Time `json:"issued_at"`
	Org           Org       `json:"org"`
	Donor         Donor     `json:"donor"`
	Donation      Donation  `json:"donation"`
}

type Org struct {
	Name           string `json:"name"`
	RegistrationNo string `json:"registration_no,omitempty"`
	PAN            string `json:"pan,omitempty"`
	Address        string `json:"address,omitempty"`
	SignatoryName  string `json:"signatory_name,omitempty"`
	SignatoryTitle string `json:"signatory_title,omitempty"`
}

type Donor struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	PAN      string `json:"pan,omitempty"`
	Category string `json:"category"`
}

type Donation struct {
	ID             string    `json:"id,omitempty"`
	Amount         string    `json:"amount"`
	AmountInWords  string    `json:"amount_in_words"`
	Currency       string    `json:"currency"`
	PaymentMode    string    `json:"payment_mode"`
	DonatedAt      time.Time `json:"donated_at"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
}
