package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Venue     string    `json:"venue" db:"venue"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	Organizer string    `json:"organizer" db:"organizer"`
	Status    string    `json:"status" db:"status"` // draft, published, started, ended
}

type TicketType struct {
	ID       string          `json:"id" db:"id"`
	EventID  string          `json:"event_id" db:"event_id"`
	Name     string          `json:"name" db:"name"`
	Price    decimal.Decimal `json:"price" db:"price"`
	Currency string          `json:"currency" db:"currency"`
}
