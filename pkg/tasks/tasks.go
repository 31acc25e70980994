// Package tasks defines the payloads that travel through the support notification queue.
package tasks

import (
	"fmt"
	"strings"
	"time"
)

// SupportNotification is the notice sent to the support channel when a ticket is opened.
type SupportNotification struct {
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Intent    string    `json:"intent,omitempty"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Text renders the notification as a plain chat message.
func (n SupportNotification) Text() string {
	role := n.Role
	if strings.TrimSpace(role) == "" {
		role = "sin rol"
	}
	intent := n.Intent
	if intent == "" {
		intent = "desconocida"
	}
	return fmt.Sprintf("Nueva incidencia %s [%s]\nEmpleado: %s (%s, %s)\nIntención: %s\nMensaje: %s",
		n.TicketID, strings.ToUpper(n.Priority), n.UserName, n.UserID, role, intent, n.Message)
}
