// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailer delivers contact form submissions to the site operator.
package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

// Message is a contact form submission.
type Message struct {
	Name  string
	Email string
	Phone string
	Body  string
}

// Notifier delivers a contact message to the site operator.
type Notifier interface {
	Notify(msg Message) error
}

// SMTPNotifier sends contact messages over SMTP to the configured account.
type SMTPNotifier struct {
	addr     string
	host     string
	account  string
	password string
}

// NewSMTPNotifier creates a notifier that mails messages to the operator's
// own account. addr is host:port, host alone is used for auth.
func NewSMTPNotifier(addr, host, account, password string) *SMTPNotifier {
	return &SMTPNotifier{
		addr:     addr,
		host:     host,
		account:  account,
		password: password,
	}
}

// Notify sends the message as a plain-text email with subject "New Message".
func (n *SMTPNotifier) Notify(msg Message) error {
	body := fmt.Sprintf(
		"Subject: New Message\r\n\r\nName: %s\r\nEmail: %s\r\nPhone: %s\r\nMessage: %s\r\n",
		msg.Name, msg.Email, msg.Phone, msg.Body,
	)

	auth := smtp.PlainAuth("", n.account, n.password, n.host)
	if err := smtp.SendMail(n.addr, auth, n.account, []string{n.account}, []byte(body)); err != nil {
		return fmt.Errorf("sending contact mail: %w", err)
	}
	return nil
}

// LogNotifier logs contact messages instead of mailing them. Used in
// development when no SMTP account is configured.
type LogNotifier struct{}

// Notify writes the message to the structured log.
func (n *LogNotifier) Notify(msg Message) error {
	slog.Info("contact message received",
		"name", msg.Name,
		"email", msg.Email,
		"phone", msg.Phone,
		"message", msg.Body,
	)
	return nil
}
