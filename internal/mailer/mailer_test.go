// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogNotifier(t *testing.T) {
	n := &LogNotifier{}

	err := n.Notify(Message{
		Name:  "Ada",
		Email: "ada@example.com",
		Phone: "555-0100",
		Body:  "Loved the latest post.",
	})
	assert.NoError(t, err)
}

func TestSMTPNotifier_UnreachableServer(t *testing.T) {
	// Port 1 on localhost refuses connections, so delivery must fail
	// with a wrapped error rather than hang.
	n := NewSMTPNotifier("127.0.0.1:1", "127.0.0.1", "blog@example.com", "secret")

	err := n.Notify(Message{Name: "Ada", Email: "ada@example.com", Body: "hi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sending contact mail")
}
