// Package mailer sends task outcome emails over SMTP.
//
// This package is an infrastructure adapter implementing the task
// package's Notifier interface on top of gopkg.in/gomail.v2. Delivery
// is best-effort by contract: the task processor logs send failures
// without affecting task state, and a deployment without an SMTP
// server simply leaves mail disabled in configuration.
package mailer
