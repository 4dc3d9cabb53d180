// Package mail delivers one-time codes and verification links.
//
// SMTPSender speaks SMTP with opportunistic or required STARTTLS.
// WriterSender writes each message to an io.Writer and is meant for local
// development, where codes are read from the process output.
package mail
