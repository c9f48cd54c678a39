// Package mail delivers finished HTML reports over SMTP.
package mail
